// Package fanout は1つのidentityが持つ全トークンへ通知を配信し、無効なトークンを掃除する。
//
// トークンごとに独立した送信を行い、結果を成功・恒久的な無効・一時的な失敗に分類する。
// 恒久的に無効なトークンだけを1回のPruneTokens呼び出しでディレクトリから取り除き、
// 一時的な失敗のトークンは残す。送信と削除は1つのトランザクションではないため、
// 削除は少なくとも1回行われることだけを保証する。
package fanout
