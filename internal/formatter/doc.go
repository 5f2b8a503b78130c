// Package formatter はバックエンドイベントをプッシュ通知の表示内容に変換する。
//
// 変換は純粋関数で、イベント種類ごとに固定のタイトル・本文テンプレートを持つ。
// 任意項目(金額、相手の表示名、説明など)が欠けている場合は代替文言を使う。
// 未知のイベントや未知の取引種別は失敗させず、汎用の更新通知に置き換える。
package formatter
