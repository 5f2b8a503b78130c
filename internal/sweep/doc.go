// Package sweep は長期間更新のない端末トークンを定期的に削除する。
//
// 1回の実行で古い端末を順に走査し、端末レコードを削除して所有者のトークン集合からも外す。
// 1件の失敗は記録して次に進み、走査自体が失敗した場合だけ実行を中断する。
// Scheduleはcron式に従って実行を繰り返す。
package sweep
