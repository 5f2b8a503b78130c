// Package relay はプッシュ通知リレーのHTTP APIを提供する。
//
// 端末の登録・解除、イベント種類ごとのWebhook、テスト通知、診断、ヘルスチェックを扱う。
// Webhookはリクエストボディを検証してイベントに変換し、formatterで通知内容を組み立て、
// fanoutで受信者の全端末へ配信する。必須項目が欠けたリクエストは副作用なしで400を返す。
// 呼び出し元の認証は行わない。
package relay
