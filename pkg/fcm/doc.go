// Package fcm はFirebase Cloud Messaging HTTP v1 APIのクライアントを提供する。
//
// 1トークンに1メッセージを送るmessages:sendのみを扱う。送信失敗は*Errorとして返し、
// IsTokenInvalidでトークン自体が無効（削除すべき）かどうかを判定できる。
// 認証はサービスアカウントのOAuth2トークンをgolang.org/x/oauth2で取得する。
package fcm
