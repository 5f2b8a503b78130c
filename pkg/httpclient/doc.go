// Package httpclient は外部APIとのJSON通信を行うクライアントを提供する。
//
// FCM HTTP v1 APIなど、JSONでやり取りする外部サービスを呼び出す際に使用する。
// 2xx以外の応答はStatusErrorとして返し、呼び出し側がステータスコードと
// レスポンスボディから失敗の種類を判定できるようにする。
package httpclient
