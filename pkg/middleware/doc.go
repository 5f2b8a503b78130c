// Package middleware はリレーのHTTP APIで使用するGinミドルウェアを提供する。
//
// パニックリカバリ、CORS設定、リクエストIDの採番を含む。
// Webhook呼び出し元の認証は行わない。
package middleware
