package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nao1215/pushrelay/pkg/httpclient"
)

// RequestIDHeader はリクエストIDを受け渡すHTTPヘッダー名。
const RequestIDHeader = "X-Request-ID"

// requestIDKey はgin.ContextにリクエストIDを格納するキー。
const requestIDKey = "request_id"

// RequestID はリクエストごとにIDを採番するGinミドルウェアを返す。
// 呼び出し元がX-Request-IDを指定した場合はその値を引き継ぐ。
// IDはレスポンスヘッダーとリクエストのコンテキストの両方に設定し、
// FCMへの送信リクエストにも伝播させる。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(httpclient.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}

// GetRequestID はコンテキストからリクエストIDを取得する。
// RequestIDミドルウェアを通過していない場合は空文字を返す。
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
