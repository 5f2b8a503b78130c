package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
)

// recoveredMessage はパニック時にクライアントへ返すメッセージ。
const recoveredMessage = "リクエストの処理中に予期しないエラーが発生しました"

// Recovery はハンドラ内のパニックを500応答に変換するGinミドルウェアを返す。
// パニック値とスタックはログにだけ残し、応答にはリクエストIDを含める。
// 応答を書き始めた後のパニックではステータスと本文を変更しない。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			requestID := GetRequestID(c)
			log.Printf("[Recovery] パニックから復帰: request_id=%s, route=%s %s, panic=%v\n%s",
				requestID, c.Request.Method, c.Request.URL.Path, r, debug.Stack())

			if c.Writer.Written() {
				c.Abort()
				return
			}
			body := gin.H{"error": recoveredMessage}
			if requestID != "" {
				body["requestId"] = requestID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()
		c.Next()
	}
}
