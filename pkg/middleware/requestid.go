package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HeaderRequestID はリクエストIDを伝播するHTTPヘッダーキー。
const HeaderRequestID = "X-Request-ID"

// maxRequestIDLength は受け入れるリクエストIDの最大長。これを超える値は破棄して採番し直す。
const maxRequestIDLength = 128

// RequestID はリクエストIDを設定するGinミドルウェアを返す。
// クライアントがX-Request-IDを送った場合はそれを使い、無ければUUIDを採番する。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.New().String()
		}
		c.Set(ctxKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}
