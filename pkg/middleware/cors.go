package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORSConfig はCORSミドルウェアの設定。
type CORSConfig struct {
	// AllowedOrigins はクロスオリジンアクセスを許可するオリジンの一覧。
	AllowedOrigins []string
	// Permissive がtrueの場合、すべてのオリジンを許可する。
	// 開発環境専用で、本番環境では設定の読み込み時に拒否される。
	// 資格情報の共有可否はPermissiveに関係なくCredentialsが判定する。
	Permissive bool
}

// CORS は指定されたオリジンからのクロスオリジンリクエストを許可するGinミドルウェアを返す。
// プリフライト（Originを伴うOPTIONS）は204で応答し、後続のハンドラは実行しない。
func CORS(cfg CORSConfig) gin.HandlerFunc {
	allowed := newOriginSet(cfg.AllowedOrigins)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (cfg.Permissive || allowed.allows(origin)) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			c.Header("Access-Control-Expose-Headers", HeaderRequestID)
			c.Header("Access-Control-Max-Age", "86400")
		}

		if c.Request.Method == http.MethodOptions && origin != "" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
