package middleware

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/pkg/apperror"
)

// JSONBody はリクエストボディを検査するGinミドルウェアを返す。
// ボディの大きさをmaxBytesに制限し、POST・PUT・PATCHでボディがある場合は
// Content-Typeがapplication/jsonであることを要求する。
func JSONBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && maxBytes > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}

		if hasBody(c.Request) && requiresJSON(c.Request.Method) {
			mediaType, _, err := mime.ParseMediaType(c.ContentType())
			if err != nil || mediaType != gin.MIMEJSON {
				Abort(c, apperror.Validation("Content-Typeはapplication/jsonである必要があります"))
				return
			}
		}

		c.Next()
	}
}

// hasBody はリクエストがボディを持つかを返す。長さ不明（chunked）も含める。
func hasBody(r *http.Request) bool {
	return r.Body != nil && r.Body != http.NoBody && r.ContentLength != 0
}

func requiresJSON(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}
