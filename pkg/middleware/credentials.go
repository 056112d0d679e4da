package middleware

import (
	"github.com/gin-gonic/gin"
)

// originSet は許可するオリジンの集合。
type originSet map[string]struct{}

func newOriginSet(origins []string) originSet {
	set := make(originSet, len(origins))
	for _, o := range origins {
		if o == "" {
			continue
		}
		set[o] = struct{}{}
	}
	return set
}

// allows はoriginが許可リストに含まれるかを返す。Originが無いリクエストは許可しない。
func (s originSet) allows(origin string) bool {
	if origin == "" {
		return false
	}
	_, ok := s[origin]
	return ok
}

// Credentials はクロスオリジンでの資格情報（Cookie・Authorizationヘッダー）共有を
// 許可するかを判定するGinミドルウェアを返す。
//
// 許可リストに含まれるオリジンにはAccess-Control-Allow-Originをそのまま返し、
// Access-Control-Allow-Credentialsを付与する。許可リストに無いオリジンでも
// リクエストは拒否せず、資格情報用のヘッダーを付けずに後続へ渡す。
func Credentials(allowedOrigins []string) gin.HandlerFunc {
	allowed := newOriginSet(allowedOrigins)

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if allowed.allows(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Set(ctxKeyCredentialsAllowed, true)
		}
		c.Writer.Header().Add("Vary", "Origin")
		c.Next()
	}
}
