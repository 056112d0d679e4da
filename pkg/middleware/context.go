package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/pkg/auth"
)

// Ginコンテキストに格納する値のキー。
const (
	ctxKeyRequestID          = "request_id"
	ctxKeyIdentity           = "identity"
	ctxKeyCredentialsAllowed = "credentials_allowed"
)

// Abort はエラーをコンテキストに積み、後続のハンドラを中断する。
// レスポンスはErrorHandlerが書き込む。
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// GetIdentity はVerifyTokenが設定した認証主体を取得する。
func GetIdentity(c *gin.Context) (*auth.Identity, bool) {
	v, ok := c.Get(ctxKeyIdentity)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*auth.Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}

// GetRequestID はRequestIDが設定したリクエストIDを取得する。未設定の場合は空文字列を返す。
func GetRequestID(c *gin.Context) string {
	return c.GetString(ctxKeyRequestID)
}

// CredentialsAllowed はCredentialsがクロスオリジンの資格情報共有を許可したかを返す。
func CredentialsAllowed(c *gin.Context) bool {
	return c.GetBool(ctxKeyCredentialsAllowed)
}
