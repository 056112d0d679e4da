package middleware

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/pkg/apperror"
	"github.com/nao1215/storefront/pkg/auth"
)

// AccessTokenCookie はアクセストークンを格納するCookie名。
// Authorizationヘッダーが無い場合にのみ参照する。
const AccessTokenCookie = "access_token"

// defaultRevocationTimeout は失効確認のタイムアウトが指定されなかった場合の既定値。
const defaultRevocationTimeout = 2 * time.Second

// TokenVerifier はアクセストークンを検証してIdentityを返す。
// *auth.TokenServiceが実装する。
type TokenVerifier interface {
	Verify(kind auth.TokenType, token string) (*auth.Identity, error)
}

// RevocationChecker はトークンIDが失効済みかを返す。
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// VerifyToken はアクセストークンを検証するGinミドルウェアを返す。
//
// トークンはAuthorizationヘッダー（Bearer）を優先し、無ければaccess_token Cookieから読む。
// 検証に成功した場合はIdentityをコンテキストに設定する。失敗した場合は
// MISSING_TOKEN・INVALID_TOKEN・EXPIRED_TOKENのいずれかで中断する。
// revocationsがnilでなければ失効確認を行い、timeout以内に確認できない場合は
// 通過させずに内部エラーとする。
func VerifyToken(verifier TokenVerifier, revocations RevocationChecker, timeout time.Duration) gin.HandlerFunc {
	if timeout <= 0 {
		timeout = defaultRevocationTimeout
	}

	return func(c *gin.Context) {
		tokenString, err := extractToken(c)
		if err != nil {
			Abort(c, tokenError(err))
			return
		}

		identity, err := verifier.Verify(auth.AccessToken, tokenString)
		if err != nil {
			Abort(c, tokenError(err))
			return
		}

		if revocations != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
			revoked, err := revocations.IsRevoked(ctx, identity.TokenID)
			cancel()
			if err != nil {
				Abort(c, &apperror.Error{
					Kind:    apperror.KindInternal,
					Code:    apperror.CodeTokenCheckUnavailable,
					Message: "認証状態を確認できませんでした",
					Err:     err,
				})
				return
			}
			if revoked {
				Abort(c, apperror.Unauthenticated(apperror.CodeInvalidToken, "トークンは失効しています"))
				return
			}
		}

		c.Set(ctxKeyIdentity, identity)
		c.Next()
	}
}

// extractToken はリクエストからトークン文字列を取り出す。
// Authorizationヘッダーがあるのに形式が不正な場合はCookieにフォールバックしない。
func extractToken(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		tokenString, ok := BearerToken(header)
		if !ok {
			return "", auth.ErrInvalidToken
		}
		return tokenString, nil
	}

	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie, nil
	}
	return "", auth.ErrMissingToken
}

// BearerToken はAuthorizationヘッダーの値からBearerトークンを取り出す。
// スキーム名の大文字・小文字は区別しない（RFC 7235）。
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// tokenError はトークン検証エラーを認証エラーに変換する。
func tokenError(err error) *apperror.Error {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return apperror.Unauthenticated(apperror.CodeMissingToken, "認証トークンが必要です")
	case errors.Is(err, auth.ErrExpiredToken):
		return apperror.Unauthenticated(apperror.CodeExpiredToken, "トークンの有効期限が切れています。再度ログインしてください")
	case errors.Is(err, auth.ErrInvalidToken):
		return apperror.Unauthenticated(apperror.CodeInvalidToken, "トークンが無効です").WithCause(err)
	default:
		return apperror.Internal(err)
	}
}
