package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/pkg/apperror"
	"github.com/nao1215/storefront/pkg/auth"
)

// errIdentityMissing はVerifyTokenより前にRequireRolesが実行された場合のエラー。
var errIdentityMissing = errors.New("ロール検証の前にトークン検証が実行されていません")

// RequireRoles は指定ロールのいずれかを持つリクエストのみを通すGinミドルウェアを返す。
// VerifyTokenの後に登録する必要がある。Identityが無い場合は構成の誤りとして内部エラーにし、
// 決して通過させない。ロールが空の場合は起動時にパニックする。
func RequireRoles(roles ...auth.Role) gin.HandlerFunc {
	required := auth.NewRoleSet(roles...)
	if required.Len() == 0 {
		panic("middleware: RequireRolesには1つ以上のロールが必要です")
	}

	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			Abort(c, apperror.Internal(errIdentityMissing))
			return
		}
		if !identity.HasAnyRole(required) {
			Abort(c, apperror.Forbidden())
			return
		}
		c.Next()
	}
}
