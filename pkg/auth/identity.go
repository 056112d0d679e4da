package auth

import "time"

// Identity は検証済みトークンから得られる認証主体。
// リクエストごとに生成され、レスポンス完了とともに破棄される。
type Identity struct {
	// Subject はユーザーの一意識別子。
	Subject string
	// Roles はユーザーに付与されたロールの集合。
	Roles RoleSet
	// TokenID はトークンの一意識別子（jti）。失効確認に使用する。
	TokenID string
	// IssuedAt はトークンの発行日時。
	IssuedAt time.Time
	// ExpiresAt はトークンの有効期限。
	ExpiresAt time.Time
}

// HasAnyRole はIdentityが指定集合のいずれかのロールを持つかを返す。
func (id *Identity) HasAnyRole(required RoleSet) bool {
	if id == nil {
		return false
	}
	return id.Roles.Intersects(required)
}
