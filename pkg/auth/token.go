package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType はトークンの用途を表す。
type TokenType string

const (
	// AccessToken はAPI呼び出しに使う短命なトークン。
	AccessToken TokenType = "access"
	// RefreshToken はアクセストークンの再発行に使う長命なトークン。
	RefreshToken TokenType = "refresh"
)

// トークン検証で返すエラー。
var (
	// ErrMissingToken はトークンが提示されていないことを表す。
	ErrMissingToken = errors.New("トークンがありません")
	// ErrInvalidToken はトークンの形式・署名・発行者が不正であることを表す。
	ErrInvalidToken = errors.New("トークンが無効です")
	// ErrExpiredToken は署名は正しいが有効期限が切れていることを表す。
	ErrExpiredToken = errors.New("トークンの有効期限が切れています")
	// ErrWrongTokenType は用途の異なるトークンが提示されたことを表す。
	// ErrInvalidTokenとしても判定される。
	ErrWrongTokenType = fmt.Errorf("%w: トークンの種類が一致しません", ErrInvalidToken)
)

// Claims はJWTトークンのクレーム（ペイロード）を表す。
type Claims struct {
	jwt.RegisteredClaims
	// Roles はユーザーに付与されたロール。
	Roles []string `json:"roles"`
	// TokenType はトークンの用途。
	TokenType TokenType `json:"token_type"`
}

// TokenConfig はTokenServiceの設定。
type TokenConfig struct {
	// AccessSecret はアクセストークンの署名鍵。
	AccessSecret string
	// RefreshSecret はリフレッシュトークンの署名鍵。
	RefreshSecret string
	// AccessTTL はアクセストークンの有効期間。
	AccessTTL time.Duration
	// RefreshTTL はリフレッシュトークンの有効期間。
	RefreshTTL time.Duration
	// Issuer はトークンの発行者（iss）。
	Issuer string
	// Now は現在時刻を返す関数。nilの場合はtime.Nowを使う。
	Now func() time.Time
}

// TokenService はHS256で署名されたJWTを発行・検証する。
// 生成後は状態を変更しないため、複数のゴルーチンから同時に利用できる。
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

// NewTokenService は新しいTokenServiceを生成する。
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("トークンの署名鍵が設定されていません")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("トークンの有効期間は正の値である必要があります")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TokenService{cfg: cfg, now: now}, nil
}

// Issue はユーザー情報から指定用途のトークンを生成する。
// 生成したトークンに対応するIdentityも返す。
func (s *TokenService) Issue(kind TokenType, subject string, roles RoleSet) (string, *Identity, error) {
	secret, ttl, err := s.params(kind)
	if err != nil {
		return "", nil, err
	}

	now := s.now().UTC().Truncate(time.Second)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
		Roles:     roles.Strings(),
		TokenType: kind,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", nil, fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}

	return signed, &Identity{
		Subject:   subject,
		Roles:     roles,
		TokenID:   claims.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Verify はトークンの署名・有効期限・発行者・用途を検証し、Identityを返す。
// 期限切れは署名が正しい場合にのみErrExpiredTokenとして報告される。
func (s *TokenService) Verify(kind TokenType, tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	secret, _, err := s.params(kind)
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		// jwt/v5は署名検証の後にクレームを検証するため、ここに来る期限切れは署名済みのもの。
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.TokenType != kind {
		return nil, ErrWrongTokenType
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: 必須クレームがありません", ErrInvalidToken)
	}

	identity := &Identity{
		Subject: claims.Subject,
		Roles:   ParseRoleSet(claims.Roles),
		TokenID: claims.ID,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

// TTL は指定用途のトークンの有効期間を返す。
func (s *TokenService) TTL(kind TokenType) time.Duration {
	_, ttl, err := s.params(kind)
	if err != nil {
		return 0
	}
	return ttl
}

// params は用途ごとの署名鍵と有効期間を返す。
func (s *TokenService) params(kind TokenType) ([]byte, time.Duration, error) {
	switch kind {
	case AccessToken:
		return []byte(s.cfg.AccessSecret), s.cfg.AccessTTL, nil
	case RefreshToken:
		return []byte(s.cfg.RefreshSecret), s.cfg.RefreshTTL, nil
	default:
		return nil, 0, fmt.Errorf("未定義のトークン種別です: %q", kind)
	}
}
