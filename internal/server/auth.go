package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/internal/store"
	"github.com/nao1215/storefront/pkg/apperror"
	"github.com/nao1215/storefront/pkg/auth"
	"github.com/nao1215/storefront/pkg/event"
	"github.com/nao1215/storefront/pkg/middleware"
)

// refreshCookie はリフレッシュトークンを格納するhttpOnly Cookieの名前。
const refreshCookie = "jwt"

// refreshCookiePath はリフレッシュトークンのCookieを送るパス。
const refreshCookiePath = "/api/auth"

// registerRequest はユーザー登録のリクエスト。
type registerRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"required,min=1,max=100"`
}

// loginRequest はログインのリクエスト。
type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// tokenResponse はトークン発行時のレスポンス。
type tokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        userResponse `json:"user"`
}

// handleRegister はユーザー登録のハンドラを返す。登録したユーザーにはcustomerロールを付与する。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if !bindJSON(c, &req) {
			return
		}

		hash, err := s.passwords.Hash(req.Password)
		if err != nil {
			fail(c, apperror.Internal(err))
			return
		}

		user, err := s.store.CreateUser(c.Request.Context(), store.NewUserParams{
			Email:        req.Email,
			Name:         req.Name,
			PasswordHash: hash,
			Roles:        auth.NewRoleSet(auth.RoleCustomer),
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				fail(c, apperror.Conflict("このメールアドレスは既に登録されています"))
				return
			}
			fail(c, storeError(err, "ユーザーが見つかりません"))
			return
		}

		s.record(c.Request.Context(), user.ID, event.AggregateTypeUser, event.TypeUserRegistered, user.ID,
			event.UserRegisteredData{Email: user.Email, Roles: user.Roles.Strings()})

		resp, ok := s.issueTokens(c, user)
		if !ok {
			return
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// handleLogin はログインのハンドラを返す。
// メールアドレスが存在しない場合とパスワードが一致しない場合は同じ応答を返す。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if !bindJSON(c, &req) {
			return
		}
		ctx := c.Request.Context()

		invalid := apperror.Unauthenticated(apperror.CodeInvalidCredentials, "メールアドレスまたはパスワードが正しくありません")

		user, err := s.store.GetUserByEmail(ctx, req.Email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.record(ctx, "", event.AggregateTypeUser, event.TypeUserLoginFailed, "",
					event.UserLoginData{Email: req.Email, ClientIP: c.ClientIP()})
				fail(c, invalid)
				return
			}
			fail(c, apperror.Internal(err))
			return
		}

		if err := s.passwords.Compare(user.PasswordHash, req.Password); err != nil {
			if !errors.Is(err, auth.ErrPasswordMismatch) {
				fail(c, apperror.Internal(err))
				return
			}
			s.record(ctx, user.ID, event.AggregateTypeUser, event.TypeUserLoginFailed, "",
				event.UserLoginData{Email: user.Email, ClientIP: c.ClientIP()})
			fail(c, invalid)
			return
		}

		s.record(ctx, user.ID, event.AggregateTypeUser, event.TypeUserLoggedIn, user.ID,
			event.UserLoginData{Email: user.Email, ClientIP: c.ClientIP()})

		resp, ok := s.issueTokens(c, user)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// handleRefresh はリフレッシュトークンのCookieから新しいアクセストークンを発行するハンドラを返す。
// ロールは発行時点の保存済みの値を使う。
func (s *Server) handleRefresh() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		cookie, err := c.Cookie(refreshCookie)
		if err != nil || cookie == "" {
			fail(c, apperror.Unauthenticated(apperror.CodeMissingToken, "リフレッシュトークンがありません"))
			return
		}

		identity, err := s.tokens.Verify(auth.RefreshToken, cookie)
		if err != nil {
			s.clearRefreshCookie(c)
			fail(c, refreshTokenError(err))
			return
		}

		revoked, err := s.isRevoked(ctx, identity.TokenID)
		if err != nil {
			fail(c, &apperror.Error{
				Kind:    apperror.KindInternal,
				Code:    apperror.CodeTokenCheckUnavailable,
				Message: "認証状態を確認できませんでした",
				Err:     err,
			})
			return
		}
		if revoked {
			s.clearRefreshCookie(c)
			fail(c, apperror.Unauthenticated(apperror.CodeInvalidToken, "トークンは失効しています"))
			return
		}

		user, err := s.store.GetUserByID(ctx, identity.Subject)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.clearRefreshCookie(c)
				fail(c, apperror.Unauthenticated(apperror.CodeInvalidToken, "トークンが無効です"))
				return
			}
			fail(c, apperror.Internal(err))
			return
		}

		access, _, err := s.tokens.Issue(auth.AccessToken, user.ID, user.Roles)
		if err != nil {
			fail(c, apperror.Internal(err))
			return
		}
		c.JSON(http.StatusOK, tokenResponse{
			AccessToken: access,
			TokenType:   "Bearer",
			ExpiresIn:   int64(s.tokens.TTL(auth.AccessToken) / time.Second),
			User:        newUserResponse(user),
		})
	}
}

// handleLogout はログアウトのハンドラを返す。
// リフレッシュトークンと、提示されていればアクセストークンを失効させる。
// トークンが無い・無効な場合も204を返す。
func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var subject string

		if cookie, err := c.Cookie(refreshCookie); err == nil && cookie != "" {
			if identity, err := s.tokens.Verify(auth.RefreshToken, cookie); err == nil {
				if err := s.revoke(ctx, identity); err != nil {
					fail(c, apperror.Internal(err))
					return
				}
				subject = identity.Subject
			}
		}

		if header := c.GetHeader("Authorization"); header != "" {
			if token, ok := middleware.BearerToken(header); ok {
				if identity, err := s.tokens.Verify(auth.AccessToken, token); err == nil {
					if err := s.revoke(ctx, identity); err != nil {
						fail(c, apperror.Internal(err))
						return
					}
					subject = identity.Subject
				}
			}
		}

		if subject != "" {
			s.record(ctx, subject, event.AggregateTypeUser, event.TypeUserLoggedOut, subject, nil)
		}
		s.clearRefreshCookie(c)
		c.Status(http.StatusNoContent)
	}
}

// issueTokens はアクセストークンとリフレッシュトークンを発行し、リフレッシュトークンをCookieに設定する。
func (s *Server) issueTokens(c *gin.Context, user *store.User) (tokenResponse, bool) {
	access, _, err := s.tokens.Issue(auth.AccessToken, user.ID, user.Roles)
	if err != nil {
		fail(c, apperror.Internal(err))
		return tokenResponse{}, false
	}
	refresh, _, err := s.tokens.Issue(auth.RefreshToken, user.ID, user.Roles)
	if err != nil {
		fail(c, apperror.Internal(err))
		return tokenResponse{}, false
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookie, refresh, int(s.tokens.TTL(auth.RefreshToken)/time.Second),
		refreshCookiePath, "", s.cfg.Auth.CookieSecure, true)

	return tokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TTL(auth.AccessToken) / time.Second),
		User:        newUserResponse(user),
	}, true
}

// clearRefreshCookie はリフレッシュトークンのCookieを削除する。
func (s *Server) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookie, "", -1, refreshCookiePath, "", s.cfg.Auth.CookieSecure, true)
}

// revoke はトークンを有効期限まで失効扱いにする。
func (s *Server) revoke(ctx context.Context, identity *auth.Identity) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Auth.RevocationTimeout)
	defer cancel()
	return s.revocations.Revoke(ctx, identity.TokenID, identity.ExpiresAt)
}

// isRevoked はトークンIDが失効済みかをタイムアウト付きで確認する。
func (s *Server) isRevoked(ctx context.Context, tokenID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Auth.RevocationTimeout)
	defer cancel()
	return s.revocations.IsRevoked(ctx, tokenID)
}

// refreshTokenError はリフレッシュトークンの検証エラーを認証エラーに変換する。
func refreshTokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return apperror.Unauthenticated(apperror.CodeExpiredToken, "セッションの有効期限が切れています。再度ログインしてください")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrMissingToken):
		return apperror.Unauthenticated(apperror.CodeInvalidToken, "リフレッシュトークンが無効です").WithCause(err)
	default:
		return apperror.Internal(err)
	}
}

// handleGetMe は認証済みユーザー自身の情報を返すハンドラを返す。
func (s *Server) handleGetMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := middleware.GetIdentity(c)
		if !ok {
			fail(c, apperror.Internal(errors.New("認証主体がコンテキストにありません")))
			return
		}

		user, err := s.store.GetUserByID(c.Request.Context(), identity.Subject)
		if err != nil {
			fail(c, storeError(err, "ユーザーが見つかりません"))
			return
		}
		c.JSON(http.StatusOK, newUserResponse(user))
	}
}
