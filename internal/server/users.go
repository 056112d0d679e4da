package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/pkg/apperror"
	"github.com/nao1215/storefront/pkg/auth"
	"github.com/nao1215/storefront/pkg/event"
)

// updateProfileRequest は自分の表示名を変更するリクエスト。
type updateProfileRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// changePasswordRequest はパスワード変更のリクエスト。
type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// updateRolesRequest はロール変更のリクエスト。
type updateRolesRequest struct {
	Roles []string `json:"roles" binding:"required,min=1,dive,oneof=customer admin"`
}

// userRoutes はユーザーリソースのルートを返す。
// 顧客は自分自身のみ、管理者は全ユーザーと監査イベントを扱える。
func (s *Server) userRoutes(kind scopeKind) []route {
	if kind == scopeCustomer {
		return []route{
			{http.MethodGet, "/me", s.handleGetMe()},
			{http.MethodPut, "/me", s.handleUpdateProfile()},
			{http.MethodPut, "/me/password", s.handleChangePassword()},
		}
	}
	return []route{
		{http.MethodGet, "", s.handleListUsers()},
		{http.MethodGet, "/audit-events", s.handleListAuditEvents()},
		{http.MethodGet, "/:userId", s.handleGetUser()},
		{http.MethodPut, "/:userId/roles", s.handleUpdateUserRoles()},
		{http.MethodDelete, "/:userId", s.handleDeleteUser()},
	}
}

// handleUpdateProfile は自分の表示名を変更するハンドラを返す。
func (s *Server) handleUpdateProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, ok := identitySubject(c)
		if !ok {
			return
		}
		var req updateProfileRequest
		if !bindJSON(c, &req) {
			return
		}

		user, err := s.store.UpdateUserName(c.Request.Context(), subject, req.Name)
		if err != nil {
			fail(c, storeError(err, "ユーザーが見つかりません"))
			return
		}
		c.JSON(http.StatusOK, newUserResponse(user))
	}
}

// handleChangePassword はパスワードを変更するハンドラを返す。現在のパスワードの確認を必須とする。
func (s *Server) handleChangePassword() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, ok := identitySubject(c)
		if !ok {
			return
		}
		var req changePasswordRequest
		if !bindJSON(c, &req) {
			return
		}
		ctx := c.Request.Context()

		user, err := s.store.GetUserByID(ctx, subject)
		if err != nil {
			fail(c, storeError(err, "ユーザーが見つかりません"))
			return
		}
		if err := s.passwords.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
			if errors.Is(err, auth.ErrPasswordMismatch) {
				fail(c, apperror.Validation("現在のパスワードが正しくありません",
					apperror.FieldError{Field: "current_password", Reason: "一致しません"}))
				return
			}
			fail(c, apperror.Internal(err))
			return
		}

		hash, err := s.passwords.Hash(req.NewPassword)
		if err != nil {
			fail(c, apperror.Internal(err))
			return
		}
		if err := s.store.UpdateUserPassword(ctx, subject, hash); err != nil {
			fail(c, storeError(err, "ユーザーが見つかりません"))
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// handleListUsers は全ユーザーを返すハンドラを返す。
func (s *Server) handleListUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := s.store.ListUsers(c.Request.Context())
		if err != nil {
			fail(c, apperror.Internal(err))
			return
		}
		out := make([]userResponse, 0, len(users))
		for i := range users {
			out = append(out, newUserResponse(&users[i]))
		}
		c.JSON(http.StatusOK, gin.H{"users": out})
	}
}

// handleGetUser は指定ユーザーを返すハンドラを返す。
func (s *Server) handleGetUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.store.GetUserByID(c.Request.Context(), c.Param("userId"))
		if err != nil {
			fail(c, storeError(err, "ユーザーが見つかりません"))
			return
		}
		c.JSON(http.StatusOK, newUserResponse(user))
	}
}

// handleUpdateUserRoles はユーザーのロールを置き換えるハンドラを返す。
// 管理者が自分自身からadminロールを外すことはできない。
func (s *Server) handleUpdateUserRoles() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := identitySubject(c)
		if !ok {
			return
		}
		var req updateRolesRequest
		if !bindJSON(c, &req) {
			return
		}
		ctx := c.Request.Context()
		userID := c.Param("userId")

		roles := auth.ParseRoleSet(req.Roles)
		if userID == actor && !roles.Has(auth.RoleAdmin) {
			fail(c, apperror.Validation("自分自身の管理者ロールは外せません",
				apperror.FieldError{Field: "roles", Reason: "adminを含める必要があります"}))
			return
		}

		before, err := s.store.GetUserByID(ctx, userID)
		if err != nil {
			fail(c, storeError(err, "ユーザーが見つかりません"))
			return
		}
		user, err := s.store.UpdateUserRoles(ctx, userID, roles)
		if err != nil {
			fail(c, storeError(err, "ユーザーが見つかりません"))
			return
		}

		s.record(ctx, user.ID, event.AggregateTypeUser, event.TypeUserRolesChanged, actor,
			event.UserRolesChangedData{Before: before.Roles.Strings(), After: user.Roles.Strings()})
		c.JSON(http.StatusOK, newUserResponse(user))
	}
}

// handleDeleteUser はユーザーを削除するハンドラを返す。自分自身は削除できない。
func (s *Server) handleDeleteUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := identitySubject(c)
		if !ok {
			return
		}
		userID := c.Param("userId")
		if userID == actor {
			fail(c, apperror.Validation("自分自身は削除できません"))
			return
		}

		if err := s.store.DeleteUser(c.Request.Context(), userID); err != nil {
			fail(c, storeError(err, "ユーザーが見つかりません"))
			return
		}
		s.record(c.Request.Context(), userID, event.AggregateTypeUser, event.TypeUserDeleted, actor, nil)
		c.Status(http.StatusNoContent)
	}
}

// handleListAuditEvents は監査イベントを新しい順に返すハンドラを返す。
// limitクエリで件数を指定できる（1〜500）。
func (s *Server) handleListAuditEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 500 {
				fail(c, apperror.Validation("limitは1から500の整数で指定してください",
					apperror.FieldError{Field: "limit", Reason: "範囲外です"}))
				return
			}
			limit = n
		}

		events, err := s.store.ListEvents(c.Request.Context(), limit)
		if err != nil {
			fail(c, apperror.Internal(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}
