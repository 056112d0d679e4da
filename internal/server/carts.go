package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/pkg/apperror"
)

// cartItemRequest はカート明細の数量を設定するリクエスト。
type cartItemRequest struct {
	Quantity int `json:"quantity" binding:"required,gte=1,lte=99"`
}

// cartRoutes はカートリソースのルートを返す。
// 顧客は自分のカートのみ、管理者は全ユーザーのカートを閲覧・削除できる。
func (s *Server) cartRoutes(kind scopeKind) []route {
	if kind == scopeCustomer {
		return []route{
			{http.MethodGet, "", s.handleGetOwnCart()},
			{http.MethodPut, "/items/:productId", s.handlePutCartItem()},
			{http.MethodDelete, "/items/:productId", s.handleDeleteCartItem()},
			{http.MethodDelete, "", s.handleClearOwnCart()},
		}
	}
	return []route{
		{http.MethodGet, "", s.handleListCarts()},
		{http.MethodGet, "/:userId", s.handleGetUserCart()},
		{http.MethodDelete, "/:userId", s.handleClearUserCart()},
	}
}

// handleGetOwnCart は自分のカートを返すハンドラを返す。
func (s *Server) handleGetOwnCart() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, ok := identitySubject(c)
		if !ok {
			return
		}
		cart, err := s.store.GetCart(c.Request.Context(), subject)
		if err != nil {
			fail(c, apperror.Internal(err))
			return
		}
		c.JSON(http.StatusOK, newCartResponse(cart))
	}
}

// handlePutCartItem は自分のカートの明細数量を設定するハンドラを返す。
func (s *Server) handlePutCartItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, ok := identitySubject(c)
		if !ok {
			return
		}
		var req cartItemRequest
		if !bindJSON(c, &req) {
			return
		}

		cart, err := s.store.UpsertCartItem(c.Request.Context(), subject, c.Param("productId"), req.Quantity)
		if err != nil {
			fail(c, storeError(err, "商品が見つかりません"))
			return
		}
		c.JSON(http.StatusOK, newCartResponse(cart))
	}
}

// handleDeleteCartItem は自分のカートから明細を削除するハンドラを返す。
func (s *Server) handleDeleteCartItem() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, ok := identitySubject(c)
		if !ok {
			return
		}
		cart, err := s.store.RemoveCartItem(c.Request.Context(), subject, c.Param("productId"))
		if err != nil {
			fail(c, storeError(err, "カートに商品がありません"))
			return
		}
		c.JSON(http.StatusOK, newCartResponse(cart))
	}
}

// handleClearOwnCart は自分のカートを空にするハンドラを返す。
func (s *Server) handleClearOwnCart() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, ok := identitySubject(c)
		if !ok {
			return
		}
		if err := s.store.ClearCart(c.Request.Context(), subject); err != nil {
			fail(c, apperror.Internal(err))
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// handleListCarts は明細を持つ全カートを返すハンドラを返す。
func (s *Server) handleListCarts() gin.HandlerFunc {
	return func(c *gin.Context) {
		carts, err := s.store.ListCarts(c.Request.Context())
		if err != nil {
			fail(c, apperror.Internal(err))
			return
		}
		out := make([]cartResponse, 0, len(carts))
		for i := range carts {
			out = append(out, newCartResponse(&carts[i]))
		}
		c.JSON(http.StatusOK, gin.H{"carts": out})
	}
}

// handleGetUserCart は指定ユーザーのカートを返すハンドラを返す。
func (s *Server) handleGetUserCart() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := c.Param("userId")
		if _, err := s.store.GetUserByID(ctx, userID); err != nil {
			fail(c, storeError(err, "ユーザーが見つかりません"))
			return
		}
		cart, err := s.store.GetCart(ctx, userID)
		if err != nil {
			fail(c, apperror.Internal(err))
			return
		}
		c.JSON(http.StatusOK, newCartResponse(cart))
	}
}

// handleClearUserCart は指定ユーザーのカートを空にするハンドラを返す。
func (s *Server) handleClearUserCart() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := c.Param("userId")
		if _, err := s.store.GetUserByID(ctx, userID); err != nil {
			fail(c, storeError(err, "ユーザーが見つかりません"))
			return
		}
		if err := s.store.ClearCart(ctx, userID); err != nil {
			fail(c, apperror.Internal(err))
			return
		}
		c.Status(http.StatusNoContent)
	}
}
