package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/internal/store"
	"github.com/nao1215/storefront/pkg/apperror"
	"github.com/nao1215/storefront/pkg/event"
)

// updateOrderStatusRequest は注文ステータス変更のリクエスト。
type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending paid shipped delivered cancelled"`
}

// orderRoutes は注文リソースのルートを返す。
// 顧客は自分の注文の作成・閲覧・キャンセル、管理者は全注文の閲覧とステータス変更ができる。
func (s *Server) orderRoutes(kind scopeKind) []route {
	if kind == scopeCustomer {
		return []route{
			{http.MethodGet, "", s.handleListOwnOrders()},
			{http.MethodPost, "", s.handlePlaceOrder()},
			{http.MethodGet, "/:orderId", s.handleGetOwnOrder()},
			{http.MethodPost, "/:orderId/cancel", s.handleCancelOwnOrder()},
		}
	}
	return []route{
		{http.MethodGet, "", s.handleListOrders()},
		{http.MethodGet, "/:orderId", s.handleGetOrder()},
		{http.MethodPatch, "/:orderId/status", s.handleUpdateOrderStatus()},
	}
}

// handleListOwnOrders は自分の注文を返すハンドラを返す。
func (s *Server) handleListOwnOrders() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, ok := identitySubject(c)
		if !ok {
			return
		}
		orders, err := s.store.ListOrders(c.Request.Context(), subject)
		if err != nil {
			fail(c, apperror.Internal(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": newOrderResponses(orders)})
	}
}

// handlePlaceOrder は自分のカートから注文を作成するハンドラを返す。
func (s *Server) handlePlaceOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, ok := identitySubject(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		order, err := s.store.PlaceOrder(ctx, subject)
		if err != nil {
			fail(c, storeError(err, "注文が見つかりません"))
			return
		}

		s.record(ctx, order.ID, event.AggregateTypeOrder, event.TypeOrderPlaced, subject,
			event.OrderPlacedData{ItemCount: len(order.Items), TotalCents: order.TotalCents})
		c.JSON(http.StatusCreated, newOrderResponse(order))
	}
}

// handleGetOwnOrder は自分の注文を返すハンドラを返す。
// 他人の注文は存在しない注文と同じ応答にする。
func (s *Server) handleGetOwnOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, ok := identitySubject(c)
		if !ok {
			return
		}
		order, ok := s.ownOrder(c, subject)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, newOrderResponse(order))
	}
}

// handleCancelOwnOrder は自分の注文をキャンセルするハンドラを返す。
func (s *Server) handleCancelOwnOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, ok := identitySubject(c)
		if !ok {
			return
		}
		if _, ok := s.ownOrder(c, subject); !ok {
			return
		}
		s.changeOrderStatus(c, subject, c.Param("orderId"), store.OrderStatusCancelled)
	}
}

// handleListOrders は全注文を返すハンドラを返す。user_idクエリで絞り込める。
func (s *Server) handleListOrders() gin.HandlerFunc {
	return func(c *gin.Context) {
		orders, err := s.store.ListOrders(c.Request.Context(), c.Query("user_id"))
		if err != nil {
			fail(c, apperror.Internal(err))
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": newOrderResponses(orders)})
	}
}

// handleGetOrder は指定の注文を返すハンドラを返す。
func (s *Server) handleGetOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := s.store.GetOrder(c.Request.Context(), c.Param("orderId"))
		if err != nil {
			fail(c, storeError(err, "注文が見つかりません"))
			return
		}
		c.JSON(http.StatusOK, newOrderResponse(order))
	}
}

// handleUpdateOrderStatus は注文ステータスを変更するハンドラを返す。
func (s *Server) handleUpdateOrderStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := identitySubject(c)
		if !ok {
			return
		}
		var req updateOrderStatusRequest
		if !bindJSON(c, &req) {
			return
		}
		s.changeOrderStatus(c, actor, c.Param("orderId"), store.OrderStatus(req.Status))
	}
}

// ownOrder は注文を取得し、subjectの注文でなければNotFoundとして中断する。
func (s *Server) ownOrder(c *gin.Context, subject string) (*store.Order, bool) {
	order, err := s.store.GetOrder(c.Request.Context(), c.Param("orderId"))
	if err == nil && order.UserID != subject {
		err = store.ErrNotFound
	}
	if err != nil {
		fail(c, storeError(err, "注文が見つかりません"))
		return nil, false
	}
	return order, true
}

// changeOrderStatus は注文ステータスを変更し、イベントを記録してレスポンスを返す。
func (s *Server) changeOrderStatus(c *gin.Context, actor, orderID string, next store.OrderStatus) {
	ctx := c.Request.Context()

	prev, order, err := s.store.UpdateOrderStatus(ctx, orderID, next)
	if err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			fail(c, apperror.Validation("この注文のステータスは変更できません",
				apperror.FieldError{Field: "status", Reason: string(next) + "には変更できません"}).WithCause(err))
			return
		}
		fail(c, storeError(err, "注文が見つかりません"))
		return
	}

	s.record(ctx, order.ID, event.AggregateTypeOrder, event.TypeOrderStatusChanged, actor,
		event.OrderStatusChangedData{From: string(prev), To: string(order.Status)})
	c.JSON(http.StatusOK, newOrderResponse(order))
}
