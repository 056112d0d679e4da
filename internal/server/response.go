package server

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/internal/store"
	"github.com/nao1215/storefront/pkg/apperror"
	"github.com/nao1215/storefront/pkg/event"
	"github.com/nao1215/storefront/pkg/middleware"
)

// userResponse はユーザーのレスポンス形式。パスワードハッシュは含めない。
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserResponse(u *store.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Roles:     u.Roles.Strings(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// productResponse は商品のレスポンス形式。
type productResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newProductResponse(p *store.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		PriceCents:  p.PriceCents,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func newProductResponses(products []store.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for i := range products {
		out = append(out, newProductResponse(&products[i]))
	}
	return out
}

// cartItemResponse はカート明細のレスポンス形式。
type cartItemResponse struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

// cartResponse はカートのレスポンス形式。
type cartResponse struct {
	UserID     string             `json:"user_id"`
	Items      []cartItemResponse `json:"items"`
	TotalCents int64              `json:"total_cents"`
}

func newCartResponse(c *store.Cart) cartResponse {
	items := make([]cartItemResponse, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, cartItemResponse{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
		})
	}
	return cartResponse{UserID: c.UserID, Items: items, TotalCents: c.TotalCents()}
}

// orderItemResponse は注文明細のレスポンス形式。
type orderItemResponse struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

// orderResponse は注文のレスポンス形式。
type orderResponse struct {
	ID         string              `json:"id"`
	UserID     string              `json:"user_id"`
	Status     string              `json:"status"`
	TotalCents int64               `json:"total_cents"`
	Items      []orderItemResponse `json:"items"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

func newOrderResponse(o *store.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
		})
	}
	return orderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		Status:     string(o.Status),
		TotalCents: o.TotalCents,
		Items:      items,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}

func newOrderResponses(orders []store.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderResponse(&orders[i]))
	}
	return out
}

// storeError は永続化層のエラーをアプリケーションエラーに変換する。
// notFoundはErrNotFoundの場合に返すメッセージ。
func storeError(err error, notFound string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperror.NotFound(notFound)
	case errors.Is(err, store.ErrConflict):
		return apperror.Conflict("既に登録されています")
	case errors.Is(err, store.ErrEmptyCart):
		return apperror.Validation("カートが空です")
	case errors.Is(err, store.ErrInsufficientStock):
		return apperror.Conflict("在庫が不足している商品があります").WithCause(err)
	case errors.Is(err, store.ErrInvalidTransition):
		return apperror.Validation("この注文のステータスは変更できません").WithCause(err)
	default:
		return apperror.Internal(err)
	}
}

// fail はエラーをErrorHandlerに渡して処理を中断する。
func fail(c *gin.Context, err error) {
	middleware.Abort(c, err)
}

// bindJSON はリクエストボディを読み取る。失敗した場合はエラーを積んでfalseを返す。
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, err)
		return false
	}
	return true
}

// record は監査イベントを記録する。記録の失敗はリクエストを失敗させずにログに残す。
func (s *Server) record(ctx context.Context, aggregateID string, aggregateType event.AggregateType, eventType event.Type, actorID string, data any) {
	if err := s.store.Record(ctx, aggregateID, aggregateType, eventType, actorID, data); err != nil {
		s.logger.ErrorContext(ctx, "監査イベントの記録に失敗しました",
			"event_type", string(eventType),
			"aggregate_id", aggregateID,
			"error", err,
		)
	}
}

// identitySubject はVerifyTokenが設定した主体のIDを返す。
// ゲートを通過したルートでのみ呼び出す。
func identitySubject(c *gin.Context) (string, bool) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		fail(c, apperror.Internal(errors.New("認証主体がコンテキストにありません")))
		return "", false
	}
	return identity.Subject, true
}
