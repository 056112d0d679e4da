package store

import (
	"context"
	"fmt"
	"time"
)

// CartItem はカートの明細を表す。
type CartItem struct {
	// ProductID は商品ID。
	ProductID string
	// ProductName は現在の商品名。
	ProductName string
	// UnitPriceCents は現在の単価。
	UnitPriceCents int64
	// Quantity は数量。
	Quantity int
	// UpdatedAt は明細の更新日時。
	UpdatedAt time.Time
}

// Cart はユーザーのカートを表す。
type Cart struct {
	// UserID はカートの所有者。
	UserID string
	// Items は明細。商品名順に並ぶ。
	Items []CartItem
}

// TotalCents はカートの合計金額を返す。
func (c *Cart) TotalCents() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPriceCents * int64(item.Quantity)
	}
	return total
}

const cartQuery = `
SELECT c.user_id, c.product_id, p.name, p.price_cents, c.quantity, c.updated_at
FROM cart_items c
JOIN products p ON p.id = c.product_id`

// GetCart はユーザーのカートを返す。明細がない場合も空のカートを返す。
func (s *Store) GetCart(ctx context.Context, userID string) (*Cart, error) {
	carts, err := s.queryCarts(ctx, cartQuery+` WHERE c.user_id = ? ORDER BY p.name, c.product_id`, userID)
	if err != nil {
		return nil, err
	}
	if len(carts) == 0 {
		return &Cart{UserID: userID, Items: []CartItem{}}, nil
	}
	return &carts[0], nil
}

// ListCarts は明細を持つ全ユーザーのカートを返す。
func (s *Store) ListCarts(ctx context.Context) ([]Cart, error) {
	return s.queryCarts(ctx, cartQuery+` ORDER BY c.user_id, p.name, c.product_id`)
}

// UpsertCartItem はカートの明細数量を設定する。
// 商品またはユーザーが存在しない場合はErrNotFoundを返す。
func (s *Store) UpsertCartItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO cart_items (user_id, product_id, quantity, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = excluded.quantity, updated_at = excluded.updated_at`,
		userID, productID, quantity, s.timestamp())
	if err != nil {
		if isConstraintError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("カート明細の更新に失敗: %w", err)
	}
	return s.GetCart(ctx, userID)
}

// RemoveCartItem はカートから明細を削除する。
func (s *Store) RemoveCartItem(ctx context.Context, userID, productID string) (*Cart, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ? AND product_id = ?`, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("カート明細の削除に失敗: %w", err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// ClearCart はユーザーのカートを空にする。
func (s *Store) ClearCart(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("カートの削除に失敗: %w", err)
	}
	return nil
}

// queryCarts はカート明細をユーザーごとにまとめて返す。queryはuser_id順に並べること。
func (s *Store) queryCarts(ctx context.Context, query string, args ...any) ([]Cart, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("カートの取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var carts []Cart
	for rows.Next() {
		var (
			userID    string
			item      CartItem
			updatedAt string
		)
		if err := rows.Scan(&userID, &item.ProductID, &item.ProductName, &item.UnitPriceCents, &item.Quantity, &updatedAt); err != nil {
			return nil, fmt.Errorf("カート明細の読み取りに失敗: %w", err)
		}
		if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}

		if n := len(carts); n == 0 || carts[n-1].UserID != userID {
			carts = append(carts, Cart{UserID: userID})
		}
		last := &carts[len(carts)-1]
		last.Items = append(last.Items, item)
	}
	return carts, rows.Err()
}
