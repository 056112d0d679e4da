package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderStatus は注文の状態を表す。
type OrderStatus string

const (
	// OrderStatusPending は支払い待ち。
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid は支払い済み。
	OrderStatusPaid OrderStatus = "paid"
	// OrderStatusShipped は発送済み。
	OrderStatusShipped OrderStatus = "shipped"
	// OrderStatusDelivered は配達済み。
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCancelled はキャンセル済み。
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderTransitions は許可されるステータス遷移。
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:    {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped: {OrderStatusDelivered},
}

// ErrInvalidTransition は許可されていないステータス遷移を表す。
var ErrInvalidTransition = errors.New("このステータスには変更できません")

// Valid は定義済みのステータスかを返す。
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo はsからnextへ遷移できるかを返す。
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OrderItem は注文明細を表す。
type OrderItem struct {
	ProductID      string
	ProductName    string
	UnitPriceCents int64
	Quantity       int
}

// Order は注文を表す。
type Order struct {
	// ID は注文の一意識別子。
	ID string
	// UserID は注文者。
	UserID string
	// Status は現在のステータス。
	Status OrderStatus
	// TotalCents は合計金額。
	TotalCents int64
	// Items は明細。
	Items []OrderItem
	// CreatedAt は注文日時。
	CreatedAt time.Time
	// UpdatedAt は更新日時。
	UpdatedAt time.Time
}

// PlaceOrder はユーザーのカートから注文を作成する。
// 在庫の減算、注文の作成、カートの削除を1つのトランザクションで行う。
func (s *Store) PlaceOrder(ctx context.Context, userID string) (*Order, error) {
	now := s.timestamp()
	orderID := uuid.New().String()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
SELECT c.product_id, p.name, p.price_cents, c.quantity, p.stock
FROM cart_items c
JOIN products p ON p.id = c.product_id
WHERE c.user_id = ?
ORDER BY p.name, c.product_id`, userID)
		if err != nil {
			return fmt.Errorf("カートの取得に失敗: %w", err)
		}

		var (
			items []OrderItem
			total int64
		)
		for rows.Next() {
			var (
				item  OrderItem
				stock int
			)
			if err := rows.Scan(&item.ProductID, &item.ProductName, &item.UnitPriceCents, &item.Quantity, &stock); err != nil {
				_ = rows.Close()
				return fmt.Errorf("カート明細の読み取りに失敗: %w", err)
			}
			if stock < item.Quantity {
				_ = rows.Close()
				return fmt.Errorf("%w: %s", ErrInsufficientStock, item.ProductName)
			}
			items = append(items, item)
			total += item.UnitPriceCents * int64(item.Quantity)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO orders (id, user_id, status, total_cents, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			orderID, userID, OrderStatusPending, total, now, now); err != nil {
			return fmt.Errorf("注文の作成に失敗: %w", err)
		}
		for _, item := range items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, product_id, product_name, unit_price_cents, quantity) VALUES (?, ?, ?, ?, ?)`,
				orderID, item.ProductID, item.ProductName, item.UnitPriceCents, item.Quantity); err != nil {
				return fmt.Errorf("注文明細の作成に失敗: %w", err)
			}
			res, err := tx.ExecContext(ctx,
				`UPDATE products SET stock = stock - ?, updated_at = ? WHERE id = ? AND stock >= ?`,
				item.Quantity, now, item.ProductID, item.Quantity)
			if err != nil {
				if isConstraintError(err) {
					return fmt.Errorf("%w: %s", ErrInsufficientStock, item.ProductName)
				}
				return fmt.Errorf("在庫の更新に失敗: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("在庫の更新に失敗: %w", err)
			}
			if n == 0 {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, item.ProductName)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("カートの削除に失敗: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}

// ListOrders は注文を新しい順に返す。userIDが空の場合は全ユーザーの注文を返す。
func (s *Store) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	query := `SELECT id, user_id, status, total_cents, created_at, updated_at FROM orders`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("注文一覧の取得に失敗: %w", err)
	}
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		orders = append(orders, *o)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 明細の読み込みは結果セットを閉じてから行う（インメモリDBは接続が1本のため）
	for i := range orders {
		if orders[i].Items, err = s.orderItems(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// GetOrder はIDで注文を取得する。
func (s *Store) GetOrder(ctx context.Context, id string) (*Order, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, status, total_cents, created_at, updated_at FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, err
	}
	if o.Items, err = s.orderItems(ctx, id); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateOrderStatus は注文ステータスを変更し、変更前のステータスと変更後の注文を返す。
// 許可されていない遷移はErrInvalidTransitionになる。
func (s *Store) UpdateOrderStatus(ctx context.Context, id string, next OrderStatus) (OrderStatus, *Order, error) {
	var prev OrderStatus
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		if err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, id).Scan(&current); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("注文の取得に失敗: %w", err)
		}
		prev = OrderStatus(current)
		if !prev.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev, next)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE orders SET status = ?, updated_at = ? WHERE id = ?`, next, s.timestamp(), id); err != nil {
			return fmt.Errorf("注文ステータスの更新に失敗: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return "", nil, err
	}
	return prev, o, nil
}

// orderItems は注文明細を返す。
func (s *Store) orderItems(ctx context.Context, orderID string) ([]OrderItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT product_id, product_name, unit_price_cents, quantity FROM order_items WHERE order_id = ? ORDER BY product_name, product_id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("注文明細の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []OrderItem{}
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.UnitPriceCents, &item.Quantity); err != nil {
			return nil, fmt.Errorf("注文明細の読み取りに失敗: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// scanOrder は1行をOrderに変換する。明細は含まない。
func scanOrder(row rowScanner) (*Order, error) {
	var (
		o                  Order
		status             string
		createdAt, updated string
	)
	if err := row.Scan(&o.ID, &o.UserID, &status, &o.TotalCents, &createdAt, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("注文の読み取りに失敗: %w", err)
	}
	o.Status = OrderStatus(status)

	var err error
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &o, nil
}
