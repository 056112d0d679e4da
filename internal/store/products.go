package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Product は商品を表す。
type Product struct {
	// ID は商品の一意識別子。
	ID string
	// Name は商品名。
	Name string
	// Description は商品説明。
	Description string
	// PriceCents は価格（最小通貨単位）。
	PriceCents int64
	// Stock は在庫数。
	Stock int
	// CreatedAt は作成日時。
	CreatedAt time.Time
	// UpdatedAt は更新日時。
	UpdatedAt time.Time
}

// ProductParams は商品の作成・更新時の入力。
type ProductParams struct {
	Name        string
	Description string
	PriceCents  int64
	Stock       int
}

const productColumns = "id, name, description, price_cents, stock, created_at, updated_at"

// ListProducts は全商品を名前順に返す。
func (s *Store) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("商品一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// GetProduct はIDで商品を取得する。
func (s *Store) GetProduct(ctx context.Context, id string) (*Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	return scanProduct(row)
}

// CreateProduct は商品を作成する。
func (s *Store) CreateProduct(ctx context.Context, p ProductParams) (*Product, error) {
	now := s.timestamp()
	id := uuid.New().String()

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, p.Name, p.Description, p.PriceCents, p.Stock, now, now); err != nil {
		return nil, fmt.Errorf("商品の作成に失敗: %w", err)
	}
	return s.GetProduct(ctx, id)
}

// UpdateProduct は商品を更新する。
func (s *Store) UpdateProduct(ctx context.Context, id string, p ProductParams) (*Product, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET name = ?, description = ?, price_cents = ?, stock = ?, updated_at = ? WHERE id = ?`,
		p.Name, p.Description, p.PriceCents, p.Stock, s.timestamp(), id)
	if err != nil {
		return nil, fmt.Errorf("商品の更新に失敗: %w", err)
	}
	if err := rowsAffectedOrNotFound(res); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct は商品を削除する。カート内の該当明細も削除される。
func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("商品の削除に失敗: %w", err)
	}
	return rowsAffectedOrNotFound(res)
}

// scanProduct は1行をProductに変換する。
func scanProduct(row rowScanner) (*Product, error) {
	var (
		p                  Product
		createdAt, updated string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Stock, &createdAt, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("商品の読み取りに失敗: %w", err)
	}

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &p, nil
}
