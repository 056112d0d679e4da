package store

import (
	"context"
	"io"
	"log/slog"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/storefront/pkg/auth"
	"github.com/nao1215/storefront/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore はマイグレーション済みのインメモリStoreを返す。
// 時刻は呼び出しごとに1秒ずつ進む。
func newTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	s, err := Open(ctx, ":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var tick int
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	_, err = s.Migrate(ctx)
	require.NoError(t, err)
	return s
}

func createUser(t *testing.T, s *Store, email string, roles ...auth.Role) *User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), NewUserParams{
		Email:        email,
		Name:         "テストユーザー",
		PasswordHash: "hash",
		Roles:        auth.NewRoleSet(roles...),
	})
	require.NoError(t, err)
	return u
}

func createProduct(t *testing.T, s *Store, name string, price int64, stock int) *Product {
	t.Helper()
	p, err := s.CreateProduct(context.Background(), ProductParams{Name: name, PriceCents: price, Stock: stock})
	require.NoError(t, err)
	return p
}

func TestOpen_File(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storefront.db")

	s, err := Open(ctx, path, nil)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	n, err := s.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// 2回目は何も適用しない
	n, err = s.Migrate(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.NoError(t, s.Ping(ctx))
}

func TestUsers(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	t.Run("作成と取得", func(t *testing.T) {
		u := createUser(t, s, "  Alice@Example.com ", auth.RoleCustomer)
		assert.Equal(t, "alice@example.com", u.Email)
		assert.True(t, u.Roles.Has(auth.RoleCustomer))
		assert.False(t, u.Roles.Has(auth.RoleAdmin))

		got, err := s.GetUserByEmail(ctx, "ALICE@example.com")
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)

		got, err = s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Email, got.Email)
	})

	t.Run("メールアドレスの重複はErrConflict", func(t *testing.T) {
		createUser(t, s, "dup@example.com", auth.RoleCustomer)
		_, err := s.CreateUser(ctx, NewUserParams{Email: "DUP@example.com", Name: "x", PasswordHash: "h"})
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("存在しないユーザーはErrNotFound", func(t *testing.T) {
		_, err := s.GetUserByID(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.UpdateUserName(ctx, "missing", "name")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteUser(ctx, "missing"), ErrNotFound)
		assert.ErrorIs(t, s.UpdateUserPassword(ctx, "missing", "h"), ErrNotFound)
	})

	t.Run("更新", func(t *testing.T) {
		u := createUser(t, s, "bob@example.com", auth.RoleCustomer)

		renamed, err := s.UpdateUserName(ctx, u.ID, "ボブ")
		require.NoError(t, err)
		assert.Equal(t, "ボブ", renamed.Name)
		assert.True(t, renamed.UpdatedAt.After(u.UpdatedAt))

		promoted, err := s.UpdateUserRoles(ctx, u.ID, auth.NewRoleSet(auth.RoleCustomer, auth.RoleAdmin))
		require.NoError(t, err)
		assert.Equal(t, []string{"admin", "customer"}, promoted.Roles.Strings())

		require.NoError(t, s.UpdateUserPassword(ctx, u.ID, "new-hash"))
		got, err := s.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "new-hash", got.PasswordHash)
	})

	t.Run("一覧と削除", func(t *testing.T) {
		u := createUser(t, s, "carol@example.com")

		users, err := s.ListUsers(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, users)
		assert.Zero(t, u.Roles.Len())

		require.NoError(t, s.DeleteUser(ctx, u.ID))
		_, err = s.GetUserByID(ctx, u.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestProducts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	b := createProduct(t, s, "B商品", 200, 5)
	a := createProduct(t, s, "A商品", 100, 3)

	products, err := s.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, a.ID, products[0].ID)
	assert.Equal(t, b.ID, products[1].ID)

	updated, err := s.UpdateProduct(ctx, a.ID, ProductParams{Name: "A改", Description: "説明", PriceCents: 150, Stock: 10})
	require.NoError(t, err)
	assert.Equal(t, "A改", updated.Name)
	assert.Equal(t, int64(150), updated.PriceCents)
	assert.Equal(t, 10, updated.Stock)

	_, err = s.UpdateProduct(ctx, "missing", ProductParams{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteProduct(ctx, b.ID))
	_, err = s.GetProduct(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteProduct(ctx, b.ID), ErrNotFound)
}

func TestCarts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	u := createUser(t, s, "cart@example.com", auth.RoleCustomer)
	p1 := createProduct(t, s, "りんご", 120, 10)
	p2 := createProduct(t, s, "みかん", 80, 10)

	cart, err := s.GetCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = s.UpsertCartItem(ctx, u.ID, p1.ID, 2)
	require.NoError(t, err)
	cart, err = s.UpsertCartItem(ctx, u.ID, p2.ID, 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, int64(120*2+80), cart.TotalCents())

	// 同じ商品は数量を上書きする
	cart, err = s.UpsertCartItem(ctx, u.ID, p1.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(120*5+80), cart.TotalCents())

	_, err = s.UpsertCartItem(ctx, u.ID, "missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	carts, err := s.ListCarts(ctx)
	require.NoError(t, err)
	require.Len(t, carts, 1)
	assert.Equal(t, u.ID, carts[0].UserID)

	cart, err = s.RemoveCartItem(ctx, u.ID, p2.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	_, err = s.RemoveCartItem(ctx, u.ID, p2.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.ClearCart(ctx, u.ID))
	cart, err = s.GetCart(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestPlaceOrder(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("カートから注文を作成し在庫を減らす", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t)
		u := createUser(t, s, "order@example.com", auth.RoleCustomer)
		p := createProduct(t, s, "ノート", 300, 4)

		_, err := s.UpsertCartItem(ctx, u.ID, p.ID, 3)
		require.NoError(t, err)

		o, err := s.PlaceOrder(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, OrderStatusPending, o.Status)
		assert.Equal(t, int64(900), o.TotalCents)
		require.Len(t, o.Items, 1)
		assert.Equal(t, "ノート", o.Items[0].ProductName)

		got, err := s.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Stock)

		cart, err := s.GetCart(ctx, u.ID)
		require.NoError(t, err)
		assert.Empty(t, cart.Items)

		mine, err := s.ListOrders(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Len(t, mine[0].Items, 1)
	})

	t.Run("空のカートはErrEmptyCart", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t)
		u := createUser(t, s, "empty@example.com", auth.RoleCustomer)

		_, err := s.PlaceOrder(ctx, u.ID)
		assert.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("在庫不足は何も変更しない", func(t *testing.T) {
		t.Parallel()
		s := newTestStore(t)
		u := createUser(t, s, "short@example.com", auth.RoleCustomer)
		p := createProduct(t, s, "限定品", 1000, 1)

		_, err := s.UpsertCartItem(ctx, u.ID, p.ID, 2)
		require.NoError(t, err)

		_, err = s.PlaceOrder(ctx, u.ID)
		assert.ErrorIs(t, err, ErrInsufficientStock)

		got, err := s.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Stock)

		orders, err := s.ListOrders(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

// newFileStore はファイル上のマイグレーション済みStoreを返す。
// 複数の接続から同時に書き込む場合の検証に使う。
func newFileStore(t *testing.T) *Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "storefront.db")
	s, err := Open(context.Background(), path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	_, err = s.Migrate(context.Background())
	require.NoError(t, err)
	return s
}

func TestPlaceOrder_Concurrent(t *testing.T) {
	t.Parallel()

	const buyers = 8
	ctx := context.Background()

	t.Run("別々の商品を同時に注文してもすべて成功する", func(t *testing.T) {
		t.Parallel()
		s := newFileStore(t)

		users := make([]*User, buyers)
		for i := range users {
			users[i] = createUser(t, s, fmt.Sprintf("buyer%d@example.com", i), auth.RoleCustomer)
			p := createProduct(t, s, fmt.Sprintf("商品%d", i), 100, 1)
			_, err := s.UpsertCartItem(ctx, users[i].ID, p.ID, 1)
			require.NoError(t, err)
		}

		errs := make([]error, buyers)
		var wg sync.WaitGroup
		for i := range users {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = s.PlaceOrder(ctx, users[i].ID)
			}(i)
		}
		wg.Wait()

		for i, err := range errs {
			assert.NoError(t, err, "buyer%d", i)
		}
		orders, err := s.ListOrders(ctx, "")
		require.NoError(t, err)
		assert.Len(t, orders, buyers)
	})

	t.Run("在庫1の商品を奪い合うと1件だけ成功する", func(t *testing.T) {
		t.Parallel()
		s := newFileStore(t)
		p := createProduct(t, s, "最後の1個", 500, 1)

		users := make([]*User, buyers)
		for i := range users {
			users[i] = createUser(t, s, fmt.Sprintf("racer%d@example.com", i), auth.RoleCustomer)
			_, err := s.UpsertCartItem(ctx, users[i].ID, p.ID, 1)
			require.NoError(t, err)
		}

		errs := make([]error, buyers)
		var wg sync.WaitGroup
		for i := range users {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = s.PlaceOrder(ctx, users[i].ID)
			}(i)
		}
		wg.Wait()

		var placed, short int
		for i, err := range errs {
			switch {
			case err == nil:
				placed++
			case errors.Is(err, ErrInsufficientStock):
				short++
			default:
				t.Errorf("buyer%d: unexpected error: %v", i, err)
			}
		}
		assert.Equal(t, 1, placed)
		assert.Equal(t, buyers-1, short)

		got, err := s.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Stock)
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	u := createUser(t, s, "status@example.com", auth.RoleCustomer)
	p := createProduct(t, s, "ペン", 100, 10)
	_, err := s.UpsertCartItem(ctx, u.ID, p.ID, 1)
	require.NoError(t, err)
	o, err := s.PlaceOrder(ctx, u.ID)
	require.NoError(t, err)

	prev, updated, err := s.UpdateOrderStatus(ctx, o.ID, OrderStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusPending, prev)
	assert.Equal(t, OrderStatusPaid, updated.Status)

	_, _, err = s.UpdateOrderStatus(ctx, o.ID, OrderStatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = s.UpdateOrderStatus(ctx, "missing", OrderStatusPaid)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrderStatus(t *testing.T) {
	t.Parallel()

	assert.True(t, OrderStatusShipped.Valid())
	assert.False(t, OrderStatus("lost").Valid())
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusShipped.CanTransitionTo(OrderStatusCancelled))
}

func TestEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Record(ctx, "user-1", event.AggregateTypeUser, event.TypeUserRegistered, "",
		event.UserRegisteredData{Email: "a@example.com", Roles: []string{"customer"}}))
	require.NoError(t, s.Record(ctx, "order-1", event.AggregateTypeOrder, event.TypeOrderPlaced, "user-1",
		event.OrderPlacedData{ItemCount: 2, TotalCents: 500}))

	events, err := s.ListEvents(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)

	// 新しい順
	assert.Equal(t, event.TypeOrderPlaced, events[0].EventType)
	assert.Equal(t, "user-1", events[0].ActorID)
	data, err := event.DecodeData[event.OrderPlacedData](&events[0], event.TypeOrderPlaced)
	require.NoError(t, err)
	assert.Equal(t, int64(500), data.TotalCents)

	// 種別と対象の組み合わせが不正なイベントは記録しない
	assert.ErrorIs(t, s.Record(ctx, "order-1", event.AggregateTypeOrder, event.TypeUserRegistered, "", nil), event.ErrUnknownType)

	limited, err := s.ListEvents(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
