package revocation

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory(t *testing.T) {
	t.Parallel()

	t.Run("失効したトークンは期限まで失効扱いになること", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		m := NewMemory(func() time.Time { return now })
		ctx := context.Background()

		require.NoError(t, m.Revoke(ctx, "jti-1", now.Add(time.Minute)))

		revoked, err := m.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.True(t, revoked)

		revoked, err = m.IsRevoked(ctx, "jti-2")
		require.NoError(t, err)
		assert.False(t, revoked)

		now = now.Add(2 * time.Minute)
		revoked, err = m.IsRevoked(ctx, "jti-1")
		require.NoError(t, err)
		assert.False(t, revoked, "期限を過ぎたら失効扱いは解除される")
	})

	t.Run("既に期限切れのトークンは登録されないこと", func(t *testing.T) {
		t.Parallel()

		now := time.Now()
		m := NewMemory(func() time.Time { return now })
		require.NoError(t, m.Revoke(context.Background(), "old", now.Add(-time.Second)))
		assert.Empty(t, m.entries)
	})

	t.Run("キャンセル済みコンテキストではエラーを返すこと", func(t *testing.T) {
		t.Parallel()

		m := NewMemory(nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := m.IsRevoked(ctx, "jti")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Pingはコンテキストが有効なら成功すること", func(t *testing.T) {
		t.Parallel()

		m := NewMemory(nil)
		require.NoError(t, m.Ping(context.Background()))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, m.Ping(ctx), context.Canceled)
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	s, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = New(Config{RedisAddr: "127.0.0.1:0"})
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, s)
	assert.NoError(t, s.Close())
}

// TestRedis は実際のRedisに対して動作を確認する。
// STOREFRONT_TEST_REDIS_ADDR が設定されていない場合はスキップする。
func TestRedis(t *testing.T) {
	addr := os.Getenv("STOREFRONT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STOREFRONT_TEST_REDIS_ADDR が未設定のためスキップ")
	}

	r, err := NewRedis(addr, "", 0, time.Now)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Ping(ctx))

	id := uuid.New().String()
	require.NoError(t, r.Revoke(ctx, id, time.Now().Add(time.Minute)))

	revoked, err := r.IsRevoked(ctx, id)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = r.IsRevoked(ctx, uuid.New().String())
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedis_Unreachable(t *testing.T) {
	t.Parallel()

	// 到達不能なアドレスではタイムアウト内にエラーを返すこと
	r, err := NewRedis("127.0.0.1:1", "", 0, time.Now)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	_, err = r.IsRevoked(ctx, "jti")
	assert.Error(t, err)
}
