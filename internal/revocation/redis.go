package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix はRedis上の失効キーの接頭辞。
const keyPrefix = "storefront:revoked:"

// Redis はRedisに失効情報を保持するStore。複数インスタンス間で失効を共有できる。
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

var _ Store = (*Redis)(nil)

// NewRedis は新しいRedisストアを生成する。接続は最初のコマンド実行時に確立される。
func NewRedis(addr, password string, db int, now func() time.Time) (*Redis, error) {
	if addr == "" {
		return nil, errors.New("Redisのアドレスが指定されていません")
	}
	if now == nil {
		now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Redis{client: client, now: now}, nil
}

// Revoke はトークンの残り有効期間だけキーを保持する。
func (r *Redis) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, keyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("トークンの失効登録に失敗: %w", err)
	}
	return nil
}

// IsRevoked はキーの存在で失効済みかを判定する。
func (r *Redis) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("トークンの失効確認に失敗: %w", err)
	}
	return n > 0, nil
}

// Ping はRedisへの疎通を確認する。起動時とヘルスチェックで使う。
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close はRedisクライアントを閉じる。
func (r *Redis) Close() error {
	return r.client.Close()
}
