// Package revocation はログアウト等で失効させたトークンIDを管理する。
//
// Redisが設定されている場合はRedisを、そうでない場合はプロセス内の
// メモリストアを使用する。トークン検証ミドルウェアは読み取りのみを行う。
package revocation

import (
	"context"
	"time"
)

// Store は失効済みトークンIDの保存先。
type Store interface {
	// Revoke はトークンIDをuntilまで失効扱いにする。
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	// IsRevoked はトークンIDが失効済みかを返す。
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// Ping は保存先への疎通を確認する。
	Ping(ctx context.Context) error
	// Close は保持しているリソースを解放する。
	Close() error
}

// Config は失効ストアの接続設定。
type Config struct {
	// RedisAddr はRedisのアドレス。空の場合はメモリストアを使う。
	RedisAddr string
	// RedisPassword はRedisのパスワード。
	RedisPassword string
	// RedisDB はRedisのDB番号。
	RedisDB int
}

// New は設定に応じた失効ストアを生成する。
func New(cfg Config) (Store, error) {
	if cfg.RedisAddr == "" {
		return NewMemory(time.Now), nil
	}
	return NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, time.Now)
}
