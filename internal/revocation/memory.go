package revocation

import (
	"context"
	"sync"
	"time"
)

// Memory はプロセス内メモリに失効情報を保持するStore。
// 単一インスタンス構成や開発環境で使用する。
type Memory struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory は新しいMemoryストアを生成する。
func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		entries: make(map[string]time.Time),
		now:     now,
	}
}

// Revoke はトークンIDを失効扱いにする。期限を過ぎたエントリはついでに掃除する。
func (m *Memory) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, id)
		}
	}
	if until.After(now) {
		m.entries[tokenID] = until
	}
	return nil
}

// IsRevoked はトークンIDが失効済みかを返す。
func (m *Memory) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !exp.After(m.now()) {
		delete(m.entries, tokenID)
		return false, nil
	}
	return true, nil
}

// Ping はコンテキストが有効であれば常に成功する。
func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close は何もしない。
func (m *Memory) Close() error {
	return nil
}
