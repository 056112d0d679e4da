package store

import (
	"context"
	"fmt"

	"github.com/nao1215/storefront/pkg/event"
)

// defaultEventLimit はListEventsで件数が指定されなかった場合の上限。
const defaultEventLimit = 100

// AppendEvent は監査イベントを記録する。
func (s *Store) AppendEvent(ctx context.Context, e *event.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, aggregate_id, aggregate_type, event_type, actor_id, data, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AggregateID, string(e.AggregateType), string(e.EventType), e.ActorID, string(e.Data), formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("イベントの記録に失敗: %w", err)
	}
	return nil
}

// Record はイベントを生成して記録する。
func (s *Store) Record(ctx context.Context, aggregateID string, aggregateType event.AggregateType, eventType event.Type, actorID string, data any) error {
	e, err := event.New(aggregateID, aggregateType, eventType, actorID, data)
	if err != nil {
		return err
	}
	e.CreatedAt = s.now().UTC()
	return s.AppendEvent(ctx, e)
}

// ListEvents は監査イベントを新しい順に最大limit件返す。limitが0以下の場合は既定値を使う。
func (s *Store) ListEvents(ctx context.Context, limit int) ([]event.Event, error) {
	if limit <= 0 {
		limit = defaultEventLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, actor_id, data, created_at
FROM audit_events ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := []event.Event{}
	for rows.Next() {
		var (
			e                        event.Event
			aggType, evType, payload string
			createdAt                string
		)
		if err := rows.Scan(&e.ID, &e.AggregateID, &aggType, &evType, &e.ActorID, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("イベントの読み取りに失敗: %w", err)
		}
		e.AggregateType = event.AggregateType(aggType)
		e.EventType = event.Type(evType)
		e.Data = []byte(payload)
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
