package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownType は定義されていないイベント種別が渡されたことを表す。
var ErrUnknownType = errors.New("未定義のイベント種別です")

// knownTypes は記録できるイベント種別と対象エンティティの組。
var knownTypes = map[Type]AggregateType{
	TypeUserRegistered:     AggregateTypeUser,
	TypeUserLoggedIn:       AggregateTypeUser,
	TypeUserLoginFailed:    AggregateTypeUser,
	TypeUserLoggedOut:      AggregateTypeUser,
	TypeUserRolesChanged:   AggregateTypeUser,
	TypeUserDeleted:        AggregateTypeUser,
	TypeOrderPlaced:        AggregateTypeOrder,
	TypeOrderStatusChanged: AggregateTypeOrder,
}

// Valid はtが定義済みのイベント種別かを返す。
func (t Type) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// New は監査イベントを生成する。
// dataはJSONにシリアライズされる。nilの場合は空のオブジェクトになる。
// 種別と対象エンティティの組が定義と異なる場合はErrUnknownTypeを返す。
func New(aggregateID string, aggregateType AggregateType, eventType Type, actorID string, data any) (*Event, error) {
	if want, ok := knownTypes[eventType]; !ok || want != aggregateType {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownType, aggregateType, eventType)
	}

	payload := json.RawMessage(`{}`)
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("イベントデータのシリアライズに失敗: %w", err)
		}
		payload = b
	}

	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		ActorID:       actorID,
		Data:          payload,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// DecodeData はイベントのDataを型Tとして取り出す。
// eventTypeがeの種別と一致しない場合はエラーを返す。
func DecodeData[T any](e *Event, eventType Type) (*T, error) {
	if e.EventType != eventType {
		return nil, fmt.Errorf("イベント種別が一致しません: got=%s, want=%s", e.EventType, eventType)
	}
	var data T
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("イベントデータのデシリアライズに失敗: %w", err)
	}
	return &data, nil
}
