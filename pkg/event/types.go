// Package event はユーザー操作や注文状態の変化を記録する監査イベントを定義する。
//
// イベントは認可を通過した後のハンドラからのみ記録される。
// 認可ゲート自体はイベントを書き込まない。
package event

import (
	"encoding/json"
	"time"
)

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeUser はユーザーエンティティを表す。
	AggregateTypeUser AggregateType = "User"
	// AggregateTypeOrder は注文エンティティを表す。
	AggregateTypeOrder AggregateType = "Order"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeUserRegistered はユーザーが登録されたことを表す。
	TypeUserRegistered Type = "UserRegistered"
	// TypeUserLoggedIn はログインに成功したことを表す。
	TypeUserLoggedIn Type = "UserLoggedIn"
	// TypeUserLoginFailed はログインに失敗したことを表す。
	TypeUserLoginFailed Type = "UserLoginFailed"
	// TypeUserLoggedOut はログアウトしたことを表す。
	TypeUserLoggedOut Type = "UserLoggedOut"
	// TypeUserRolesChanged は管理者がユーザーのロールを変更したことを表す。
	TypeUserRolesChanged Type = "UserRolesChanged"
	// TypeUserDeleted は管理者がユーザーを削除したことを表す。
	TypeUserDeleted Type = "UserDeleted"

	// TypeOrderPlaced は注文が確定したことを表す。
	TypeOrderPlaced Type = "OrderPlaced"
	// TypeOrderStatusChanged は注文ステータスが変更されたことを表す。
	TypeOrderStatusChanged Type = "OrderStatusChanged"
)

// Event は不変の監査イベントレコードを表す。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// ActorID は操作を行ったユーザーのID。未認証の操作では空。
	ActorID string `json:"actor_id,omitempty"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// UserRegisteredData はUserRegisteredイベントのデータ。
type UserRegisteredData struct {
	// Email は登録されたメールアドレス。
	Email string `json:"email"`
	// Roles は登録時に付与されたロール。
	Roles []string `json:"roles"`
}

// UserLoginData はUserLoggedIn/UserLoginFailedイベントのデータ。
type UserLoginData struct {
	// Email はログインに使われたメールアドレス。
	Email string `json:"email"`
	// ClientIP はリクエスト元のIPアドレス。
	ClientIP string `json:"client_ip"`
}

// UserRolesChangedData はUserRolesChangedイベントのデータ。
type UserRolesChangedData struct {
	// Before は変更前のロール。
	Before []string `json:"before"`
	// After は変更後のロール。
	After []string `json:"after"`
}

// OrderPlacedData はOrderPlacedイベントのデータ。
type OrderPlacedData struct {
	// ItemCount は注文に含まれる明細の数。
	ItemCount int `json:"item_count"`
	// TotalCents は注文合計（最小通貨単位）。
	TotalCents int64 `json:"total_cents"`
}

// OrderStatusChangedData はOrderStatusChangedイベントのデータ。
type OrderStatusChangedData struct {
	// From は変更前のステータス。
	From string `json:"from"`
	// To は変更後のステータス。
	To string `json:"to"`
}
