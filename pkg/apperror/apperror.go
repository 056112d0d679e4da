// Package apperror はAPI全体で共有するエラー分類とレスポンス形式を提供する。
//
// ゲート（トークン検証・ロール検証）やハンドラで発生したエラーはすべて
// *Error に正規化され、ErrorHandlerミドルウェアが唯一の出口として
// クライアント向けのJSONエンベロープを組み立てる。
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind はエラーの分類を表す。HTTPステータスコードの決定に使用する。
type Kind int

const (
	// KindInternal は予期しない内部エラーを表す。
	KindInternal Kind = iota
	// KindUnauthenticated は認証情報が無い、または無効であることを表す。
	KindUnauthenticated
	// KindForbidden は認証済みだが権限が不足していることを表す。
	KindForbidden
	// KindNotFound はルートまたはリソースが存在しないことを表す。
	KindNotFound
	// KindValidation は入力値が不正であることを表す。
	KindValidation
	// KindConflict は一意制約違反などの競合を表す。
	KindConflict
)

// String はKindの名前を返す。ログ出力に使用する。
func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Status はKindに対応するHTTPステータスコードを返す。
func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code はクライアントがエラーを機械的に判別するための安定した識別子。
type Code string

const (
	// CodeMissingToken はトークンが提示されていないことを表す。
	CodeMissingToken Code = "MISSING_TOKEN"
	// CodeInvalidToken はトークンの形式または署名が不正であることを表す。
	CodeInvalidToken Code = "INVALID_TOKEN"
	// CodeExpiredToken はトークンの有効期限が切れていることを表す。
	CodeExpiredToken Code = "EXPIRED_TOKEN"
	// CodeInvalidCredentials はログイン時の資格情報が一致しないことを表す。
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	// CodeForbidden はロールが不足していることを表す。
	CodeForbidden Code = "FORBIDDEN"
	// CodeNotFound はリソースが存在しないことを表す。
	CodeNotFound Code = "NOT_FOUND"
	// CodeRouteNotFound は一致するルートが存在しないことを表す。
	CodeRouteNotFound Code = "ROUTE_NOT_FOUND"
	// CodeValidationFailed は入力検証に失敗したことを表す。
	CodeValidationFailed Code = "VALIDATION_FAILED"
	// CodeConflict はリソースの競合を表す。
	CodeConflict Code = "CONFLICT"
	// CodeTokenCheckUnavailable はトークン失効確認ストアに到達できなかったことを表す。
	CodeTokenCheckUnavailable Code = "TOKEN_CHECK_UNAVAILABLE"
	// CodeInternal は内部エラーを表す。
	CodeInternal Code = "INTERNAL_ERROR"
)

// FieldError は入力検証に失敗したフィールドの情報。
type FieldError struct {
	// Field はJSON上のフィールド名。
	Field string `json:"field"`
	// Reason は失敗理由。
	Reason string `json:"reason"`
}

// Error はアプリケーション全体で扱う構造化エラー。
type Error struct {
	// Kind はエラーの分類。
	Kind Kind
	// Code はクライアント向けの識別子。
	Code Code
	// Message はクライアントに返す安全なメッセージ。
	Message string
	// Details は入力検証エラーの詳細。検証エラー以外では空。
	Details []FieldError
	// Err は原因となったエラー。ログにのみ出力し、クライアントには返さない。
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// Status はHTTPステータスコードを返す。
func (e *Error) Status() int {
	return e.Kind.Status()
}

// WithCause は原因エラーを設定したコピーを返す。
func (e *Error) WithCause(err error) *Error {
	cp := *e
	cp.Err = err
	return &cp
}

// Unauthenticated は認証エラーを生成する。
func Unauthenticated(code Code, message string) *Error {
	return &Error{Kind: KindUnauthenticated, Code: code, Message: message}
}

// Forbidden は権限不足エラーを生成する。
// メッセージは固定で、どのロールなら許可されるかは含めない。
func Forbidden() *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: "このリソースへのアクセス権限がありません"}
}

// NotFound はリソース未検出エラーを生成する。
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: message}
}

// RouteNotFound はルート未検出エラーを生成する。
func RouteNotFound() *Error {
	return &Error{Kind: KindNotFound, Code: CodeRouteNotFound, Message: "リソースが見つかりません"}
}

// Validation は入力検証エラーを生成する。
func Validation(message string, details ...FieldError) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidationFailed, Message: message, Details: details}
}

// Conflict は競合エラーを生成する。
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Code: CodeConflict, Message: message}
}

// Internal は内部エラーを生成する。causeはログにのみ出力される。
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "内部サーバーエラーが発生しました", Err: cause}
}

// As はerrから*Errorを取り出す。
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
