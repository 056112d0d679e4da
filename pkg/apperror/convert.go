package apperror

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// From は任意のエラーを*Errorに正規化する。
// 既知の形式（*Error、validatorの検証エラー、JSONデコードエラー）以外は
// すべて内部エラーとして扱い、詳細をクライアントに漏らさない。
func From(err error) *Error {
	if err == nil {
		return Internal(errors.New("nilエラーが渡されました"))
	}

	if appErr, ok := As(err); ok {
		return appErr
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, FieldError{
				Field:  fieldName(fe),
				Reason: tagReason(fe.Tag()),
			})
		}
		return Validation("リクエストの入力値が不正です", details...).WithCause(err)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return Validation("リクエストボディのJSONが不正です").WithCause(err)
	case errors.As(err, &typeErr):
		return Validation("リクエストの入力値が不正です", FieldError{
			Field:  typeErr.Field,
			Reason: "型が不正です",
		}).WithCause(err)
	case errors.Is(err, io.EOF):
		return Validation("リクエストボディが空です").WithCause(err)
	case errors.As(err, &maxBytesErr):
		return Validation("リクエストボディが大きすぎます").WithCause(err)
	}

	return Internal(err)
}

// fieldName は検証エラーのフィールド名を返す。
// gin/validatorはGoの構造体フィールド名を返すため、先頭を小文字化したスネークケースに揃える。
func fieldName(fe validator.FieldError) string {
	return toSnake(fe.Field())
}

// toSnake はCamelCaseをsnake_caseに変換する。
func toSnake(s string) string {
	isUpper := func(c byte) bool { return c >= 'A' && c <= 'Z' }
	isLower := func(c byte) bool { return c >= 'a' && c <= 'z' }

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isUpper(c) {
			b.WriteByte(c)
			continue
		}
		if i > 0 && (isLower(s[i-1]) || (isUpper(s[i-1]) && i+1 < len(s) && isLower(s[i+1]))) {
			b.WriteByte('_')
		}
		b.WriteByte(c + ('a' - 'A'))
	}
	return b.String()
}

// tagReason はvalidatorのタグを利用者向けの理由に変換する。
func tagReason(tag string) string {
	switch tag {
	case "required":
		return "必須項目です"
	case "email":
		return "メールアドレスの形式が不正です"
	case "min", "gte", "gt":
		return "値が小さすぎます"
	case "max", "lte", "lt":
		return "値が大きすぎます"
	case "oneof":
		return "許可されていない値です"
	case "uuid", "uuid4":
		return "IDの形式が不正です"
	default:
		return "検証に失敗しました"
	}
}
