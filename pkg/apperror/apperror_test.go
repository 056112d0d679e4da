package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind Kind
		want int
	}{
		{KindUnauthenticated, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotFound, http.StatusNotFound},
		{KindValidation, http.StatusBadRequest},
		{KindConflict, http.StatusConflict},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.kind.Status(), tt.kind.String())
	}
}

func TestFrom(t *testing.T) {
	t.Parallel()

	t.Run("*Errorはそのまま返ること", func(t *testing.T) {
		t.Parallel()

		orig := Unauthenticated(CodeExpiredToken, "expired")
		wrapped := fmt.Errorf("wrap: %w", orig)

		got := From(wrapped)
		assert.Same(t, orig, got)
	})

	t.Run("未知のエラーは内部エラーになり原因を保持すること", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("db exploded: password=secret")
		got := From(cause)

		assert.Equal(t, KindInternal, got.Kind)
		assert.Equal(t, CodeInternal, got.Code)
		assert.NotContains(t, got.Message, "secret")
		assert.ErrorIs(t, got, cause)
	})

	t.Run("validatorのエラーはフィールド詳細付きの検証エラーになること", func(t *testing.T) {
		t.Parallel()

		type req struct {
			Email     string `validate:"required,email"`
			ProductID string `validate:"required"`
		}
		err := validator.New().Struct(req{Email: "bad"})
		require.Error(t, err)

		got := From(err)
		assert.Equal(t, KindValidation, got.Kind)
		assert.Equal(t, CodeValidationFailed, got.Code)
		require.Len(t, got.Details, 2)
		assert.Equal(t, "email", got.Details[0].Field)
		assert.Equal(t, "product_id", got.Details[1].Field)
	})

	t.Run("JSON構文エラーは検証エラーになること", func(t *testing.T) {
		t.Parallel()

		var v map[string]any
		err := json.Unmarshal([]byte("{bad"), &v)
		require.Error(t, err)

		assert.Equal(t, KindValidation, From(err).Kind)
		assert.Equal(t, KindValidation, From(io.EOF).Kind)
	})

	t.Run("nilは内部エラーになること", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, KindInternal, From(nil).Kind)
	})
}

func TestNewEnvelope(t *testing.T) {
	t.Parallel()

	env := NewEnvelope(Internal(errors.New("stack trace here")), "req-1")
	body, err := json.Marshal(env)
	require.NoError(t, err)

	assert.JSONEq(t, `{"status":500,"message":"内部サーバーエラーが発生しました","code":"INTERNAL_ERROR","request_id":"req-1"}`, string(body))
}

func TestForbiddenDoesNotNameRoles(t *testing.T) {
	t.Parallel()

	msg := Forbidden().Message
	assert.NotContains(t, msg, "admin")
	assert.NotContains(t, msg, "customer")
}

func TestToSnake(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "product_id", toSnake("ProductID"))
	assert.Equal(t, "name", toSnake("Name"))
	assert.Equal(t, "http_server", toSnake("HTTPServer"))
	assert.Equal(t, "price_cents", toSnake("PriceCents"))
}
