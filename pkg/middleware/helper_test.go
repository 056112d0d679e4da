package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/storefront/pkg/apperror"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// discardLogger はテスト用に出力を捨てるロガーを返す。
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRouter はErrorHandlerを先頭に登録したルーターを返す。
func newTestRouter(middlewares ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(ErrorHandler(discardLogger()))
	router.Use(middlewares...)
	router.NoRoute(NotFound())
	return router
}

// okHandler は200を返すハンドラ。calledが指定されていれば呼び出しを記録する。
func okHandler(called *bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if called != nil {
			*called = true
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// decodeEnvelope はレスポンスボディをエラーエンベロープとして読み取る。
func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) apperror.Envelope {
	t.Helper()

	var env apperror.Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("レスポンスボディのパースに失敗: %v (body=%s)", err, w.Body.String())
	}
	return env
}
