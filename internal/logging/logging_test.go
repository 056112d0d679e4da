package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   slog.Level
		wantOK bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("本番環境ではJSON形式で出力すること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := New(&buf, "info", true)
		logger.Info("hello", "key", "value")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "hello", entry["msg"])
		assert.Equal(t, "value", entry["key"])
		assert.Equal(t, "storefront", entry["service"])
	})

	t.Run("ログレベル未満は出力しないこと", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := New(&buf, "warn", false)
		logger.Info("hidden")
		logger.Warn("shown")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("不正なログレベルは警告を出してinfoになること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := New(&buf, "loud", false)
		logger.Debug("debug-line")

		out := buf.String()
		assert.True(t, strings.Contains(out, "loud"))
		assert.NotContains(t, out, "debug-line")
	})
}
