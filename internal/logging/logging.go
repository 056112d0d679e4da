// Package logging は構造化ロガー（log/slog）の初期化を行う。
package logging

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel はログレベル文字列をslog.Levelに変換する。
// 未知の値はinfoとして扱い、okにfalseを返す。
func ParseLevel(s string) (level slog.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// New はロガーを生成する。本番環境ではJSON形式、それ以外ではテキスト形式で出力する。
func New(w io.Writer, level string, production bool) *slog.Logger {
	lv, ok := ParseLevel(level)
	opts := &slog.HandlerOptions{Level: lv}

	var handler slog.Handler
	if production {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler).With("service", "storefront")
	if !ok {
		logger.Warn("不正なログレベルが指定されたためinfoを使用します", "configured_level", level)
	}
	return logger
}

// Setup はロガーを生成し、slogのデフォルトロガーとして登録する。
func Setup(w io.Writer, level string, production bool) *slog.Logger {
	logger := New(w, level, production)
	slog.SetDefault(logger)
	return logger
}
