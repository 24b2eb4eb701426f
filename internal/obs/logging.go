package obs

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// プロセス全体で使うJSONロガー（InitLogger前でも使える）
var Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// 起動時に1回呼ぶ
func InitLogger(level string) {
	Logger = NewLogger(os.Stdout, level)
	slog.SetDefault(Logger)
}

// 不明なレベルはinfo扱い
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
