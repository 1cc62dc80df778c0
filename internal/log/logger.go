package log

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel переводит текстовый уровень из конфигурации в slog.Level.
// Неизвестные значения трактуются как info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New создает логгер приложения: JSON или текстовый вывод в w с маскировкой секретов.
func New(w io.Writer, level, format string, secrets ...string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return NewMaskedLogger(handler, secrets...)
}
