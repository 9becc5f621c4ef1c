package runtime

import (
	"log/slog"
	"os"
	"strings"

	"github.com/md-rashed-zaman/slotkeeper/libs/config"
)

// NewLogger builds the JSON logger every component receives. LOG_LEVEL picks the level.
func NewLogger(service string) *slog.Logger {
	return NewLoggerWithLevel(service, config.String("LOG_LEVEL", "info"))
}

func NewLoggerWithLevel(service, level string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(h).With("service", service)
}

// ParseLevel maps debug|info|warn|error to a slog level; anything else is info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
