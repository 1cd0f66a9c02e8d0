package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the process-wide default logger and returns it. level
// accepts debug, info, warn or error (default info); format selects json
// or text output (default json).
func Setup(level, format string) *slog.Logger {
	lvl := parseLevel(level)

	// Source locations are only worth the noise when debugging.
	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl == slog.LevelDebug}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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
