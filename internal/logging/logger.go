package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/bnema/gemini-live-cli/internal/domain"
)

// Init builds the process logger and installs it as the slog default.
// Logs go to w, which the CLI points at stderr so stdout stays free for
// the conversation.
func Init(w io.Writer, level string, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, nil
}

func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
	}
}

// WithSession returns a logger scoped to one continuity session.
func WithSession(logger *slog.Logger, id domain.SessionID) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("session_id", string(id))
}
