package arenakit

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with arena-specific events.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return NewLogger(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	}))
}

// WithName adds an arena name field to the logger.
func (l *Logger) WithName(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("arena", name),
	}
}

// LogChunkGrowth logs the creation of a new chunk.
func (l *Logger) LogChunkGrowth(ctx context.Context, chunk, capacity, totalItems int) {
	l.DebugContext(ctx, "chunk allocated",
		"chunk", chunk,
		"capacity", capacity,
		"total_items", totalItems,
	)
}

// LogQuotaRejected logs an allocation refused by a quota.
func (l *Logger) LogQuotaRejected(ctx context.Context, err *QuotaExceededError) {
	l.DebugContext(ctx, "allocation rejected",
		"items", err.CurrentItems,
		"max_items", err.MaxItems,
		"bytes", err.CurrentBytes,
		"max_bytes", err.MaxBytes,
	)
}

// LogReset logs a reset.
func (l *Logger) LogReset(ctx context.Context, droppedItems, droppedSnapshots int, generation uint64) {
	l.InfoContext(ctx, "arena reset",
		"dropped_items", droppedItems,
		"dropped_snapshots", droppedSnapshots,
		"generation", generation,
	)
}

// LogEncode logs an encode operation.
func (l *Logger) LogEncode(ctx context.Context, items, bytes int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "encode failed",
			"items", items,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "encode completed",
			"items", items,
			"bytes", bytes,
		)
	}
}

// LogDecode logs a decode operation.
func (l *Logger) LogDecode(ctx context.Context, bytes, items int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "decode failed",
			"bytes", bytes,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "decode completed",
			"bytes", bytes,
			"items", items,
		)
	}
}
