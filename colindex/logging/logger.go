package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with index-specific helpers so that compile,
// search and merge events use consistent field names.
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
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.Level(1000),
		})),
	}
}

// ParseLevel maps a level name (debug, info, warn, error) to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// OrNoop returns l, or a discarding logger when l is nil.
func OrNoop(l *Logger) *Logger {
	if l == nil {
		return NoopLogger()
	}
	return l
}

// WithPartition adds a partition key to the logger.
func (l *Logger) WithPartition(partition string) *Logger {
	return &Logger{Logger: l.Logger.With("partition", partition)}
}

// LogPureNegation warns about a boolean condition that had no positive
// clause and was repaired with an implicit match-all.
func (l *Logger) LogPureNegation(ctx context.Context, negations int) {
	l.WarnContext(ctx, "Performing resource-intensive pure negation search",
		"negations", negations,
	)
}

// LogCompile logs the outcome of compiling a condition tree.
func (l *Logger) LogCompile(ctx context.Context, steps int, err error) {
	if err != nil {
		l.DebugContext(ctx, "compile failed", "error", err)
		return
	}
	l.DebugContext(ctx, "compile completed", "steps", steps)
}

// LogSearch logs a fan-out search over local partitions.
func (l *Logger) LogSearch(ctx context.Context, partitions, hits int, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"partitions", partitions,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "search completed",
		"partitions", partitions,
		"hits", hits,
		"took", took,
	)
}

// LogMerge logs the reconciliation of per-partition rows.
func (l *Logger) LogMerge(ctx context.Context, before, after int, comparator string, took time.Duration) {
	l.DebugContext(ctx, fmt.Sprintf("Sorted %d rows to %d with comparator %s in %s", before, after, comparator, took))
}

// LogRefresh logs a rebuild of the in-memory partitions from the column store.
func (l *Logger) LogRefresh(ctx context.Context, partitions, rows int, took time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "refresh failed", "error", err)
		return
	}
	l.InfoContext(ctx, "refresh completed",
		"partitions", partitions,
		"rows", rows,
		"took", took,
	)
}
