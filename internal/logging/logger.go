// Package logging defines the structured logger used across the server and
// the backends that implement it.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Logger is a context-aware, structured logger. Args are key/value pairs:
//
//	log.Info(ctx, "turn persisted", "thread_id", threadID, "chars", n)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}

const (
	BackendSlog = "slog"
	BackendZap  = "zap"
)

// New builds a logger for the given backend. Development environments get
// human-readable output at debug level; everything else gets JSON at info.
func New(backend, environment string) (Logger, error) {
	dev := environment == "development" || environment == "test"

	switch backend {
	case "", BackendSlog:
		return newSlog(os.Stdout, dev), nil
	case BackendZap:
		return NewZapLogger(dev)
	default:
		return nil, fmt.Errorf("unknown log backend %q", backend)
	}
}

func newSlog(w io.Writer, dev bool) *SlogLogger {
	if dev {
		return NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}
	return NewSlogLogger(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})))
}

// Nop discards everything. Handy in tests.
func Nop() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}
