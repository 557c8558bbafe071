package nxt

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/nxt/internal/submit"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for nxt and its internal packages.
// By default, nxt produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by nxt:
//   - [slog.LevelDebug]: serial engine internals (submissions, pool and fence recycling)
//   - [slog.LevelInfo]: device lifecycle (backend and adapter selected, shutdown)
//   - [slog.LevelWarn]: recoverable driver errors, reference counting misuse
//
// Example:
//
//	// Enable info-level logging to stderr:
//	nxt.SetLogger(slog.Default())
//
//	// Enable debug-level logging for full diagnostics:
//	nxt.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	submit.SetLogger(l)
}

// Logger returns the current logger used by nxt.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
