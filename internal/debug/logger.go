// Package debug is the process-wide log of entityql. The query compiler
// reports compiled statements and cache hits at debug level, the DDL
// generator warns when a dialect downgrades a key generation strategy, and
// the schema executor logs applied and failed schemas. Output is discarded
// unless ENTITYQL_DEBUG is set or the CLI runs with --debug.
package debug

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	logger  = slog.New(slog.NewTextHandler(io.Discard, nil))
	enabled bool
	mu      sync.RWMutex // guards logger and enabled
)

func init() {
	if os.Getenv("ENTITYQL_DEBUG") != "" {
		Init(true)
	}
}

// Init switches logging to stderr, or silences it when enable is false.
func Init(enable bool) {
	InitWriter(enable, os.Stderr)
}

// InitWriter is Init with an explicit destination. Tests use it to
// capture compiler and executor logs.
func InitWriter(enable bool, w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	enabled = enable

	if enable {
		opts := &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}
		logger = slog.New(slog.NewTextHandler(w, opts))
	} else {
		// Above Error: nothing passes.
		opts := &slog.HandlerOptions{
			Level: slog.LevelError + 1,
		}
		logger = slog.New(slog.NewTextHandler(w, opts))
	}
}

// Enabled reports whether logs are written.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Debug logs per-statement detail.
func Debug(msg string, args ...any) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Debug(msg, args...)
}

// Info logs a completed schema change.
func Info(msg string, args ...any) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Info(msg, args...)
}

// Warn logs a dialect fallback the caller may not expect.
func Warn(msg string, args ...any) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.Error(msg, args...)
}

// With returns a logger carrying attrs, such as the schema name and provider.
func With(args ...any) *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	return l.With(args...)
}
