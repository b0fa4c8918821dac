// Package debug holds the process-wide slog logger used by sessions,
// database connections and the CLI.
package debug

import (
	"io"
	"log/slog"
	"sync"
)

var (
	mu      sync.RWMutex
	current = quiet()
	verbose bool
)

// quiet drops every record, errors included.
func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// InitWith routes log records to w. When enable is false all records are
// dropped. asJSON switches the handler to slog's JSON encoding, matching
// the CLI's --format json.
func InitWith(w io.Writer, enable bool, asJSON bool) {
	var l *slog.Logger
	if enable {
		opts := &slog.HandlerOptions{Level: slog.LevelDebug}
		if asJSON {
			l = slog.New(slog.NewJSONHandler(w, opts))
		} else {
			l = slog.New(slog.NewTextHandler(w, opts))
		}
	} else {
		l = quiet()
	}

	mu.Lock()
	current, verbose = l, enable
	mu.Unlock()
}

// Enabled reports whether records are being written anywhere.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }

func Info(msg string, args ...any) { Logger().Info(msg, args...) }

func Warn(msg string, args ...any) { Logger().Warn(msg, args...) }

// With returns a child logger carrying args. Children keep the handler
// that was current when they were made.
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}
