// Package debug provides the trace logger used across the engine.
// Disabled loggers discard everything, so call sites never guard.
package debug

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog with an on/off switch wired to the --trace flag.
type Logger struct {
	enabled bool
	slog    *slog.Logger
}

// New creates a logger writing to w (stderr when nil).
func New(enabled bool, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	return &Logger{enabled: enabled, slog: slog.New(handler)}
}

// Nop returns a disabled logger.
func Nop() *Logger {
	return &Logger{}
}

// Redirect points the logger at w and enables it. Used by the /log
// meta command to mirror a session's debug output into a file.
func (l *Logger) Redirect(w io.Writer) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	l.slog = slog.New(handler)
	l.enabled = true
}

// Enabled reports whether trace output is on.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

// Debug logs a trace message with structured attributes.
func (l *Logger) Debug(msg string, args ...any) {
	if !l.Enabled() {
		return
	}
	l.slog.Debug(msg, args...)
}

// Warn logs a warning; used for absorbed backend failures.
func (l *Logger) Warn(msg string, args ...any) {
	if !l.Enabled() {
		return
	}
	l.slog.Warn(msg, args...)
}
