// Package log provides structured logging for sonar.
// It wraps slog and writes each record as one line through a hal.Logger
// (UART on the board, stdout on the host).
package log

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"sonar/hal"
)

var logger atomic.Pointer[slog.Logger]

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
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
		return slog.LevelInfo, fmt.Errorf("log: unknown level %q", level)
	}
}

// Init installs the global logger writing to sink. An unknown level falls back to info.
func Init(sink hal.Logger, level string) *slog.Logger {
	lvl, _ := ParseLevel(level)
	l := New(sink, lvl)
	logger.Store(l)
	slog.SetDefault(l)
	return l
}

// New returns a logger writing to sink without touching the global one.
func New(sink hal.Logger, level slog.Level) *slog.Logger {
	var w io.Writer = io.Discard
	if sink != nil {
		w = lineWriter{sink: sink}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// L returns the global logger instance.
func L() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Or returns l, or a discarding logger when l is nil.
func Or(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}

// lineWriter hands each slog record to the sink without its trailing newline.
type lineWriter struct {
	sink hal.Logger
}

func (w lineWriter) Write(p []byte) (int, error) {
	w.sink.WriteLineBytes(bytes.TrimRight(p, "\r\n"))
	return len(p), nil
}
