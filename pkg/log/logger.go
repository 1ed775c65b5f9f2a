// Package log wires slog for diagnostic logging and provides the
// user-facing message channel. Diagnostic logs go to a file or the console
// when enabled and are discarded otherwise; user messages always go to
// stderr unless silent mode is on, so report output on stdout stays
// machine-readable.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// ANSI styles for user-facing messages.
const (
	ansiEscape = "\033["

	colorReset     = ansiEscape + "0m"
	colorOrange    = ansiEscape + "38;5;208m"
	colorBrightRed = ansiEscape + "91m"
	colorGreen     = ansiEscape + "32m"
)

// Options controls logger setup.
type Options struct {
	// Console mirrors diagnostic logs to stdout.
	Console bool

	// File enables diagnostic logging to Path.
	File bool

	// Path is the log file location, required when File is set.
	Path string

	// Debug lowers the level from Info to Debug.
	Debug bool

	// Silent suppresses all user-facing messages.
	Silent bool
}

var (
	logFileHandle *os.File
	silentMode    bool
)

// Setup configures the default slog logger. With neither Console nor File
// set, diagnostic logs are discarded.
func Setup(opts Options) error {
	silentMode = opts.Silent

	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	var handlers []slog.Handler
	if opts.File {
		if opts.Path == "" {
			return fmt.Errorf("log file enabled but no path given")
		}
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFileHandle = file
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{Level: level}))
	}
	if opts.Console {
		handlers = append(handlers, slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}

	var logger *slog.Logger
	switch len(handlers) {
	case 0:
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	case 1:
		logger = slog.New(handlers[0])
	default:
		logger = slog.New(&multiHandler{handlers: handlers})
	}

	slog.SetDefault(logger)
	return nil
}

// Close releases the log file if one is open.
func Close() {
	if logFileHandle != nil {
		_ = logFileHandle.Close()
		logFileHandle = nil
	}
}

// IsSilent reports whether user-facing messages are suppressed.
func IsSilent() bool {
	return silentMode
}

// UserMessage prints a plain message to stderr, honoring silent mode.
func UserMessage(format string, args ...interface{}) {
	if !silentMode {
		fmt.Fprint(os.Stderr, fmt.Sprintf(format, args...))
	}
}

// UserSuccess prints a green confirmation to stderr, honoring silent mode.
func UserSuccess(format string, args ...interface{}) {
	if !silentMode {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

// UserWarn prints an orange warning to stderr, honoring silent mode.
func UserWarn(format string, args ...interface{}) {
	if !silentMode {
		fmt.Fprintf(os.Stderr, "\n%sWarning: %s\n%s", colorOrange, fmt.Sprintf(format, args...), colorReset)
	}
}

// UserError prints a bright red error to stderr, honoring silent mode.
func UserError(format string, args ...interface{}) {
	if !silentMode {
		fmt.Fprintf(os.Stderr, "\n%sError: %s\n%s", colorBrightRed, fmt.Sprintf(format, args...), colorReset)
	}
}

// multiHandler fans a record out to several destinations.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if err := handler.Handle(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}
