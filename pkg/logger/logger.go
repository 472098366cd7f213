// Package logger provides opinionated logging for the chatrelay system.
//
// New returns a *slog.Logger so call sites stay on the standard structured
// logging API; options select between a text handler (default), a JSON
// handler for service logs, and a charmbracelet pretty handler for CLI
// output.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	writers []io.Writer
}

// New creates a logger from the given options.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:   slog.LevelInfo,
		writers: []io.Writer{os.Stdout},
	}
	for _, opt := range opts {
		opt(c)
	}

	var out io.Writer
	if len(c.writers) == 1 {
		out = c.writers[0]
	} else {
		out = io.MultiWriter(c.writers...)
	}

	switch {
	case c.pretty:
		charmLevel := charmlog.InfoLevel
		if c.level == slog.LevelDebug {
			charmLevel = charmlog.DebugLevel
		}
		handler := charmlog.NewWithOptions(out, charmlog.Options{
			Level:           charmLevel,
			ReportCaller:    c.source,
			ReportTimestamp: true,
		})
		return slog.New(handler)
	case c.json:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		}))
	default:
		return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		}))
	}
}

// Nop returns a logger that discards everything. Used in tests and as a safe
// fallback when no logger is injected.
func Nop() *slog.Logger {
	return slog.New(nopHandler{})
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
