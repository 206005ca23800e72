// Package logger provides opinionated logging capabilities for the intents
// service. Every component receives a *slog.Logger.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level  slog.Level
	pretty bool
	json   bool
	out    io.Writer
}

// New creates a *slog.Logger. By default it writes slog's text format to
// os.Stdout at Info level.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level: slog.LevelInfo,
		out:   os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}

	switch {
	case c.json:
		return slog.New(slog.NewJSONHandler(c.out, &slog.HandlerOptions{Level: c.level}))
	case c.pretty:
		return slog.New(charmlog.NewWithOptions(c.out, charmlog.Options{
			ReportTimestamp: true,
			Level:           charmLevel(c.level),
		}))
	default:
		return slog.New(slog.NewTextHandler(c.out, &slog.HandlerOptions{Level: c.level}))
	}
}

func charmLevel(l slog.Level) charmlog.Level {
	if l <= slog.LevelDebug {
		return charmlog.DebugLevel
	}
	return charmlog.InfoLevel
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(nopHandler{})
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
