package cliui

import (
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/papercomputeco/intents/pkg/logger"
)

// NewLogger returns the command logger: JSON when asked for, the pretty
// handler when stdout is a terminal, slog's text format otherwise.
func NewLogger(debug, jsonLogs bool) *slog.Logger {
	return logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(jsonLogs),
		logger.WithPretty(!jsonLogs && term.IsTerminal(int(os.Stdout.Fd()))),
	)
}

// TeeToFile returns a logger that writes to base and, as JSON lines, to the
// file at path. The returned file must be closed by the caller.
func TeeToFile(base *slog.Logger, path string, debug bool) (*slog.Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	fileLogger := logger.New(
		logger.WithDebug(debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	)

	return logger.Multi(base, fileLogger), f, nil
}
