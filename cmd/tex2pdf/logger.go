package main

import (
	"io"
	"log/slog"
	"strings"
)

// logLevel picks the level from flags first, then TEX2PDF_LOG_LEVEL.
// The default is warn so a successful compile prints nothing but results.
func logLevel(common commonFlags, envLevel string) slog.Level {
	switch {
	case common.verbose:
		return slog.LevelDebug
	case common.quiet:
		return slog.LevelError
	}

	switch strings.ToLower(strings.TrimSpace(envLevel)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// newLogger returns a text logger on w.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
