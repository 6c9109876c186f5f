// Package logging builds the slog loggers used across the storage core.
// File logging rotates through lumberjack; the worker and the CLI share the
// same construction.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the sink and level. An empty FilePath logs to stderr.
type Options struct {
	FilePath   string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds a text-handler logger from the options.
func New(opts Options) *slog.Logger {
	var sink io.Writer = os.Stderr
	if opts.FilePath != "" {
		sink = &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
	}
	return slog.New(slog.NewTextHandler(sink, &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	}))
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
