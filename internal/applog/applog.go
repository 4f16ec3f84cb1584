// Package applog wires structured logging the way the teacher's main.go
// does: a slog.JSONHandler over a lumberjack rotating writer, with source
// trimmed to basename and RFC3339Nano timestamps.
package applog

import (
	"log/slog"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures log rotation and verbosity.
type Options struct {
	Directory  string
	FileName   string // default "dem-terrain-render.log"
	Level      slog.Level
	MaxSizeMB  int // default 100
	MaxBackups int // default 5
	MaxAgeDays int // default 30
}

// New builds the default logger and returns it alongside the lumberjack
// writer so callers can trigger manual rotation; the service binding rotates
// when the UTC day changes, mirroring the teacher's rotate-trigger loop.
func New(opt Options) (*slog.Logger, *lumberjack.Logger) {
	if opt.FileName == "" {
		opt.FileName = "dem-terrain-render.log"
	}
	if opt.MaxSizeMB == 0 {
		opt.MaxSizeMB = 100
	}
	if opt.MaxBackups == 0 {
		opt.MaxBackups = 5
	}
	if opt.MaxAgeDays == 0 {
		opt.MaxAgeDays = 30
	}

	lj := &lumberjack.Logger{
		Filename:   filepath.Join(opt.Directory, opt.FileName),
		MaxSize:    opt.MaxSizeMB,
		MaxBackups: opt.MaxBackups,
		MaxAge:     opt.MaxAgeDays,
		Compress:   true,
	}

	handler := slog.NewJSONHandler(lj, &slog.HandlerOptions{
		Level:       opt.Level,
		ReplaceAttr: replaceAttr,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, lj
}

func replaceAttr(_ []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok && src != nil {
			src.File = filepath.Base(src.File)
		}
	case slog.TimeKey:
		a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339Nano))
	}
	return a
}

// ParseLevel maps the config's string level onto slog.Level, defaulting to
// Info on an unrecognized value.
func ParseLevel(s string) slog.Level {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "warn":
		return slog.LevelWarn
	case "ERROR", "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRunID attaches a per-run correlation attribute so every phase's log
// lines can be grepped together.
func WithRunID(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With("run_id", runID)
}
