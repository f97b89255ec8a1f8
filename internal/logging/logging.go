// Package logging builds the daemon's zerolog logger from config.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"anydrag/internal/config"
)

// New creates a logger per the logging config: human-readable console
// output on stderr, plus an optional append-only file.
func New(cfg config.LoggingConfig) (zerolog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}

	var out io.Writer = console
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return zerolog.Nop(), fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("failed to open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(console, f)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

func parseLevel(level string) (zerolog.Level, error) {
	switch level {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", level)
	}
}
