// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects the level and output format.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
	// File, when set, receives logs in addition to stderr.
	File string `yaml:"file"`
}

// New builds a logger writing to w. An unknown level falls back to info; an
// unknown format is an error.
func New(cfg Config, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	switch strings.ToLower(cfg.Format) {
	case "", "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q (use console or json)", cfg.Format)
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Logger(), nil
}

// Setup installs the configured logger as log.Logger. The returned closer
// releases the log file, if any.
func Setup(cfg Config) (io.Closer, error) {
	var out io.Writer = os.Stderr
	var file *os.File
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		out = zerolog.MultiLevelWriter(os.Stderr, f)
	}

	logger, err := New(cfg, out)
	if err != nil {
		if file != nil {
			file.Close()
		}
		return nil, err
	}
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger

	if file == nil {
		return io.NopCloser(nil), nil
	}
	return file, nil
}
