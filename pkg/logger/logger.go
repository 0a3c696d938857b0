// Package logger provides structured logging using zerolog
package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/computerscienceiscool/nodekit/pkg/config"
)

var globalLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init configures the global logger. The returned closer releases the log
// file when logging.file is set.
func Init(cfg config.LoggingConfig) (io.Closer, error) {
	var output io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		output = file
		closer = file
	}

	l, err := New(output, cfg)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	globalLogger = l
	log.Logger = globalLogger

	return closer, nil
}

// New builds a logger writing to output with the configured level and format
func New(output io.Writer, cfg config.LoggingConfig) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.Kitchen, NoColor: true}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger(), nil
}

// GetLogger returns the global logger
func GetLogger() zerolog.Logger {
	return globalLogger
}

// WithComponent returns a child of base tagged with component
func WithComponent(base zerolog.Logger, component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
