// Package logger configures the process-wide zerolog logger from LoggingConfig.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/segyhp/repayment-ledger/internal/config"
)

// New builds a logger writing to w. Format "console" produces human-readable
// output; anything else is JSON.
func New(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Setup installs the configured logger as the global zerolog logger and
// returns it.
func Setup(cfg config.LoggingConfig, service string) zerolog.Logger {
	l := New(cfg, os.Stdout).With().Str("service", service).Logger()
	log.Logger = l
	zerolog.DefaultContextLogger = &l
	return l
}
