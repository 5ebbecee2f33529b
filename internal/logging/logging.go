package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/config"
	"github.com/rs/zerolog"
)

// New builds the process logger. format is "json" (default) or "console".
func New(cfg config.LogConfig, service string) (zerolog.Logger, error) {
	return newLogger(os.Stdout, cfg, service)
}

func newLogger(w io.Writer, cfg config.LogConfig, service string) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
		level = l
	}

	switch strings.ToLower(cfg.Format) {
	case "", "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02T15:04:05.000Z07:00"}
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q: want json or console", cfg.Format)
	}

	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		ctx = ctx.Str("hostname", host)
	}
	return ctx.Logger(), nil
}
