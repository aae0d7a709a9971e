package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read from the environment; command line flags override it.
type Config struct {
	Debounce time.Duration `env:"FORMSTATE_DEBOUNCE" envDefault:"100ms"`
	LogLevel string        `env:"FORMSTATE_LOG_LEVEL" envDefault:"warn"`
	// Output is the file results are written to; empty means stdout.
	Output string `env:"FORMSTATE_OUTPUT"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
