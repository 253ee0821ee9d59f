// Package logging configures the structured logger used across vortex.
// It wraps zerolog behind a small config surface so the engine's warnings
// and traces share one output and level.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Config contains logging configuration.
type Config struct {
	Level   string // trace, debug, info, warn, error; default info
	Format  string // json or console; default console
	Output  string // stdout or stderr; default stderr
	NoColor bool
}

// ApplyDefaults fills zero values with the defaults above.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stderr"
	}
}

// FromEnv reads LOG_LEVEL, LOG_FORMAT, LOG_OUTPUT, and LOG_NO_COLOR.
func FromEnv() Config {
	return Config{
		Level:   os.Getenv("LOG_LEVEL"),
		Format:  os.Getenv("LOG_FORMAT"),
		Output:  os.Getenv("LOG_OUTPUT"),
		NoColor: strings.EqualFold(os.Getenv("LOG_NO_COLOR"), "true"),
	}
}

var (
	mu   sync.RWMutex
	root = build(Config{})
)

// Init replaces the package logger. Safe to call at any time; loggers
// obtained afterwards via Component pick up the new configuration.
func Init(cfg Config) {
	logger := build(cfg)
	mu.Lock()
	root = logger
	mu.Unlock()
}

// Component returns the package logger tagged with a component name. The
// pointer return lets call sites chain level methods directly.
func Component(name string) *zerolog.Logger {
	mu.RLock()
	logger := root
	mu.RUnlock()
	tagged := logger.With().Str("component", name).Logger()
	return &tagged
}

func build(cfg Config) zerolog.Logger {
	cfg.ApplyDefaults()

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	out := outputWriter(cfg.Output)
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, NoColor: cfg.NoColor}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func outputWriter(output string) io.Writer {
	if strings.EqualFold(output, "stdout") {
		return os.Stdout
	}
	return os.Stderr
}
