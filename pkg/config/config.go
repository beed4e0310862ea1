package config

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/acinf/internal/devicefactory"
)

// LogLevels lists the accepted --log-level values.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Config holds application configuration
type Config struct {
	LogLevel        string        `json:"log_level" default:"warn"`
	Backend         string        `json:"backend" default:"go-ble"`
	SessionDeadline time.Duration `json:"session_deadline" default:"60s"`
	AttemptTimeout  time.Duration `json:"attempt_timeout" default:"20s"`
	Compact         bool          `json:"compact" default:"false"`
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Level returns the logrus level named by LogLevel.
func (c *Config) Level() (logrus.Level, error) {
	name := strings.ToLower(strings.TrimSpace(c.LogLevel))
	if !slices.Contains(LogLevels, name) {
		return logrus.PanicLevel, fmt.Errorf("invalid log level: %s (must be %s)", c.LogLevel, strings.Join(LogLevels, ", "))
	}
	return logrus.ParseLevel(name)
}

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	if !slices.Contains(devicefactory.Backends(), strings.ToLower(c.Backend)) {
		return fmt.Errorf("invalid backend: %s (must be %s)", c.Backend, strings.Join(devicefactory.Backends(), ", "))
	}
	if c.SessionDeadline <= 0 {
		return fmt.Errorf("invalid deadline: %s (must be positive)", c.SessionDeadline)
	}
	if c.AttemptTimeout <= 0 {
		return fmt.Errorf("invalid attempt timeout: %s (must be positive)", c.AttemptTimeout)
	}
	return nil
}

// NewLogger creates a configured logger instance writing to stderr.
func (c *Config) NewLogger() *logrus.Logger {
	return c.NewLoggerTo(os.Stderr)
}

// NewLoggerTo creates a configured logger instance writing to w.
// An invalid LogLevel falls back to warn.
func (c *Config) NewLoggerTo(w io.Writer) *logrus.Logger {
	level, err := c.Level()
	if err != nil {
		level = logrus.WarnLevel
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
