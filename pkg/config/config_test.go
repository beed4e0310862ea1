package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "go-ble", cfg.Backend)
	assert.Equal(t, 60*time.Second, cfg.SessionDeadline)
	assert.Equal(t, 20*time.Second, cfg.AttemptTimeout)
	assert.False(t, cfg.Compact)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_NewLogger(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logLevel logrus.Level
	}{
		{
			name:     "creates logger with debug level",
			level:    "debug",
			logLevel: logrus.DebugLevel,
		},
		{
			name:     "creates logger with info level",
			level:    "info",
			logLevel: logrus.InfoLevel,
		},
		{
			name:     "creates logger with warn level",
			level:    "WARN",
			logLevel: logrus.WarnLevel,
		},
		{
			name:     "creates logger with error level",
			level:    "error",
			logLevel: logrus.ErrorLevel,
		},
		{
			name:     "falls back to warn for an unknown level",
			level:    "trace",
			logLevel: logrus.WarnLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				LogLevel: tt.level,
			}

			logger := cfg.NewLogger()

			assert.NotNil(t, logger)
			assert.Equal(t, tt.logLevel, logger.GetLevel())

			// Verify formatter is set correctly
			formatter, ok := logger.Formatter.(*logrus.TextFormatter)
			assert.True(t, ok)
			assert.True(t, formatter.FullTimestamp)
			assert.Equal(t, time.RFC3339, formatter.TimestampFormat)
		})
	}
}

func TestConfig_NewLoggerTo(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()

	logger := cfg.NewLoggerTo(&buf)
	logger.WithField("reason", "response_timeout").Warn("Attempt failed, retrying")
	logger.Info("hidden")

	assert.Contains(t, buf.String(), "level=warning")
	assert.Contains(t, buf.String(), "reason=response_timeout")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level: trace (must be debug, info, warn, error)"},
		{"bad backend", func(c *Config) { c.Backend = "bluez" }, "invalid backend: bluez (must be go-ble, tinygo)"},
		{"zero deadline", func(c *Config) { c.SessionDeadline = 0 }, "invalid deadline: 0s (must be positive)"},
		{"negative attempt timeout", func(c *Config) { c.AttemptTimeout = -time.Second }, "invalid attempt timeout: -1s (must be positive)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.errMsg, err.Error())
		})
	}

	cfg := DefaultConfig()
	cfg.Backend = "TinyGo"
	assert.NoError(t, cfg.Validate(), "backend MUST be matched case-insensitively")
}
