package main

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/srg/acinf/pkg/config"
)

// configureLogger creates the logger for one invocation. Log lines go to w
// (stderr) so stdout carries only the command result.
func configureLogger(cfg *config.Config, w io.Writer) *logrus.Logger {
	return cfg.NewLoggerTo(w)
}
