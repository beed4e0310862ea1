package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/acinf/internal/connection"
	"github.com/srg/acinf/internal/device"
	"github.com/srg/acinf/internal/session"
	"github.com/srg/acinf/pkg/config"
	"golang.org/x/term"
)

// TransportFactory builds the BLE transport for a backend name.
type TransportFactory func(backend string, logger *logrus.Logger) (device.Transport, error)

// app carries the configuration and collaborators of one invocation.
type app struct {
	cfg          *config.Config
	newTransport TransportFactory

	// isTerminal reports whether progress may be drawn on w.
	isTerminal func(w io.Writer) bool
}

func newApp(cfg *config.Config, factory TransportFactory) *app {
	return &app{
		cfg:          cfg,
		newTransport: factory,
		isTerminal:   isTerminal,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	req, err := parseRequest(args)
	if err != nil {
		return err
	}
	if err := a.cfg.Validate(); err != nil {
		return invalidArgument(err.Error())
	}

	logger := configureLogger(a.cfg, cmd.ErrOrStderr())

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	transport, err := a.newTransport(a.cfg.Backend, logger)
	if err != nil {
		return fmt.Errorf("failed to create BLE transport: %w", err)
	}
	if closer, ok := transport.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.WithError(err).Debug("Failed to close BLE transport")
			}
		}()
	}

	opts := []session.Option{
		session.WithDeadline(a.cfg.SessionDeadline),
		session.WithAttemptTimeout(a.cfg.AttemptTimeout),
	}
	if a.isTerminal(cmd.ErrOrStderr()) {
		progress := NewProgressPrinter(cmd.ErrOrStderr(), req.describe(), session.PhaseConnecting, session.PhaseDone)
		progress.Start()
		defer progress.Stop()
		opts = append(opts, session.WithProgress(progress.Callback()))
	}

	sess := session.New(connection.NewManager(transport, logger), logger, opts...)
	res, err := sess.Run(cmd.Context(), req.address, req.command)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"session":  sess.ID(),
		"attempts": res.Attempts,
		"elapsed":  res.Elapsed,
	}).Info("Command completed")

	return writeResult(cmd.OutOrStdout(), req, res.Response, a.cfg.Compact)
}
