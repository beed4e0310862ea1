package main

import (
	"context"
	"fmt"
	"os"
	"unicode"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/acinf/internal/devicefactory"
	"github.com/srg/acinf/pkg/config"
	"golang.org/x/term"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// formatVersion adds 'v' prefix if version starts with a digit
func formatVersion(ver string) string {
	if len(ver) > 0 && unicode.IsDigit(rune(ver[0])) {
		return "v" + ver
	}
	return ver
}

const exampleAddress = "DE:AD:BE:EF:CA:FE"

// newRootCmd builds the acinf command around a.
func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "acinf <mac_address> {get|set} [value]",
		Short: "Read sensors and set the fan level of an AC Infinity controller over BLE",
		Long: fmt.Sprintf(`Talks to an AC Infinity Controller 69 Pro over Bluetooth Low Energy.

Every invocation opens a fresh connection, sends one command, waits for the
controller's answer and disconnects. Failed exchanges are retried until the
deadline passes.

Examples:
  # Print all sensor values as JSON
  acinf %[1]s get

  # Print a single value
  acinf %[1]s get temperature_f

  # Set the fan to level 5 (0-10)
  acinf %[1]s set 5

Fields: temperature_c, temperature_f, humidity, vpd_kpa

Only one process may talk to a controller at a time.

Exit codes: 0 ok, 1 failure, 2 invalid argument, 3 timeout, 130 interrupted.`, exampleAddress),
		Args:          validateArgs,
		RunE:          a.run,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", formatVersion(version), commit, date),
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return invalidArgument(err.Error())
	})

	f := cmd.Flags()
	f.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "Log level (debug, info, warn, error)")
	f.StringVar(&a.cfg.Backend, "backend", a.cfg.Backend, "BLE backend (go-ble, tinygo)")
	f.DurationVar(&a.cfg.SessionDeadline, "deadline", a.cfg.SessionDeadline, "Give up after this long")
	f.DurationVar(&a.cfg.AttemptTimeout, "attempt-timeout", a.cfg.AttemptTimeout, "Upper bound for a single connect-and-exchange attempt")
	f.BoolVar(&a.cfg.Compact, "compact", a.cfg.Compact, "Print JSON on a single line")

	return cmd
}

func main() {
	ctx, stop := notifyContext(context.Background())

	a := newApp(config.DefaultConfig(), devicefactory.NewTransport)
	err := newRootCmd(a).ExecuteContext(ctx)
	stop()

	code := exitCode(err)
	if err != nil && code != exitInterrupted {
		color.NoColor = !term.IsTerminal(int(os.Stderr.Fd()))
		fmt.Fprintf(os.Stderr, "%s %s\n", color.New(color.FgRed, color.Bold).Sprint("ERROR:"), FormatUserError(err))
	}
	os.Exit(code)
}
