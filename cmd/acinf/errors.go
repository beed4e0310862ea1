package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/srg/acinf/internal/acinfinity"
	"github.com/srg/acinf/internal/connection"
	"github.com/srg/acinf/internal/device"
	"github.com/srg/acinf/internal/session"
)

// Process exit codes.
const (
	exitOK              = 0
	exitFailure         = 1
	exitInvalidArgument = 2
	exitTimeout         = 3
	exitInterrupted     = 130
)

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, acinfinity.ErrInvalidArgument), errors.Is(err, device.ErrInvalidAddress):
		return exitInvalidArgument
	case errors.Is(err, session.ErrTimeout):
		return exitTimeout
	default:
		return exitFailure
	}
}

// FormatUserError renders err as a one-line diagnostic for the terminal.
func FormatUserError(err error) string {
	if err == nil {
		return ""
	}

	var timeout *session.TimeoutError
	if errors.As(err, &timeout) {
		msg := fmt.Sprintf("controller did not answer within %s (%d attempts)",
			timeout.Elapsed.Round(time.Second), timeout.Attempts)
		if timeout.Last != nil {
			msg += fmt.Sprintf("; last failure: %v", timeout.Last)
		}
		return msg
	}

	var fatal *session.FatalError
	if errors.As(err, &fatal) {
		switch fatal.Reason {
		case connection.ReasonAdapterUnavailable:
			return fmt.Sprintf("Bluetooth adapter unavailable, is Bluetooth turned on? (%v)", fatal.Err)
		case connection.ReasonProtocolMismatch:
			return fmt.Sprintf("device does not look like an AC Infinity controller: %v", fatal.Err)
		case connection.ReasonAddressBusy:
			return fmt.Sprintf("another command is already talking to this controller: %v", fatal.Err)
		default:
			return fatal.Err.Error()
		}
	}

	return err.Error()
}
