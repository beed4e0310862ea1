package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/srg/acinf/internal/acinfinity"
	"github.com/srg/acinf/internal/device"
)

// Actions accepted after the address.
const (
	actionGet = "get"
	actionSet = "set"
)

// request is a parsed command line.
type request struct {
	address device.Address
	command acinfinity.Command
	field   string // get only; empty prints every field
}

func invalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", acinfinity.ErrInvalidArgument, msg)
}

func validateArgs(_ *cobra.Command, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return invalidArgument(fmt.Sprintf("expected <mac_address> {get|set} [value], got %d argument(s)", len(args)))
	}
	return nil
}

// parseRequest validates the positional arguments before any radio activity.
func parseRequest(args []string) (request, error) {
	if err := validateArgs(nil, args); err != nil {
		return request{}, err
	}

	addr, err := device.ParseAddress(args[0])
	if err != nil {
		return request{}, fmt.Errorf("%w: %w", acinfinity.ErrInvalidArgument, err)
	}
	req := request{address: addr}

	switch action := strings.ToLower(args[1]); action {
	case actionGet:
		req.command = acinfinity.ReadSensors{}
		if len(args) == 3 {
			if err := acinfinity.ValidateField(args[2]); err != nil {
				return request{}, err
			}
			req.field = args[2]
		}
	case actionSet:
		if len(args) != 3 {
			return request{}, invalidArgument(fmt.Sprintf("set requires a fan level %d-%d", acinfinity.MinFanLevel, acinfinity.MaxFanLevel))
		}
		level, err := strconv.Atoi(args[2])
		if err != nil {
			return request{}, invalidArgument(fmt.Sprintf("fan level %q is not an integer", args[2]))
		}
		cmd := acinfinity.SetFanLevel{Level: level}
		if err := cmd.Validate(); err != nil {
			return request{}, err
		}
		req.command = cmd
	default:
		return request{}, invalidArgument(fmt.Sprintf("unknown action %q (expected get or set)", args[1]))
	}
	return req, nil
}

// describe is the progress line prefix.
func (r request) describe() string {
	switch c := r.command.(type) {
	case acinfinity.SetFanLevel:
		return fmt.Sprintf("Setting fan level %d on %s", c.Level, r.address)
	default:
		return fmt.Sprintf("Reading sensors from %s", r.address)
	}
}
