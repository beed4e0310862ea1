package main

import (
	"bytes"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/srg/acinf/internal/device"
	"github.com/srg/acinf/internal/testutils"
	"github.com/srg/acinf/pkg/config"
)

// CommandTestSuite extends MockPeripheralSuite with command testing utilities.
type CommandTestSuite struct {
	testutils.MockPeripheralSuite
}

// CommandResult is the captured outcome of one invocation.
type CommandResult struct {
	Stdout string
	Stderr string
	Err    error
	Code   int
}

// ExecuteCommand runs acinf with args against the simulated peripheral.
func (s *CommandTestSuite) ExecuteCommand(args ...string) CommandResult {
	a := newApp(config.DefaultConfig(), func(backend string, logger *logrus.Logger) (device.Transport, error) {
		return s.Peripheral, nil
	})
	a.isTerminal = func(io.Writer) bool { return false }

	cmd := newRootCmd(a)
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return CommandResult{Stdout: stdout.String(), Stderr: stderr.String(), Err: err, Code: exitCode(err)}
}
