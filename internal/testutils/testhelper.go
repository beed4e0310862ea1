package testutils

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/srg/acinf/internal/device"
)

// DefaultAddress is the controller address used across tests.
const DefaultAddress = "DE:AD:BE:EF:CA:FE"

type TestHelper struct {
	T      *testing.T
	Logger *logrus.Logger
	Hook   *test.Hook
}

// NewTestHelper creates a test helper whose logger records entries in Hook
// instead of printing them.
func NewTestHelper(t *testing.T) *TestHelper {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel) // enable debug logs to track execution flow
	return &TestHelper{
		T:      t,
		Logger: logger,
		Hook:   hook,
	}
}

// Entries returns the recorded entries at level.
func (h *TestHelper) Entries(level logrus.Level) []logrus.Entry {
	var out []logrus.Entry
	for _, e := range h.Hook.AllEntries() {
		if e.Level == level {
			out = append(out, *e)
		}
	}
	return out
}

// MustAddress parses s or fails the test.
func (h *TestHelper) MustAddress(s string) device.Address {
	h.T.Helper()
	addr, err := device.ParseAddress(s)
	if err != nil {
		h.T.Fatalf("invalid test address %q: %v", s, err)
	}
	return addr
}
