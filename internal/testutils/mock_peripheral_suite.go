package testutils

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/srg/acinf/internal/device"
	"github.com/stretchr/testify/suite"
)

// MockPeripheralSuite provides a reusable test suite backed by a
// SimulatedPeripheral.
//
// Basic usage (controller answering every dial with a sensor frame):
//
//	type ManagerSuite struct {
//	    testutils.MockPeripheralSuite
//	}
//
//	func TestManagerSuite(t *testing.T) {
//	    suite.Run(t, new(ManagerSuite))
//	}
//
// Scripted replies:
//
//	func (s *ManagerSuite) TestRetry() {
//	    s.WithPeripheral().WithReplies(testutils.SilentReply(), testutils.AckReply())
//	    ...
//	}
type MockPeripheralSuite struct {
	suite.Suite

	Helper  *TestHelper    // Test helper with logging and assertions
	Logger  *logrus.Logger // Logger recording into LogHook
	LogHook *test.Hook

	Peripheral  *SimulatedPeripheral
	Address     device.Address
	TestTimeout time.Duration // Upper bound for a whole exchange in tests
}

// SetupSuite is called once before all tests in the suite.
func (s *MockPeripheralSuite) SetupSuite() {
	s.TestTimeout = 5 * time.Second
}

// SetupTest creates a fresh logger and the default peripheral.
func (s *MockPeripheralSuite) SetupTest() {
	s.Helper = NewTestHelper(s.T())
	s.Logger = s.Helper.Logger
	s.LogHook = s.Helper.Hook
	s.Address = s.Helper.MustAddress(DefaultAddress)

	if s.Peripheral == nil {
		s.Peripheral = NewSimulatedPeripheral()
	}
	s.Logger.Debug("Test setup completed - ready for execution")
}

// TearDownTest checks that no link leaked and resets the peripheral.
func (s *MockPeripheralSuite) TearDownTest() {
	if s.Peripheral != nil {
		s.Equal(0, s.Peripheral.OpenLinks(), "every link MUST be disconnected when the test ends")
	}
	s.Peripheral = nil
}

// WithPeripheral returns the peripheral for fluent configuration.
func (s *MockPeripheralSuite) WithPeripheral() *SimulatedPeripheral {
	if s.Peripheral == nil {
		s.Peripheral = NewSimulatedPeripheral()
	}
	return s.Peripheral
}

// WarnEntries returns the warning entries logged during the test.
func (s *MockPeripheralSuite) WarnEntries() []logrus.Entry {
	return s.Helper.Entries(logrus.WarnLevel)
}
