package device

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NotFoundError represents an error when a GATT resource is not found
type NotFoundError struct {
	Resource string   // "service", "characteristic"
	UUIDs    []string // One or more UUIDs (e.g., [charUUID] or [serviceUUID, charUUID])
}

func (e *NotFoundError) Error() string {
	if len(e.UUIDs) == 0 {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	if len(e.UUIDs) == 1 {
		return fmt.Sprintf("%s %q not found", e.Resource, e.UUIDs[0])
	}
	return fmt.Sprintf("%s %q not found in service %q", e.Resource, e.UUIDs[len(e.UUIDs)-1], e.UUIDs[0])
}

// ConnectionState represents the specific kind of connection failure
type ConnectionState string

const (
	NotFound       ConnectionState = "not_found"
	ConnectRefused ConnectionState = "connect_refused"
	NotConnected   ConnectionState = "not_connected"
	BluetoothOff   ConnectionState = "bluetooth_off"
)

// ConnectionError represents any connection-related problem
type ConnectionError struct {
	State ConnectionState
	Msg   string
}

// Error implements the error interface
func (e *ConnectionError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Msg == "" {
		return strings.ReplaceAll(string(e.State), "_", " ")
	}
	return fmt.Sprintf("%s: %s", strings.ReplaceAll(string(e.State), "_", " "), e.Msg)
}

// Is allows errors.Is to compare ConnectionError values by State
func (e *ConnectionError) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*ConnectionError)
	if !ok {
		return false
	}
	return e.State == t.State
}

// Predefined sentinel errors for connection states
var (
	ErrNotFound       = &ConnectionError{State: NotFound}
	ErrConnectRefused = &ConnectionError{State: ConnectRefused}
	ErrNotConnected   = &ConnectionError{State: NotConnected}
	ErrBluetoothOff   = &ConnectionError{State: BluetoothOff}
)

// IsConnectionState reports whether err is a ConnectionError with the given state
func IsConnectionState(err error, state ConnectionState) bool {
	var cerr *ConnectionError
	if errors.As(err, &cerr) {
		return cerr.State == state
	}
	return false
}

// ContainsIgnoreCase checks substring case-insensitively.
// Backends use it to map library error strings onto ConnectionError states.
func ContainsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Transport opens links to BLE peripherals.
type Transport interface {
	// Dial connects to the peripheral at addr and discovers its GATT profile.
	// It must honour ctx cancellation and deadline.
	Dial(ctx context.Context, addr Address) (Link, error)
}

// NotificationHandler receives notification payloads. The slice is only
// valid for the duration of the call.
type NotificationHandler func(data []byte)

// Link is one live connection to a peripheral. A Link is used for a single
// exchange and then disconnected; it is never reused.
type Link interface {
	// Subscribe enables notifications on the characteristic identified by uuid.
	Subscribe(uuid string, handler NotificationHandler) error

	// Write writes data to the characteristic identified by uuid.
	Write(uuid string, data []byte) error

	// Done is closed when the peripheral drops the connection.
	Done() <-chan struct{}

	// Disconnect releases the connection. It is safe to call more than once
	// and is best effort: the link is considered released even on error.
	Disconnect() error
}
