package goble

import (
	"context"
	"errors"
	"fmt"

	"github.com/srg/acinf/internal/device"
)

// NormalizeError maps known go-ble error strings to structured ConnectionError types.
// It ensures consistent handling even if the upstream library changes messages slightly.
// Returns wrapped errors to preserve original context.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	msg := err.Error()
	switch {
	case msg == "central manager has invalid state: have=4 want=5: is Bluetooth turned on?":
		return fmt.Errorf("%w: %v", device.ErrBluetoothOff, err)
	case device.ContainsIgnoreCase(msg, "bluetooth is turned off"),
		device.ContainsIgnoreCase(msg, "powered off"),
		device.ContainsIgnoreCase(msg, "no devices available"),
		device.ContainsIgnoreCase(msg, "can't init hci"):
		return fmt.Errorf("%w: %v", device.ErrBluetoothOff, err)
	case errors.Is(err, context.DeadlineExceeded),
		device.ContainsIgnoreCase(msg, "can't dial"),
		device.ContainsIgnoreCase(msg, "not found"):
		return fmt.Errorf("%w: %v", device.ErrNotFound, err)
	case device.ContainsIgnoreCase(msg, "connection refused"),
		device.ContainsIgnoreCase(msg, "connection failed"),
		device.ContainsIgnoreCase(msg, "failed to connect"):
		return fmt.Errorf("%w: %v", device.ErrConnectRefused, err)
	case device.ContainsIgnoreCase(msg, "device not connected"),
		device.ContainsIgnoreCase(msg, "disconnected"):
		return fmt.Errorf("%w: %v", device.ErrNotConnected, err)
	default:
		return err
	}
}
