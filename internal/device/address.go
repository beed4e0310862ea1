package device

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrInvalidAddress is returned for strings that are not a 6-byte hardware address.
var ErrInvalidAddress = errors.New("invalid device address")

// Address is a 6-byte Bluetooth device address.
type Address [6]byte

// ParseAddress parses XX:XX:XX:XX:XX:XX (or dash separated), in either case.
func ParseAddress(s string) (Address, error) {
	var addr Address

	trimmed := strings.TrimSpace(s)
	// net.ParseMAC also accepts dotted and 8/20-byte forms; only 6-byte colon
	// or dash forms are device addresses
	if len(trimmed) != 17 || strings.Contains(trimmed, ".") {
		return addr, fmt.Errorf("%w: %q (expected XX:XX:XX:XX:XX:XX)", ErrInvalidAddress, s)
	}
	hw, err := net.ParseMAC(trimmed)
	if err != nil || len(hw) != len(addr) {
		return addr, fmt.Errorf("%w: %q (expected XX:XX:XX:XX:XX:XX)", ErrInvalidAddress, s)
	}
	copy(addr[:], hw)
	return addr, nil
}

// MustParseAddress is like ParseAddress but panics on error. For constants and tests.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// String renders the address as upper-case colon separated hex.
func (a Address) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}
