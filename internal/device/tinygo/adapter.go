// Package tinygo implements device.Transport on tinygo.org/x/bluetooth
// (BlueZ over D-Bus on Linux, CoreBluetooth on macOS, WinRT on Windows).
//
// On macOS peripherals are addressed by CoreBluetooth UUIDs rather than
// hardware addresses, so this backend is mainly useful on Linux.
package tinygo

import (
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// characteristic is the subset of bluetooth.DeviceCharacteristic a Link uses.
type characteristic interface {
	UUID() string
	EnableNotifications(cb func([]byte)) error
	WriteWithoutResponse(data []byte) error
}

// peripheral is one connected device.
type peripheral interface {
	Characteristics() ([]characteristic, error)
	Disconnect() error
}

// adapter abstracts the host radio for testing.
type adapter interface {
	Enable() error
	// Connect blocks until the peripheral answers or the stack gives up.
	// A non-zero timeout bounds the attempt on stacks that support it.
	Connect(addr string, timeout time.Duration) (peripheral, error)
	// OnDisconnect registers cb for the peripheral at addr; a nil cb removes it.
	OnDisconnect(addr string, cb func())
}

// hostAdapter wraps bluetooth.Adapter.
type hostAdapter struct {
	adapter *bluetooth.Adapter

	mu        sync.Mutex
	callbacks map[string]func()
	enabled   bool
}

func newHostAdapter() *hostAdapter {
	return &hostAdapter{
		adapter:   bluetooth.DefaultAdapter,
		callbacks: make(map[string]func()),
	}
}

func (a *hostAdapter) Enable() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.enabled {
		return nil
	}
	if err := a.adapter.Enable(); err != nil {
		return err
	}

	a.adapter.SetConnectHandler(func(dev bluetooth.Device, connected bool) {
		if connected {
			return
		}
		a.mu.Lock()
		cb := a.callbacks[dev.Address.String()]
		a.mu.Unlock()
		if cb != nil {
			cb()
		}
	})
	a.enabled = true
	return nil
}

func (a *hostAdapter) Connect(addr string, timeout time.Duration) (peripheral, error) {
	var address bluetooth.Address
	address.Set(addr)

	var params bluetooth.ConnectionParams
	if timeout > 0 {
		params.ConnectionTimeout = bluetooth.NewDuration(timeout)
	}
	dev, err := a.adapter.Connect(address, params)
	if err != nil {
		return nil, err
	}
	return &hostPeripheral{device: dev}, nil
}

func (a *hostAdapter) OnDisconnect(addr string, cb func()) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cb == nil {
		delete(a.callbacks, addr)
		return
	}
	a.callbacks[addr] = cb
}

type hostPeripheral struct {
	device bluetooth.Device
}

func (p *hostPeripheral) Characteristics() ([]characteristic, error) {
	svcs, err := p.device.DiscoverServices(nil)
	if err != nil {
		return nil, err
	}

	var out []characteristic
	for _, svc := range svcs {
		chars, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			return nil, err
		}
		for i := range chars {
			out = append(out, &hostCharacteristic{char: chars[i]})
		}
	}
	return out, nil
}

func (p *hostPeripheral) Disconnect() error {
	return p.device.Disconnect()
}

type hostCharacteristic struct {
	char bluetooth.DeviceCharacteristic
}

func (c *hostCharacteristic) UUID() string {
	return c.char.UUID().String()
}

func (c *hostCharacteristic) EnableNotifications(cb func([]byte)) error {
	return c.char.EnableNotifications(cb)
}

func (c *hostCharacteristic) WriteWithoutResponse(data []byte) error {
	_, err := c.char.WriteWithoutResponse(data)
	return err
}
