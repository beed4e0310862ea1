package goble

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/acinf/internal/device"
	"github.com/srg/acinf/internal/groutine"
)

// DeviceFactory creates ble.Device instances (can be overridden in tests)
//
//nolint:revive // DeviceFactory name is intentional for test mocking
var DeviceFactory = newPlatformDevice

// gattClient is the part of ble.Client a Link needs.
type gattClient interface {
	DiscoverProfile(force bool) (*ble.Profile, error)
	Subscribe(c *ble.Characteristic, ind bool, h ble.NotificationHandler) error
	Unsubscribe(c *ble.Characteristic, ind bool) error
	WriteCharacteristic(c *ble.Characteristic, value []byte, noRsp bool) error
	CancelConnection() error
}

// Transport dials peripherals through a single go-ble HCI device.
// The device is opened on first use and shared by every Dial until Close.
type Transport struct {
	logger *logrus.Logger

	mu  sync.Mutex
	dev ble.Device

	dial func(ctx context.Context, addr string) (gattClient, error)
}

// NewTransport creates a go-ble backed device.Transport.
func NewTransport(logger *logrus.Logger) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	t := &Transport{logger: logger}
	t.dial = t.dialDevice
	return t
}

func (t *Transport) device() (ble.Device, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev != nil {
		return t.dev, nil
	}
	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", NormalizeError(err))
	}
	t.dev = dev
	return dev, nil
}

func (t *Transport) dialDevice(ctx context.Context, addr string) (gattClient, error) {
	dev, err := t.device()
	if err != nil {
		return nil, err
	}
	return dev.Dial(ctx, ble.NewAddr(addr))
}

// Dial connects to addr and discovers its GATT profile.
func (t *Transport) Dial(ctx context.Context, addr device.Address) (device.Link, error) {
	address := addr.String()

	t.logger.WithField("address", address).Debug("Dialing BLE device...")
	client, err := t.dial(ctx, address)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to connect to device with address %q: %w", address, NormalizeError(err))
	}

	t.logger.WithField("address", address).Debug("Discovering services and characteristics...")
	profile, err := t.discover(ctx, client)
	if err != nil {
		t.logger.WithFields(logrus.Fields{
			"address": address,
			"error":   err,
		}).Debug("Failed to discover profile")
		if cancelErr := client.CancelConnection(); cancelErr != nil {
			t.logger.WithField("cancel_error", cancelErr).Warn("Failed to cancel connection during profile discovery failure")
		}
		if ctx.Err() == context.Canceled {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to discover profile: %w", NormalizeError(err))
	}

	link := newLink(address, client, profile, t.logger)
	t.logger.WithFields(logrus.Fields{
		"address":         address,
		"services":        len(profile.Services),
		"characteristics": len(link.chars),
	}).Debug("BLE device connected")
	return link, nil
}

type discoverResult struct {
	profile *ble.Profile
	err     error
}

// discover runs profile discovery bounded by ctx. A discovery still running
// when ctx expires is abandoned; the caller cancels the connection.
func (t *Transport) discover(ctx context.Context, client gattClient) (*ble.Profile, error) {
	results := make(chan discoverResult, 1)
	groutine.Go(ctx, "goble-discover", func(context.Context) {
		profile, err := client.DiscoverProfile(true)
		results <- discoverResult{profile: profile, err: err}
	})

	select {
	case res := <-results:
		return res.profile, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the underlying HCI device, if one was opened.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dev == nil {
		return nil
	}
	err := t.dev.Stop()
	t.dev = nil
	return err
}
