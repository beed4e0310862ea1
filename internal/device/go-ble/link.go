package goble

import (
	"context"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/acinf/internal/device"
	"github.com/srg/acinf/internal/groutine"
)

type subscription struct {
	char *ble.Characteristic
	ind  bool
}

// Link is a single go-ble connection. It implements device.Link.
type Link struct {
	address string
	client  gattClient
	logger  *logrus.Logger

	// normalized characteristic UUID -> live handle
	chars map[string]*ble.Characteristic

	mu     sync.Mutex
	subs   []subscription
	closed bool

	done     chan struct{}
	doneOnce sync.Once
}

func newLink(address string, client gattClient, profile *ble.Profile, logger *logrus.Logger) *Link {
	l := &Link{
		address: address,
		client:  client,
		logger:  logger,
		chars:   make(map[string]*ble.Characteristic),
		done:    make(chan struct{}),
	}
	for _, svc := range profile.Services {
		for _, c := range svc.Characteristics {
			l.chars[device.NormalizeUUID(c.UUID.String())] = c
		}
	}

	// CoreBluetooth reports peer disconnects on this channel; other stacks
	// surface them as write/subscribe errors.
	if dc, ok := client.(interface{ Disconnected() <-chan struct{} }); ok {
		groutine.Go(context.Background(), "goble-link-monitor", func(context.Context) {
			select {
			case <-dc.Disconnected():
				l.logger.WithField("address", address).Debug("Peripheral dropped the connection")
				l.markDone()
			case <-l.done:
			}
		})
	} else {
		l.logger.Debug("Client does not support Disconnected() channel")
	}
	return l
}

func (l *Link) characteristic(uuid string) (*ble.Characteristic, error) {
	c, ok := l.chars[device.NormalizeUUID(uuid)]
	if !ok {
		return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{uuid}}
	}
	return c, nil
}

// Subscribe enables notifications, falling back to indications when the
// characteristic only supports those.
func (l *Link) Subscribe(uuid string, handler device.NotificationHandler) error {
	c, err := l.characteristic(uuid)
	if err != nil {
		return err
	}

	ind := c.Property&ble.CharNotify == 0 && c.Property&ble.CharIndicate != 0
	if err := l.client.Subscribe(c, ind, func(data []byte) { handler(data) }); err != nil {
		return NormalizeError(err)
	}

	l.mu.Lock()
	l.subs = append(l.subs, subscription{char: c, ind: ind})
	l.mu.Unlock()
	return nil
}

// Write sends data without response when the characteristic allows it.
func (l *Link) Write(uuid string, data []byte) error {
	c, err := l.characteristic(uuid)
	if err != nil {
		return err
	}

	noRsp := c.Property&ble.CharWriteNR != 0
	l.logger.WithFields(logrus.Fields{
		"address": l.address,
		"char":    uuid,
		"bytes":   len(data),
		"no_rsp":  noRsp,
	}).Debug("Writing characteristic")
	return NormalizeError(l.client.WriteCharacteristic(c, data, noRsp))
}

// Done is closed once the link is lost or disconnected.
func (l *Link) Done() <-chan struct{} {
	return l.done
}

func (l *Link) markDone() {
	l.doneOnce.Do(func() { close(l.done) })
}

// Disconnect unsubscribes and cancels the connection. Only the first call
// talks to the radio.
func (l *Link) Disconnect() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	subs := l.subs
	l.subs = nil
	l.mu.Unlock()

	defer l.markDone()

	for _, s := range subs {
		if err := l.client.Unsubscribe(s.char, s.ind); err != nil {
			l.logger.WithFields(logrus.Fields{
				"address": l.address,
				"error":   err,
			}).Debug("Unsubscribe failed")
		}
	}

	if err := l.client.CancelConnection(); err != nil {
		return NormalizeError(err)
	}
	l.logger.WithField("address", l.address).Debug("BLE device disconnected")
	return nil
}
