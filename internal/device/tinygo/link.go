package tinygo

import (
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/srg/acinf/internal/device"
)

// Link implements device.Link over a tinygo peripheral.
type Link struct {
	address    string
	adapter    adapter
	peripheral peripheral
	logger     *logrus.Logger

	chars map[string]characteristic

	mu         sync.Mutex
	subscribed []characteristic
	closed     bool

	done     chan struct{}
	doneOnce sync.Once
}

func (l *Link) characteristic(uuid string) (characteristic, error) {
	c, ok := l.chars[device.NormalizeUUID(uuid)]
	if !ok {
		return nil, &device.NotFoundError{Resource: "characteristic", UUIDs: []string{uuid}}
	}
	return c, nil
}

func (l *Link) Subscribe(uuid string, handler device.NotificationHandler) error {
	c, err := l.characteristic(uuid)
	if err != nil {
		return err
	}
	if err := c.EnableNotifications(func(buf []byte) { handler(buf) }); err != nil {
		return NormalizeError(err)
	}

	l.mu.Lock()
	l.subscribed = append(l.subscribed, c)
	l.mu.Unlock()
	return nil
}

func (l *Link) Write(uuid string, data []byte) error {
	c, err := l.characteristic(uuid)
	if err != nil {
		return err
	}
	l.logger.WithFields(logrus.Fields{
		"address": l.address,
		"char":    uuid,
		"bytes":   len(data),
	}).Debug("Writing characteristic")
	return NormalizeError(c.WriteWithoutResponse(data))
}

func (l *Link) Done() <-chan struct{} {
	return l.done
}

func (l *Link) markDone() {
	l.doneOnce.Do(func() { close(l.done) })
}

// Disconnect disables notifications and drops the connection. Only the first
// call reaches the stack.
func (l *Link) Disconnect() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	subs := l.subscribed
	l.subscribed = nil
	l.mu.Unlock()

	l.adapter.OnDisconnect(l.address, nil)
	defer l.markDone()

	for _, c := range subs {
		if err := c.EnableNotifications(nil); err != nil {
			l.logger.WithFields(logrus.Fields{
				"address": l.address,
				"error":   err,
			}).Debug("Failed to disable notifications")
		}
	}
	return NormalizeError(l.peripheral.Disconnect())
}
