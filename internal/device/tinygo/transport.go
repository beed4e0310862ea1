package tinygo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/acinf/internal/device"
	"github.com/srg/acinf/internal/groutine"
)

const (
	// maxConnectTimeout is the largest connection timeout a BLE Duration
	// (uint16 of 625us units) can carry.
	maxConnectTimeout = 40 * time.Second

	// closeGrace bounds how long Close waits for an abandoned connect.
	closeGrace = 2 * time.Second
)

// Transport implements device.Transport on tinygo.org/x/bluetooth.
// At most one Connect is outstanding at a time: a connect abandoned by an
// expired Dial must settle before the next one starts.
type Transport struct {
	adapter adapter
	logger  *logrus.Logger

	mu      sync.Mutex
	pending chan connectResult
}

// NewTransport creates a Transport on the default host adapter.
func NewTransport(logger *logrus.Logger) *Transport {
	return newTransport(newHostAdapter(), logger)
}

func newTransport(a adapter, logger *logrus.Logger) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	return &Transport{adapter: a, logger: logger}
}

type connectResult struct {
	peripheral peripheral
	err        error
}

// Dial connects to addr. The connect is bounded by the ctx deadline where the
// stack honours a connection timeout; where it does not, Dial still returns
// at ctx expiry and the abandoned connect is settled by the next Dial or Close.
func (t *Transport) Dial(ctx context.Context, addr device.Address) (device.Link, error) {
	// BlueZ reports addresses in upper case.
	address := addr.String()

	if err := t.settle(ctx); err != nil {
		return nil, t.dialError(ctx, address, err)
	}
	if err := t.adapter.Enable(); err != nil {
		return nil, fmt.Errorf("failed to enable adapter: %w", NormalizeError(err))
	}

	timeout := connectTimeout(ctx)
	ch := make(chan connectResult, 1)
	groutine.Go(ctx, "tinygo-connect", func(context.Context) {
		p, err := t.adapter.Connect(address, timeout)
		ch <- connectResult{peripheral: p, err: err}
	})

	select {
	case <-ctx.Done():
		t.mu.Lock()
		t.pending = ch
		t.mu.Unlock()
		return nil, t.dialError(ctx, address, ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("connect to %s: %w", address, NormalizeError(r.err))
		}
		return t.open(address, r.peripheral)
	}
}

func (t *Transport) dialError(ctx context.Context, address string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return fmt.Errorf("connect to %s: %w", address, NormalizeError(err))
}

// settle waits for a connect abandoned by an earlier Dial and drops the
// connection if it succeeded late.
func (t *Transport) settle(ctx context.Context) error {
	t.mu.Lock()
	ch := t.pending
	t.mu.Unlock()
	if ch == nil {
		return nil
	}

	t.logger.Debug("Waiting for an abandoned connect to settle...")
	select {
	case r := <-ch:
		t.mu.Lock()
		t.pending = nil
		t.mu.Unlock()
		if r.err == nil {
			if err := r.peripheral.Disconnect(); err != nil {
				t.logger.WithField("error", err).Debug("Failed to drop late connection")
			}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close waits briefly for an abandoned connect and drops its connection.
func (t *Transport) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), closeGrace)
	defer cancel()
	if err := t.settle(ctx); err != nil {
		return fmt.Errorf("abandoned connect did not settle: %w", err)
	}
	return nil
}

// connectTimeout derives the stack connection timeout from the ctx deadline.
// Zero selects the stack default.
func connectTimeout(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0
	}
	return min(max(time.Until(deadline), time.Millisecond), maxConnectTimeout)
}

func (t *Transport) open(address string, p peripheral) (device.Link, error) {
	chars, err := p.Characteristics()
	if err != nil {
		if dErr := p.Disconnect(); dErr != nil {
			t.logger.WithField("cancel_error", dErr).Warn("Failed to disconnect after discovery failure")
		}
		return nil, fmt.Errorf("failed to discover characteristics: %w", NormalizeError(err))
	}

	l := &Link{
		address:    address,
		adapter:    t.adapter,
		peripheral: p,
		logger:     t.logger,
		chars:      make(map[string]characteristic, len(chars)),
		done:       make(chan struct{}),
	}
	for _, c := range chars {
		l.chars[device.NormalizeUUID(c.UUID())] = c
	}
	t.adapter.OnDisconnect(address, l.markDone)

	t.logger.WithFields(logrus.Fields{
		"address":         address,
		"characteristics": len(chars),
	}).Debug("BLE device connected")
	return l, nil
}

// NormalizeError maps BlueZ and CoreBluetooth error strings onto
// device.ConnectionError states.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	msg := err.Error()
	switch {
	case device.ContainsIgnoreCase(msg, "org.bluez.Error.NotReady"),
		device.ContainsIgnoreCase(msg, "powered off"),
		device.ContainsIgnoreCase(msg, "no bluetooth adapter"),
		device.ContainsIgnoreCase(msg, "adapter not found"):
		return fmt.Errorf("%w: %v", device.ErrBluetoothOff, err)
	case errors.Is(err, context.DeadlineExceeded),
		device.ContainsIgnoreCase(msg, "timeout"),
		device.ContainsIgnoreCase(msg, "does not exist"),
		device.ContainsIgnoreCase(msg, "unknown object"):
		return fmt.Errorf("%w: %v", device.ErrNotFound, err)
	case device.ContainsIgnoreCase(msg, "org.bluez.Error.Failed"),
		device.ContainsIgnoreCase(msg, "le-connection-abort-by-local"),
		device.ContainsIgnoreCase(msg, "connection refused"):
		return fmt.Errorf("%w: %v", device.ErrConnectRefused, err)
	case strings.Contains(msg, "NotConnected"),
		device.ContainsIgnoreCase(msg, "not connected"),
		device.ContainsIgnoreCase(msg, "disconnected"):
		return fmt.Errorf("%w: %v", device.ErrNotConnected, err)
	default:
		return err
	}
}
