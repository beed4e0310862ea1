// Package connection runs single request/response exchanges with the
// controller. An exchange connects, subscribes, writes, waits for the
// matching notification and always disconnects before returning.
package connection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/acinf/internal/acinfinity"
	"github.com/srg/acinf/internal/device"
	"github.com/srg/acinf/internal/groutine"
)

// NotificationBuffer is the number of notification chunks queued between the
// transport callback and the waiting attempt. Chunks beyond it are dropped.
const NotificationBuffer = 32

var (
	// ErrAddressBusy is returned when another attempt in this process is
	// already talking to the same controller.
	ErrAddressBusy = errors.New("address busy")

	// ErrResponseTimeout is returned when the controller did not answer
	// within the attempt timeout.
	ErrResponseTimeout = errors.New("no response from controller")

	// ErrLinkLost is returned when the controller dropped the connection
	// before answering.
	ErrLinkLost = errors.New("link lost")
)

// inflight maps each address ever dialed to its attempt lock. Entries are
// never removed; an address is busy while its lock is held.
var inflight = hashmap.New[string, *sync.Mutex]()

// Manager executes attempts over a device.Transport.
type Manager struct {
	transport device.Transport
	logger    *logrus.Logger
}

// NewManager creates a Manager. A nil logger is replaced by logrus.New().
func NewManager(transport device.Transport, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{transport: transport, logger: logger}
}

// Attempt performs exactly one connect, subscribe, write, await and
// disconnect cycle bounded by timeout. The link is released before Attempt
// returns on every path.
func (m *Manager) Attempt(ctx context.Context, addr device.Address, cmd acinfinity.Command, timeout time.Duration) Outcome {
	address := addr.String()
	log := m.logger.WithFields(logrus.Fields{
		"address": address,
		"command": cmd.String(),
	})

	frame, err := acinfinity.Encode(cmd)
	if err != nil {
		return fatal(ReasonInvalidArgument, err)
	}

	mu, _ := inflight.GetOrInsert(address, &sync.Mutex{})
	if !mu.TryLock() {
		return fatal(ReasonAddressBusy, fmt.Errorf("%w: another attempt is talking to %s", ErrAddressBusy, address))
	}
	defer mu.Unlock()

	if err := ctx.Err(); err != nil {
		return fatal(ReasonCancelled, err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.WithField("timeout", timeout).Debug("Connecting...")
	link, err := m.transport.Dial(attemptCtx, addr)
	if err != nil {
		return classifyDial(ctx, err)
	}
	defer func() {
		if err := link.Disconnect(); err != nil {
			log.WithError(err).Debug("Disconnect failed")
		}
		log.Debug("Disconnected")
	}()

	notifications := make(chan []byte, NotificationBuffer)
	err = within(attemptCtx, "gatt-subscribe", func() error {
		return link.Subscribe(acinfinity.NotifyCharUUID, func(data []byte) {
			chunk := append([]byte(nil), data...)
			select {
			case notifications <- chunk:
			default:
				log.WithField("bytes", len(chunk)).Debug("Notification queue full, chunk dropped")
			}
		})
	})
	if err != nil {
		return classifyLink(ctx, timeout, fmt.Errorf("subscribe: %w", err))
	}

	if len(frame) > 0 {
		log.WithField("frame", fmt.Sprintf("%x", frame)).Debug("Writing command")
		err := within(attemptCtx, "gatt-write", func() error {
			return link.Write(acinfinity.WriteCharUUID, frame)
		})
		if err != nil {
			return classifyLink(ctx, timeout, fmt.Errorf("write: %w", err))
		}
	}

	return m.await(ctx, attemptCtx, link, cmd, notifications, timeout, log)
}

func (m *Manager) await(parent, attemptCtx context.Context, link device.Link, cmd acinfinity.Command,
	notifications <-chan []byte, timeout time.Duration, log *logrus.Entry) Outcome {

	asm := acinfinity.NewAssembler(acinfinity.DefaultAssemblerCapacity)
	for {
		select {
		case <-attemptCtx.Done():
			if errors.Is(parent.Err(), context.Canceled) {
				return fatal(ReasonCancelled, parent.Err())
			}
			return retryable(ReasonResponseTimeout, fmt.Errorf("%w within %s", ErrResponseTimeout, timeout))

		case <-link.Done():
			return retryable(ReasonLinkLost, fmt.Errorf("%w: %w", ErrLinkLost, device.ErrNotConnected))

		case chunk := <-notifications:
			frames, feedErr := asm.Feed(chunk)
			for _, frame := range frames {
				if !acinfinity.Matches(cmd, frame) {
					log.WithField("frame", fmt.Sprintf("%x", frame)).Debug("Ignoring unrelated notification")
					continue
				}
				resp, err := acinfinity.Decode(cmd, frame)
				if err != nil {
					return retryable(ReasonMalformedPayload, err)
				}
				return succeeded(resp)
			}
			if feedErr != nil {
				if errors.Is(feedErr, acinfinity.ErrMalformedPayload) {
					return retryable(ReasonMalformedPayload, feedErr)
				}
				return retryable(ReasonTransport, feedErr)
			}
		}
	}
}

// within runs a link operation that has no deadline of its own and returns
// early with ctx's error when ctx ends first. The abandoned operation is
// unblocked by the deferred Disconnect.
func within(ctx context.Context, name string, op func() error) error {
	result := make(chan error, 1)
	groutine.Go(ctx, name, func(context.Context) {
		result <- op()
	})

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func classifyDial(parent context.Context, err error) Outcome {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(parent.Err(), context.Canceled):
		return fatal(ReasonCancelled, err)
	case device.IsConnectionState(err, device.BluetoothOff):
		return fatal(ReasonAdapterUnavailable, err)
	case device.IsConnectionState(err, device.NotFound), errors.Is(err, context.DeadlineExceeded):
		return retryable(ReasonNotFound, err)
	case device.IsConnectionState(err, device.ConnectRefused):
		return retryable(ReasonConnectRefused, err)
	case device.IsConnectionState(err, device.NotConnected):
		return retryable(ReasonLinkLost, err)
	default:
		return retryable(ReasonTransport, err)
	}
}

func classifyLink(parent context.Context, timeout time.Duration, err error) Outcome {
	var nf *device.NotFoundError
	switch {
	case errors.As(err, &nf):
		return fatal(ReasonProtocolMismatch, err)
	case errors.Is(err, context.Canceled) || errors.Is(parent.Err(), context.Canceled):
		return fatal(ReasonCancelled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return retryable(ReasonResponseTimeout, fmt.Errorf("%w within %s: %w", ErrResponseTimeout, timeout, err))
	case device.IsConnectionState(err, device.BluetoothOff):
		return fatal(ReasonAdapterUnavailable, err)
	case device.IsConnectionState(err, device.NotConnected):
		return retryable(ReasonLinkLost, err)
	default:
		return retryable(ReasonTransport, err)
	}
}
