package tinygo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/srg/acinf/internal/device"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	notifyUUID = "70d51002-2c7f-4e75-ae8a-d758951ce4e0"
	writeUUID  = "70d51001-2c7f-4e75-ae8a-d758951ce4e0"
)

// mockCharacteristic records writes and allows simulating notifications.
type mockCharacteristic struct {
	uuid     string
	mu       sync.Mutex
	writes   [][]byte
	callback func([]byte)
}

func (c *mockCharacteristic) UUID() string { return c.uuid }

func (c *mockCharacteristic) EnableNotifications(cb func([]byte)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = cb
	return nil
}

func (c *mockCharacteristic) WriteWithoutResponse(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, append([]byte(nil), data...))
	return nil
}

// SimulateNotification sends a notification to the subscriber.
func (c *mockCharacteristic) SimulateNotification(data []byte) {
	c.mu.Lock()
	cb := c.callback
	c.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

type mockPeripheral struct {
	chars       []characteristic
	mu          sync.Mutex
	disconnects int
}

func (p *mockPeripheral) Characteristics() ([]characteristic, error) { return p.chars, nil }

func (p *mockPeripheral) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disconnects++
	return nil
}

type mockAdapter struct {
	peripheral *mockPeripheral
	connectErr error
	block      chan struct{}

	mu        sync.Mutex
	callbacks map[string]func()
	connects  int
	active    int
	maxActive int
	timeouts  []time.Duration
}

func newMockAdapter() *mockAdapter {
	return &mockAdapter{
		peripheral: &mockPeripheral{chars: []characteristic{
			&mockCharacteristic{uuid: notifyUUID},
			&mockCharacteristic{uuid: writeUUID},
		}},
		callbacks: make(map[string]func()),
	}
}

func (a *mockAdapter) Enable() error { return nil }

func (a *mockAdapter) Connect(addr string, timeout time.Duration) (peripheral, error) {
	a.mu.Lock()
	a.connects++
	a.active++
	a.maxActive = max(a.maxActive, a.active)
	a.timeouts = append(a.timeouts, timeout)
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.active--
		a.mu.Unlock()
	}()

	if a.block != nil {
		<-a.block
	}
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	return a.peripheral, nil
}

func (a *mockAdapter) OnDisconnect(addr string, cb func()) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cb == nil {
		delete(a.callbacks, addr)
		return
	}
	a.callbacks[addr] = cb
}

// SimulateDisconnect fires the registered disconnect callback.
func (a *mockAdapter) SimulateDisconnect(addr string) {
	a.mu.Lock()
	cb := a.callbacks[addr]
	a.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

var testAddr = device.MustParseAddress("de:ad:be:ef:ca:fe")

func TestDialSubscribeWrite(t *testing.T) {
	a := newMockAdapter()
	tr := newTransport(a, quietLogger())

	link, err := tr.Dial(context.Background(), testAddr)
	require.NoError(t, err)

	var got []byte
	require.NoError(t, link.Subscribe(notifyUUID, func(b []byte) { got = b }))
	require.NoError(t, link.Write("70D51001-2C7F-4E75-AE8A-D758951CE4E0", []byte{0xa5}))

	a.peripheral.chars[0].(*mockCharacteristic).SimulateNotification([]byte{1, 2})
	assert.Equal(t, []byte{1, 2}, got)
	assert.Equal(t, [][]byte{{0xa5}}, a.peripheral.chars[1].(*mockCharacteristic).writes)
}

func TestDialUnknownCharacteristic(t *testing.T) {
	tr := newTransport(newMockAdapter(), quietLogger())
	link, err := tr.Dial(context.Background(), testAddr)
	require.NoError(t, err)

	var nf *device.NotFoundError
	assert.ErrorAs(t, link.Write("2a00", nil), &nf)
}

func TestDialConnectError(t *testing.T) {
	a := newMockAdapter()
	a.connectErr = errors.New("org.bluez.Error.Failed: le-connection-abort-by-local")
	tr := newTransport(a, quietLogger())

	_, err := tr.Dial(context.Background(), testAddr)
	assert.ErrorIs(t, err, device.ErrConnectRefused)
}

func (a *mockAdapter) stats() (connects, maxActive int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connects, a.maxActive
}

func (p *mockPeripheral) disconnectCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disconnects
}

func TestDialTimeoutDropsLateConnection(t *testing.T) {
	a := newMockAdapter()
	a.block = make(chan struct{})
	tr := newTransport(a, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := tr.Dial(ctx, testAddr)
	assert.ErrorIs(t, err, device.ErrNotFound, "connect timeout must map to not found")

	close(a.block)
	require.NoError(t, tr.Close())
	assert.Equal(t, 1, a.peripheral.disconnectCount(), "late connection must be dropped")
}

func TestDialPassesDeadlineAsConnectTimeout(t *testing.T) {
	a := newMockAdapter()
	tr := newTransport(a, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := tr.Dial(ctx, testAddr)
	require.NoError(t, err)
	_, err = tr.Dial(context.Background(), testAddr)
	require.NoError(t, err)

	require.Len(t, a.timeouts, 2)
	assert.InDelta(t, 5*time.Second, a.timeouts[0], float64(time.Second), "deadline must bound the connect")
	assert.Zero(t, a.timeouts[1], "no deadline must select the stack default")
}

func TestAbandonedConnectNeverOverlapsNextDial(t *testing.T) {
	// abandoned connect → next Dial waits for it instead of connecting again
	a := newMockAdapter()
	a.block = make(chan struct{})
	tr := newTransport(a, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := tr.Dial(ctx, testAddr)
	require.ErrorIs(t, err, device.ErrNotFound)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	_, err = tr.Dial(ctx2, testAddr)
	require.ErrorIs(t, err, device.ErrNotFound, "dial behind an unsettled connect must time out as not found")

	connects, _ := a.stats()
	assert.Equal(t, 1, connects, "second Dial must not start a connect while the first is pending")

	close(a.block)
	link, err := tr.Dial(context.Background(), testAddr)
	require.NoError(t, err)
	defer link.Disconnect()

	connects, maxActive := a.stats()
	assert.Equal(t, 2, connects)
	assert.Equal(t, 1, maxActive, "connects must never overlap")
	assert.Equal(t, 1, a.peripheral.disconnectCount(), "late connection must be dropped before reconnecting")
}

func TestCancelledDialReturnsContextError(t *testing.T) {
	a := newMockAdapter()
	a.block = make(chan struct{})
	tr := newTransport(a, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, err := tr.Dial(ctx, testAddr)
	assert.ErrorIs(t, err, context.Canceled)

	close(a.block)
	require.NoError(t, tr.Close())
}

func TestPeerDisconnectClosesDone(t *testing.T) {
	a := newMockAdapter()
	tr := newTransport(a, quietLogger())
	link, err := tr.Dial(context.Background(), testAddr)
	require.NoError(t, err)

	a.SimulateDisconnect(testAddr.String())
	select {
	case <-link.Done():
	default:
		t.Fatal("Done must be closed after peer disconnect")
	}
}

func TestDisconnectOnce(t *testing.T) {
	a := newMockAdapter()
	tr := newTransport(a, quietLogger())
	link, err := tr.Dial(context.Background(), testAddr)
	require.NoError(t, err)
	require.NoError(t, link.Subscribe(notifyUUID, func([]byte) {}))

	require.NoError(t, link.Disconnect())
	require.NoError(t, link.Disconnect())

	assert.Equal(t, 1, a.peripheral.disconnectCount())
	assert.Empty(t, a.callbacks, "disconnect callback must be removed")
	assert.Nil(t, a.peripheral.chars[0].(*mockCharacteristic).callback, "notifications must be disabled")
}
