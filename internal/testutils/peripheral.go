package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/srg/acinf/internal/acinfinity"
	"github.com/srg/acinf/internal/device"
)

// Reply scripts how the simulated controller answers one dial.
type Reply struct {
	// DialErr fails the dial immediately.
	DialErr error
	// HangDial blocks the dial until its context ends.
	HangDial bool
	// SubscribeErr and WriteErr fail the corresponding link call.
	SubscribeErr error
	WriteErr     error
	// Frames are delivered as notifications, after the write for commands
	// that write and right after Subscribe otherwise.
	Frames [][]byte
	// ChunkSize splits every frame into notifications of at most this many
	// bytes. Zero delivers whole frames.
	ChunkSize int
	// DropLink closes Done instead of answering.
	DropLink bool
	// StallSubscribe and StallWrite block the corresponding link call until
	// the link is disconnected, like a GATT request the controller never
	// answers.
	StallSubscribe bool
	StallWrite     bool
}

// SensorReply answers with one sensor state frame.
func SensorReply(temperatureC, humidity, vpdKPa float64) Reply {
	return Reply{Frames: [][]byte{acinfinity.SensorFrame(temperatureC, humidity, vpdKPa)}}
}

// AckReply answers a fan level command.
func AckReply() Reply {
	return Reply{Frames: [][]byte{acinfinity.AckFrame(acinfinity.SetSequence)}}
}

// SilentReply connects and never answers.
func SilentReply() Reply {
	return Reply{}
}

// SimulatedPeripheral is an in-memory controller implementing device.Transport.
// Each Dial consumes the next scripted Reply; the last one repeats.
type SimulatedPeripheral struct {
	mu              sync.Mutex
	characteristics []string
	replies         []Reply
	dials           int
	open            int
	disconnects     int
	writes          [][]byte
	addresses       []device.Address
}

// NewSimulatedPeripheral creates a controller exposing the notify and write
// characteristics that answers every dial with a sensor frame.
func NewSimulatedPeripheral() *SimulatedPeripheral {
	return &SimulatedPeripheral{
		characteristics: []string{acinfinity.NotifyCharUUID, acinfinity.WriteCharUUID},
		replies:         []Reply{SensorReply(18.56, 70.03, 0.61)},
	}
}

// WithCharacteristics replaces the exposed characteristic UUIDs.
func (p *SimulatedPeripheral) WithCharacteristics(uuids ...string) *SimulatedPeripheral {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.characteristics = uuids
	return p
}

// WithReplies replaces the reply script.
func (p *SimulatedPeripheral) WithReplies(replies ...Reply) *SimulatedPeripheral {
	if len(replies) == 0 {
		panic("WithReplies: at least one reply is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies = replies
	return p
}

// Dial implements device.Transport.
func (p *SimulatedPeripheral) Dial(ctx context.Context, addr device.Address) (device.Link, error) {
	p.mu.Lock()
	reply := p.replies[min(p.dials, len(p.replies)-1)]
	p.dials++
	p.addresses = append(p.addresses, addr)
	chars := append([]string(nil), p.characteristics...)
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if reply.HangDial {
		<-ctx.Done()
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: %v", device.ErrNotFound, ctx.Err())
		}
		return nil, ctx.Err()
	}
	if reply.DialErr != nil {
		return nil, reply.DialErr
	}

	p.mu.Lock()
	p.open++
	p.mu.Unlock()

	return &SimulatedLink{
		peripheral:      p,
		reply:           reply,
		characteristics: chars,
		done:            make(chan struct{}),
	}, nil
}

// Dials returns the number of Dial calls.
func (p *SimulatedPeripheral) Dials() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dials
}

// OpenLinks returns the number of links not yet disconnected.
func (p *SimulatedPeripheral) OpenLinks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// Disconnects returns the number of links released.
func (p *SimulatedPeripheral) Disconnects() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.disconnects
}

// Writes returns copies of every frame written to the write characteristic.
func (p *SimulatedPeripheral) Writes() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.writes))
	for i, w := range p.writes {
		out[i] = append([]byte(nil), w...)
	}
	return out
}

// Addresses returns the addresses dialled, in order.
func (p *SimulatedPeripheral) Addresses() []device.Address {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]device.Address(nil), p.addresses...)
}

// SimulatedLink is one connection to a SimulatedPeripheral.
type SimulatedLink struct {
	peripheral      *SimulatedPeripheral
	reply           Reply
	characteristics []string

	mu       sync.Mutex
	handler  device.NotificationHandler
	closed   bool
	done     chan struct{}
	doneOnce sync.Once
}

func (l *SimulatedLink) has(uuid string) bool {
	for _, c := range l.characteristics {
		if device.SameUUID(c, uuid) {
			return true
		}
	}
	return false
}

// Subscribe implements device.Link.
func (l *SimulatedLink) Subscribe(uuid string, handler device.NotificationHandler) error {
	if !l.has(uuid) {
		return &device.NotFoundError{Resource: "characteristic", UUIDs: []string{uuid}}
	}
	if l.reply.StallSubscribe {
		<-l.done
		return device.ErrNotConnected
	}
	if l.reply.SubscribeErr != nil {
		return l.reply.SubscribeErr
	}
	l.mu.Lock()
	l.handler = handler
	l.mu.Unlock()

	if device.SameUUID(uuid, acinfinity.NotifyCharUUID) && !l.expectsWrite() {
		l.answer()
	}
	return nil
}

// Write implements device.Link.
func (l *SimulatedLink) Write(uuid string, data []byte) error {
	if !l.has(uuid) {
		return &device.NotFoundError{Resource: "characteristic", UUIDs: []string{uuid}}
	}
	if l.reply.StallWrite {
		<-l.done
		return device.ErrNotConnected
	}
	if l.reply.WriteErr != nil {
		return l.reply.WriteErr
	}
	l.peripheral.mu.Lock()
	l.peripheral.writes = append(l.peripheral.writes, append([]byte(nil), data...))
	l.peripheral.mu.Unlock()

	l.answer()
	return nil
}

// expectsWrite reports whether the scripted answer is an acknowledgment,
// which the controller only sends after a command is written.
func (l *SimulatedLink) expectsWrite() bool {
	for _, f := range l.reply.Frames {
		if len(f) != acinfinity.SensorFrameLen {
			return true
		}
	}
	return false
}

func (l *SimulatedLink) answer() {
	if l.reply.DropLink {
		l.markDone()
		return
	}

	l.mu.Lock()
	handler := l.handler
	l.mu.Unlock()
	if handler == nil {
		return
	}

	for _, frame := range l.reply.Frames {
		size := l.reply.ChunkSize
		if size <= 0 {
			size = len(frame)
		}
		for off := 0; off < len(frame); off += size {
			handler(frame[off:min(off+size, len(frame))])
		}
	}
}

// SimulateNotification delivers data as if the controller had sent it.
func (l *SimulatedLink) SimulateNotification(data []byte) {
	l.mu.Lock()
	handler := l.handler
	l.mu.Unlock()
	if handler != nil {
		handler(data)
	}
}

// Done implements device.Link.
func (l *SimulatedLink) Done() <-chan struct{} {
	return l.done
}

func (l *SimulatedLink) markDone() {
	l.doneOnce.Do(func() { close(l.done) })
}

// Disconnect implements device.Link.
func (l *SimulatedLink) Disconnect() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.handler = nil
	l.mu.Unlock()

	l.markDone()

	l.peripheral.mu.Lock()
	l.peripheral.open--
	l.peripheral.disconnects++
	l.peripheral.mu.Unlock()
	return nil
}
