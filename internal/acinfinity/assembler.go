package acinfinity

import (
	"errors"
	"fmt"

	"github.com/smallnest/ringbuffer"
)

// DefaultAssemblerCapacity bounds the bytes buffered between notifications.
const DefaultAssemblerCapacity = 512

// Assembler rebuilds frames from notification fragments. A frame may arrive
// in one notification or be split across several when the link MTU is small.
// An Assembler is not safe for concurrent use.
type Assembler struct {
	buf     *ringbuffer.RingBuffer
	pending []byte // bytes of the frame being assembled
	want    int    // total size of the pending frame, 0 until its header is known
}

// NewAssembler creates an Assembler buffering at most capacity bytes.
func NewAssembler(capacity int) *Assembler {
	if capacity < SensorFrameLen {
		capacity = DefaultAssemblerCapacity
	}
	return &Assembler{
		buf:     ringbuffer.New(capacity),
		pending: make([]byte, 0, SensorFrameLen),
	}
}

// Feed appends a notification chunk and returns every frame it completes.
// On ErrMalformedPayload the buffered bytes are discarded so the next chunk
// starts a fresh frame.
func (a *Assembler) Feed(chunk []byte) ([][]byte, error) {
	if free := a.buf.Capacity() - a.buf.Length(); len(chunk) > free {
		a.Reset()
		return nil, fmt.Errorf("%w: %d buffered bytes overflow the %d byte assembler", ErrMalformedPayload, len(chunk)+a.buf.Length(), a.buf.Capacity())
	}
	if _, err := a.buf.Write(chunk); err != nil {
		a.Reset()
		return nil, fmt.Errorf("buffer notification: %w", err)
	}

	var frames [][]byte
	for {
		frame, err := a.next()
		if err != nil {
			a.Reset()
			return frames, err
		}
		if frame == nil {
			return frames, nil
		}
		frames = append(frames, frame)
	}
}

// Buffered returns the number of bytes held for an incomplete frame.
func (a *Assembler) Buffered() int {
	return len(a.pending) + a.buf.Length()
}

// Reset drops all buffered bytes.
func (a *Assembler) Reset() {
	scratch := make([]byte, 64)
	for !a.buf.IsEmpty() {
		if _, err := a.buf.TryRead(scratch); err != nil {
			break
		}
	}
	a.pending = a.pending[:0]
	a.want = 0
}

// next moves buffered bytes into the pending frame and returns it once
// complete. It returns nil, nil when more bytes are needed.
func (a *Assembler) next() ([]byte, error) {
	if a.want == 0 {
		if err := a.fill(HeaderLen); err != nil {
			return nil, err
		}
		if len(a.pending) < HeaderLen {
			if len(a.pending) > 0 && a.pending[0] != FrameMagic {
				return nil, fmt.Errorf("%w: bad magic 0x%02x", ErrMalformedPayload, a.pending[0])
			}
			return nil, nil
		}
		h, err := parseHeader(a.pending)
		if err != nil {
			return nil, err
		}
		a.want = h.frameLen()
		if a.want > a.buf.Capacity() {
			return nil, fmt.Errorf("%w: announced frame of %d bytes exceeds the %d byte assembler", ErrMalformedPayload, a.want, a.buf.Capacity())
		}
	}

	if err := a.fill(a.want); err != nil {
		return nil, err
	}
	if len(a.pending) < a.want {
		return nil, nil
	}

	frame := make([]byte, a.want)
	copy(frame, a.pending)
	a.pending = a.pending[:0]
	a.want = 0
	return frame, nil
}

// fill reads from the ring until pending holds n bytes or the ring is empty.
func (a *Assembler) fill(n int) error {
	missing := n - len(a.pending)
	if missing <= 0 || a.buf.IsEmpty() {
		return nil
	}
	if avail := a.buf.Length(); missing > avail {
		missing = avail
	}
	chunk := make([]byte, missing)
	read, err := a.buf.TryRead(chunk)
	if err != nil && !errors.Is(err, ringbuffer.ErrIsEmpty) {
		return fmt.Errorf("read notification buffer: %w", err)
	}
	a.pending = append(a.pending, chunk[:read]...)
	return nil
}
