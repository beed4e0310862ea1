package acinfinity

import (
	"encoding/binary"
	"fmt"

	"github.com/sigurn/crc16"
)

const (
	// FrameMagic is the first byte of every frame.
	FrameMagic byte = 0xA5

	// HeaderLen is the size of the frame header including its CRC.
	HeaderLen = 8

	// SensorFrameLen is the size of the sensor state notification.
	SensorFrameLen = 34

	// SetSequence is the sequence number carried by fan level commands and
	// echoed back in their acknowledgment.
	SetSequence uint16 = 0x013b

	crcLen = 2

	// sensorPayloadLen excludes the trailing payload CRC.
	sensorPayloadLen = SensorFrameLen - HeaderLen - crcLen
)

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

func checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}

// header is the decoded fixed part of a frame.
type header struct {
	Type     byte
	Length   uint16
	Sequence uint16
}

// frameLen returns the total frame size announced by the header.
func (h header) frameLen() int {
	return HeaderLen + int(h.Length) + 2 + crcLen
}

// parseHeader validates the magic byte and header CRC of b.
func parseHeader(b []byte) (header, error) {
	if len(b) < HeaderLen {
		return header{}, fmt.Errorf("%w: frame of %d bytes is shorter than its header", ErrMalformedPayload, len(b))
	}
	if b[0] != FrameMagic {
		return header{}, fmt.Errorf("%w: bad magic 0x%02x", ErrMalformedPayload, b[0])
	}
	want := binary.BigEndian.Uint16(b[6:8])
	if got := checksum(b[:6]); got != want {
		return header{}, fmt.Errorf("%w: header checksum 0x%04x, want 0x%04x", ErrMalformedPayload, got, want)
	}
	return header{
		Type:     b[1],
		Length:   binary.BigEndian.Uint16(b[2:4]),
		Sequence: binary.BigEndian.Uint16(b[4:6]),
	}, nil
}

// BuildFrame wraps payload in a header and appends the payload CRC.
// payload must be at least two bytes long.
func BuildFrame(frameType byte, sequence uint16, payload []byte) []byte {
	frame := make([]byte, HeaderLen, HeaderLen+len(payload)+crcLen)
	frame[0] = FrameMagic
	frame[1] = frameType
	binary.BigEndian.PutUint16(frame[2:4], uint16(len(payload)-2))
	binary.BigEndian.PutUint16(frame[4:6], sequence)
	binary.BigEndian.PutUint16(frame[6:8], checksum(frame[:6]))

	frame = append(frame, payload...)
	return binary.BigEndian.AppendUint16(frame, checksum(payload))
}

// SensorFrame builds the notification a controller pushes with its sensor
// state. Values are scaled by 100 on the wire.
func SensorFrame(temperatureC, humidity, vpdKPa float64) []byte {
	payload := make([]byte, sensorPayloadLen)
	binary.BigEndian.PutUint16(payload[0:2], uint16(int16(scale(temperatureC))))
	binary.BigEndian.PutUint16(payload[2:4], uint16(scale(humidity)))
	binary.BigEndian.PutUint16(payload[4:6], uint16(scale(vpdKPa)))
	return BuildFrame(0x1e, 0x0001, payload)
}

// AckFrame builds the acknowledgment a controller sends for a command with
// the given sequence.
func AckFrame(sequence uint16) []byte {
	return BuildFrame(0x00, sequence, []byte{0x00, 0x03})
}

func scale(v float64) int {
	if v < 0 {
		return int(v*100 - 0.5)
	}
	return int(v*100 + 0.5)
}
