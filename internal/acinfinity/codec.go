package acinfinity

import (
	"encoding/binary"
	"fmt"
)

// fan level command payload around the level byte
var (
	setPayloadPrefix = []byte{0x00, 0x03, 0x10, 0x01, 0x02, 0x12, 0x01}
	setPayloadSuffix = []byte{0xff, 0x01}
)

// maxHumidityRaw is 100.00 %RH on the wire.
const maxHumidityRaw = 10000

// Encode turns cmd into the bytes written to the controller.
// ReadSensors encodes to an empty frame: the controller pushes its sensor
// state as soon as notifications are enabled, so nothing has to be written.
func Encode(cmd Command) ([]byte, error) {
	switch c := cmd.(type) {
	case ReadSensors:
		return []byte{}, nil
	case SetFanLevel:
		if err := c.Validate(); err != nil {
			return nil, err
		}
		payload := make([]byte, 0, len(setPayloadPrefix)+1+len(setPayloadSuffix))
		payload = append(payload, setPayloadPrefix...)
		payload = append(payload, byte(c.Level))
		payload = append(payload, setPayloadSuffix...)
		return BuildFrame(0x00, SetSequence, payload), nil
	default:
		return nil, fmt.Errorf("%w: unsupported command %T", ErrInvalidArgument, cmd)
	}
}

// Matches reports whether frame is the kind of reply cmd waits for. It only
// looks at the frame shape; Decode performs the full validation.
func Matches(cmd Command, frame []byte) bool {
	switch cmd.(type) {
	case ReadSensors:
		return len(frame) == SensorFrameLen
	case SetFanLevel:
		return len(frame) >= HeaderLen && len(frame) != SensorFrameLen &&
			binary.BigEndian.Uint16(frame[4:6]) == SetSequence
	default:
		return false
	}
}

// Decode validates frame as the reply to cmd and returns its typed value.
// Any shape or checksum mismatch fails with ErrMalformedPayload.
func Decode(cmd Command, frame []byte) (Response, error) {
	h, err := parseHeader(frame)
	if err != nil {
		return nil, err
	}
	if want := h.frameLen(); len(frame) != want {
		return nil, fmt.Errorf("%w: frame is %d bytes, header announces %d", ErrMalformedPayload, len(frame), want)
	}

	payload := frame[HeaderLen : len(frame)-crcLen]
	want := binary.BigEndian.Uint16(frame[len(frame)-crcLen:])
	if got := checksum(payload); got != want {
		return nil, fmt.Errorf("%w: payload checksum 0x%04x, want 0x%04x", ErrMalformedPayload, got, want)
	}

	switch cmd.(type) {
	case ReadSensors:
		r, err := decodeSensors(frame, payload)
		if err != nil {
			return nil, err
		}
		return r, nil
	case SetFanLevel:
		if h.Sequence != SetSequence {
			return nil, fmt.Errorf("%w: acknowledgment sequence 0x%04x, want 0x%04x", ErrMalformedPayload, h.Sequence, SetSequence)
		}
		return Ack{Sequence: h.Sequence}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported command %T", ErrInvalidArgument, cmd)
	}
}

func decodeSensors(frame, payload []byte) (SensorReading, error) {
	if len(frame) != SensorFrameLen {
		return SensorReading{}, fmt.Errorf("%w: sensor frame is %d bytes, want %d", ErrMalformedPayload, len(frame), SensorFrameLen)
	}

	tempRaw := int16(binary.BigEndian.Uint16(payload[0:2]))
	humidityRaw := binary.BigEndian.Uint16(payload[2:4])
	vpdRaw := binary.BigEndian.Uint16(payload[4:6])

	if humidityRaw > maxHumidityRaw {
		return SensorReading{}, fmt.Errorf("%w: humidity %d.%02d%% out of range", ErrMalformedPayload, humidityRaw/100, humidityRaw%100)
	}

	temperatureC := float64(tempRaw) / 100.0
	humidity := float64(humidityRaw) / 100.0
	vpd := float64(vpdRaw) / 100.0
	if vpdRaw == 0 && humidityRaw < maxHumidityRaw {
		// not reported by the controller, derive it
		vpd = VPD(temperatureC, humidity)
	}

	return NewSensorReading(temperatureC, humidity, vpd), nil
}
