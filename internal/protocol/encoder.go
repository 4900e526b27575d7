package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Frame prefixes body with its length.
func Frame(body []byte) []byte {
	out := make([]byte, headerSize+len(body))
	binary.BigEndian.PutUint32(out, uint32(len(body)))
	copy(out[headerSize:], body)
	return out
}

// EncodeCommand frames an outbound text command.
func EncodeCommand(command string) []byte {
	return Frame([]byte(command))
}

// Encode frames an inbound message. The game produces these; the companion uses it
// for replaying captured sessions and in tests.
func Encode(msg Message) ([]byte, error) {
	body := []byte{byte(msg.Kind())}

	switch m := msg.(type) {
	case RiderPosition:
		body = binary.BigEndian.AppendUint32(body, math.Float32bits(m.X))
		body = binary.BigEndian.AppendUint32(body, math.Float32bits(m.Y))
		body = binary.BigEndian.AppendUint32(body, math.Float32bits(m.Z))
	case CommandAvailable:
		var err error
		if body, err = appendString(body, m.Command); err != nil {
			return nil, err
		}
		body = binary.BigEndian.AppendUint64(body, m.Sequence)
	case PowerUpAvailable:
		var err error
		if body, err = appendString(body, m.PowerUp); err != nil {
			return nil, err
		}
	case Ping:
		body = binary.BigEndian.AppendUint32(body, m.RiderID)
	default:
		return nil, fmt.Errorf("cannot encode %T", msg)
	}
	return Frame(body), nil
}

func appendString(b []byte, s string) ([]byte, error) {
	if len(s) > math.MaxUint16 {
		return nil, fmt.Errorf("string of %d bytes does not fit a frame field", len(s))
	}
	b = binary.BigEndian.AppendUint16(b, uint16(len(s)))
	return append(b, s...), nil
}
