/*
Package protocol
File: decoder.go
Description:
    Reassembles frames from an arbitrarily fragmented byte stream.
    A read may hold part of a frame, exactly one frame or several; the decoder
    buffers until a whole frame is present. A malformed frame is dropped with a
    warning and decoding carries on at the next frame boundary. An oversized
    frame is skipped as it streams in, never buffered.
*/

package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math"
)

const (
	headerSize = 4
	// MaxFrameSize bounds a frame body. A larger length prefix means the stream is out of sync.
	MaxFrameSize = 64 * 1024
)

var ErrMalformedFrame = errors.New("malformed frame")

type Decoder struct {
	buf []byte
	// skip counts body bytes of an oversized frame still to be thrown away.
	skip int
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Buffered returns the number of bytes waiting for the rest of their frame.
func (d *Decoder) Buffered() int { return len(d.buf) }

// Reset discards any partial frame, e.g. after the connection dropped.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.skip = 0
}

// Feed appends data to the stream and returns every message completed by it, in order.
func (d *Decoder) Feed(data []byte) []Message {
	if d.skip > 0 {
		n := min(d.skip, len(data))
		d.skip -= n
		data = data[n:]
	}
	d.buf = append(d.buf, data...)

	var out []Message
	for len(d.buf) >= headerSize {
		size := binary.BigEndian.Uint32(d.buf[:headerSize])
		if size == 0 {
			log.Printf("DECODER: WARN dropping empty frame")
			d.buf = d.buf[headerSize:]
			continue
		}
		if size > MaxFrameSize {
			log.Printf("DECODER: WARN skipping frame of %d bytes, limit is %d", size, MaxFrameSize)
			body := d.buf[headerSize:]
			if uint64(len(body)) >= uint64(size) {
				d.buf = body[size:]
				continue
			}
			d.skip = int(size) - len(body)
			d.buf = d.buf[:0]
			break
		}
		end := headerSize + int(size)
		if len(d.buf) < end {
			break
		}

		msg, err := DecodeBody(d.buf[headerSize:end])
		if err != nil {
			log.Printf("DECODER: WARN %v", err)
		} else {
			out = append(out, msg)
		}
		d.buf = d.buf[end:]
	}

	if len(d.buf) == 0 {
		d.buf = nil
	}
	return out
}

// DecodeBody decodes one frame body (without the length prefix).
func DecodeBody(body []byte) (Message, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformedFrame)
	}
	r := reader{b: body[1:]}

	var msg Message
	switch Kind(body[0]) {
	case KindRiderPosition:
		msg = RiderPosition{X: r.float32(), Y: r.float32(), Z: r.float32()}
	case KindCommandAvailable:
		msg = CommandAvailable{Command: r.string(), Sequence: r.uint64()}
	case KindPowerUpAvailable:
		msg = PowerUpAvailable{PowerUp: r.string()}
	case KindPing:
		msg = Ping{RiderID: r.uint32()}
	default:
		return nil, fmt.Errorf("%w: unknown message kind 0x%02x", ErrMalformedFrame, body[0])
	}

	if r.err != nil {
		return nil, fmt.Errorf("%w: kind 0x%02x: %v", ErrMalformedFrame, body[0], r.err)
	}
	if len(r.b) != 0 {
		return nil, fmt.Errorf("%w: kind 0x%02x has %d trailing bytes", ErrMalformedFrame, body[0], len(r.b))
	}
	return msg, nil
}

var errShortBody = errors.New("body too short")

// reader consumes big-endian fields and remembers the first error.
type reader struct {
	b   []byte
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.b) < n {
		r.err = errShortBody
		return nil
	}
	v := r.b[:n]
	r.b = r.b[n:]
	return v
}

func (r *reader) uint16() uint16 {
	if v := r.take(2); v != nil {
		return binary.BigEndian.Uint16(v)
	}
	return 0
}

func (r *reader) uint32() uint32 {
	if v := r.take(4); v != nil {
		return binary.BigEndian.Uint32(v)
	}
	return 0
}

func (r *reader) uint64() uint64 {
	if v := r.take(8); v != nil {
		return binary.BigEndian.Uint64(v)
	}
	return 0
}

func (r *reader) float32() float32 {
	return math.Float32frombits(r.uint32())
}

func (r *reader) string() string {
	n := r.uint16()
	if v := r.take(int(n)); v != nil {
		return string(v)
	}
	return ""
}
