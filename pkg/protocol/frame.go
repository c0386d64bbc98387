package protocol

import (
	"errors"
	"io"
)

const (
	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 4

	// MaxPayloadSize is the maximum payload size (2^16 - 1 bytes).
	MaxPayloadSize = 65535
)

// FrameType identifies the type of frame.
type FrameType uint8

const (
	FrameHandshake  FrameType = 0x00 // Connection setup
	FramePatches    FrameType = 0x01 // Host → client patch batch
	FrameSchedule   FrameType = 0x02 // Client → host render request
	FrameInvalidate FrameType = 0x03 // Client → host signal invalidation
	FrameAck        FrameType = 0x04 // Client → host acknowledgment
	FrameControl    FrameType = 0x05 // Ping, pong, resync, close
	FrameError      FrameType = 0x06 // Error report
)

// String returns the string representation of the frame type.
func (ft FrameType) String() string {
	switch ft {
	case FrameHandshake:
		return "Handshake"
	case FramePatches:
		return "Patches"
	case FrameSchedule:
		return "Schedule"
	case FrameInvalidate:
		return "Invalidate"
	case FrameAck:
		return "Ack"
	case FrameControl:
		return "Control"
	case FrameError:
		return "Error"
	default:
		return "Unknown"
	}
}

// FrameFlags are optional flags for frame processing.
type FrameFlags uint8

const (
	// FlagResync marks a Patches frame re-sent from the journal during a
	// catch-up; clients may treat it differently from live traffic.
	FlagResync FrameFlags = 0x01

	// FlagMore marks a Patches frame whose commit continues in the next
	// frame. A commit is complete, and safe to acknowledge, once a frame
	// with its sequence arrives without this flag.
	FlagMore FrameFlags = 0x02
)

// Has reports whether the flags contain flag.
func (ff FrameFlags) Has(flag FrameFlags) bool {
	return ff&flag != 0
}

// Frame errors.
var (
	ErrFrameTooLarge    = errors.New("protocol: frame payload too large")
	ErrInvalidFrameType = errors.New("protocol: invalid frame type")
)

// Frame is a protocol frame: a 4-byte header (type, flags, big-endian
// payload length) followed by the payload.
type Frame struct {
	Type    FrameType
	Flags   FrameFlags
	Payload []byte
}

// Encode encodes the frame to bytes including the header.
func (f *Frame) Encode() []byte {
	length := len(f.Payload)
	buf := make([]byte, FrameHeaderSize+length)
	buf[0] = byte(f.Type)
	buf[1] = byte(f.Flags)
	buf[2] = byte(length >> 8)
	buf[3] = byte(length)
	copy(buf[FrameHeaderSize:], f.Payload)
	return buf
}

// EncodeTo encodes the frame using the provided encoder.
func (f *Frame) EncodeTo(e *Encoder) {
	e.WriteByte(byte(f.Type))
	e.WriteByte(byte(f.Flags))
	e.WriteUint16(uint16(len(f.Payload)))
	e.WriteBytes(f.Payload)
}

// DecodeFrame decodes a frame from bytes. The input must contain at least
// the header and the full payload.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < FrameHeaderSize {
		return nil, io.ErrUnexpectedEOF
	}

	ft := FrameType(data[0])
	flags := FrameFlags(data[1])
	length := int(data[2])<<8 | int(data[3])

	if len(data) < FrameHeaderSize+length {
		return nil, io.ErrUnexpectedEOF
	}

	payload := make([]byte, length)
	copy(payload, data[FrameHeaderSize:FrameHeaderSize+length])

	return &Frame{
		Type:    ft,
		Flags:   flags,
		Payload: payload,
	}, nil
}

// DecodeFrameHeader decodes just the header, returning type, flags, and
// payload length.
func DecodeFrameHeader(data []byte) (FrameType, FrameFlags, int, error) {
	if len(data) < FrameHeaderSize {
		return 0, 0, 0, io.ErrUnexpectedEOF
	}
	return FrameType(data[0]), FrameFlags(data[1]), int(data[2])<<8 | int(data[3]), nil
}

// ReadFrame reads a complete frame from r.
func ReadFrame(r io.Reader) (*Frame, error) {
	header := make([]byte, FrameHeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	ft := FrameType(header[0])
	flags := FrameFlags(header[1])
	length := int(header[2])<<8 | int(header[3])

	if length > MaxPayloadSize {
		return nil, ErrFrameTooLarge
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, err
		}
	}

	return &Frame{
		Type:    ft,
		Flags:   flags,
		Payload: payload,
	}, nil
}

// WriteFrame writes a complete frame to w.
func WriteFrame(w io.Writer, f *Frame) error {
	if len(f.Payload) > MaxPayloadSize {
		return ErrFrameTooLarge
	}
	_, err := w.Write(f.Encode())
	return err
}

// NewFrame creates a frame with the given type and payload.
func NewFrame(ft FrameType, payload []byte) *Frame {
	return &Frame{
		Type:    ft,
		Payload: payload,
	}
}

// NewFrameWithFlags creates a frame with the given type, flags, and
// payload.
func NewFrameWithFlags(ft FrameType, flags FrameFlags, payload []byte) *Frame {
	return &Frame{
		Type:    ft,
		Flags:   flags,
		Payload: payload,
	}
}
