package protocol

import (
	"bytes"
	"io"
	"testing"
)

func TestFrameEncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		frame *Frame
	}{
		{"empty_payload", NewFrame(FrameHandshake, nil)},
		{"patches", NewFrame(FramePatches, []byte{1, 2, 3, 4})},
		{"schedule", NewFrame(FrameSchedule, []byte{0x2A, 0x02})},
		{"with_flags", NewFrameWithFlags(FramePatches, FlagResync, []byte{9})},
		{"control", NewFrame(FrameControl, EncodeControl(NewPing(12345)))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data := tc.frame.Encode()

			if len(data) != FrameHeaderSize+len(tc.frame.Payload) {
				t.Fatalf("encoded length = %d, want %d", len(data), FrameHeaderSize+len(tc.frame.Payload))
			}

			decoded, err := DecodeFrame(data)
			if err != nil {
				t.Fatalf("DecodeFrame: %v", err)
			}
			if decoded.Type != tc.frame.Type {
				t.Errorf("Type = %v, want %v", decoded.Type, tc.frame.Type)
			}
			if decoded.Flags != tc.frame.Flags {
				t.Errorf("Flags = %v, want %v", decoded.Flags, tc.frame.Flags)
			}
			if !bytes.Equal(decoded.Payload, tc.frame.Payload) {
				t.Errorf("Payload = %v, want %v", decoded.Payload, tc.frame.Payload)
			}
		})
	}
}

func TestFrameHeaderLayout(t *testing.T) {
	f := NewFrameWithFlags(FrameAck, FlagResync, []byte{0xAA, 0xBB, 0xCC})
	data := f.Encode()

	if data[0] != byte(FrameAck) {
		t.Errorf("type byte = %#x, want %#x", data[0], byte(FrameAck))
	}
	if data[1] != byte(FlagResync) {
		t.Errorf("flags byte = %#x, want %#x", data[1], byte(FlagResync))
	}
	// Big-endian u16 length.
	if data[2] != 0x00 || data[3] != 0x03 {
		t.Errorf("length bytes = %#x %#x, want 0x00 0x03", data[2], data[3])
	}
}

func TestFrameEncodeTo(t *testing.T) {
	f := NewFrame(FrameError, []byte{1, 2})
	e := NewEncoder()
	f.EncodeTo(e)

	if !bytes.Equal(e.Bytes(), f.Encode()) {
		t.Errorf("EncodeTo = %v, want %v", e.Bytes(), f.Encode())
	}
}

func TestDecodeFrameTruncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"short_header", []byte{0x01, 0x00}},
		{"missing_payload", []byte{0x01, 0x00, 0x00, 0x05, 0xAA}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeFrame(tc.data); err != io.ErrUnexpectedEOF {
				t.Errorf("DecodeFrame error = %v, want io.ErrUnexpectedEOF", err)
			}
		})
	}
}

func TestDecodeFrameHeader(t *testing.T) {
	f := NewFrameWithFlags(FramePatches, FlagResync, make([]byte, 300))
	data := f.Encode()

	ft, flags, length, err := DecodeFrameHeader(data[:FrameHeaderSize])
	if err != nil {
		t.Fatalf("DecodeFrameHeader: %v", err)
	}
	if ft != FramePatches {
		t.Errorf("type = %v, want FramePatches", ft)
	}
	if !flags.Has(FlagResync) {
		t.Errorf("flags = %v, want FlagResync set", flags)
	}
	if length != 300 {
		t.Errorf("length = %d, want 300", length)
	}
}

func TestReadWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	frames := []*Frame{
		NewFrame(FrameHandshake, EncodeClientHello(NewClientHello())),
		NewFrameWithFlags(FramePatches, FlagResync, []byte{1, 2, 3}),
		NewFrame(FrameAck, EncodeAck(NewAck(7))),
	}

	for _, f := range frames {
		if err := WriteFrame(&buf, f); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	for i, want := range frames {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame %d: %v", i, err)
		}
		if got.Type != want.Type || got.Flags != want.Flags || !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("frame %d = %+v, want %+v", i, got, want)
		}
	}

	if _, err := ReadFrame(&buf); err != io.EOF {
		t.Errorf("ReadFrame on empty stream = %v, want io.EOF", err)
	}
}

func TestWriteFrameTooLarge(t *testing.T) {
	f := NewFrame(FramePatches, make([]byte, MaxPayloadSize+1))
	if err := WriteFrame(io.Discard, f); err != ErrFrameTooLarge {
		t.Errorf("WriteFrame error = %v, want ErrFrameTooLarge", err)
	}
}

func TestFrameTypeString(t *testing.T) {
	tests := []struct {
		ft   FrameType
		want string
	}{
		{FrameHandshake, "Handshake"},
		{FramePatches, "Patches"},
		{FrameSchedule, "Schedule"},
		{FrameInvalidate, "Invalidate"},
		{FrameAck, "Ack"},
		{FrameControl, "Control"},
		{FrameError, "Error"},
		{FrameType(0x7F), "Unknown"},
	}

	for _, tc := range tests {
		if got := tc.ft.String(); got != tc.want {
			t.Errorf("FrameType(%#x).String() = %q, want %q", byte(tc.ft), got, tc.want)
		}
	}
}
