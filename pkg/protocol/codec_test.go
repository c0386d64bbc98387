package protocol

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
)

func TestEncoderDecoderPrimitives(t *testing.T) {
	e := NewEncoder()
	e.WriteByte(0xAB)
	e.WriteBool(true)
	e.WriteBool(false)
	e.WriteUint16(0xBEEF)
	e.WriteUint32(0xDEADBEEF)
	e.WriteUint64(math.MaxUint64 - 1)
	e.WriteFloat64(-2.5)
	e.WriteString("héllo")
	e.WriteLenBytes([]byte{1, 2, 3})
	e.WriteSvarint(-300)

	d := NewDecoder(e.Bytes())

	if b, err := d.ReadByte(); err != nil || b != 0xAB {
		t.Errorf("ReadByte = %#x, %v", b, err)
	}
	if v, err := d.ReadBool(); err != nil || !v {
		t.Errorf("ReadBool = %v, %v, want true", v, err)
	}
	if v, err := d.ReadBool(); err != nil || v {
		t.Errorf("ReadBool = %v, %v, want false", v, err)
	}
	if v, err := d.ReadUint16(); err != nil || v != 0xBEEF {
		t.Errorf("ReadUint16 = %#x, %v", v, err)
	}
	if v, err := d.ReadUint32(); err != nil || v != 0xDEADBEEF {
		t.Errorf("ReadUint32 = %#x, %v", v, err)
	}
	if v, err := d.ReadUint64(); err != nil || v != math.MaxUint64-1 {
		t.Errorf("ReadUint64 = %d, %v", v, err)
	}
	if v, err := d.ReadFloat64(); err != nil || v != -2.5 {
		t.Errorf("ReadFloat64 = %v, %v", v, err)
	}
	if s, err := d.ReadString(); err != nil || s != "héllo" {
		t.Errorf("ReadString = %q, %v", s, err)
	}
	if b, err := d.ReadLenBytes(); err != nil || !bytes.Equal(b, []byte{1, 2, 3}) {
		t.Errorf("ReadLenBytes = %v, %v", b, err)
	}
	if v, err := d.ReadSvarint(); err != nil || v != -300 {
		t.Errorf("ReadSvarint = %d, %v", v, err)
	}
	if !d.EOF() {
		t.Errorf("EOF = false with %d bytes remaining", d.Remaining())
	}
}

func TestReadStringAllocationLimit(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(uint64(DefaultMaxAllocation + 1))

	d := NewDecoder(e.Bytes())
	if _, err := d.ReadString(); !errors.Is(err, ErrAllocationTooLarge) {
		t.Errorf("ReadString error = %v, want ErrAllocationTooLarge", err)
	}
}

func TestReadLenBytesCopies(t *testing.T) {
	e := NewEncoder()
	e.WriteLenBytes([]byte{1, 2, 3})
	buf := e.Bytes()

	d := NewDecoder(buf)
	got, err := d.ReadLenBytes()
	if err != nil {
		t.Fatalf("ReadLenBytes: %v", err)
	}

	buf[1] = 0xFF // clobber the source buffer
	if got[0] != 1 {
		t.Error("ReadLenBytes result aliases the input buffer")
	}
}

func TestDecoderSkipAndRemaining(t *testing.T) {
	d := NewDecoder([]byte{1, 2, 3, 4})

	if err := d.Skip(2); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	if d.Remaining() != 2 {
		t.Errorf("Remaining = %d, want 2", d.Remaining())
	}
	if err := d.Skip(3); err != io.ErrUnexpectedEOF {
		t.Errorf("Skip past end = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestEncoderReset(t *testing.T) {
	e := NewEncoder()
	e.WriteString("before")
	e.Reset()
	e.WriteByte(0x01)

	if e.Len() != 1 {
		t.Errorf("Len = %d after reset, want 1", e.Len())
	}
}

func TestReadBytesShort(t *testing.T) {
	d := NewDecoder([]byte{1})
	if _, err := d.ReadBytes(2); err != io.ErrUnexpectedEOF {
		t.Errorf("ReadBytes error = %v, want io.ErrUnexpectedEOF", err)
	}
}
