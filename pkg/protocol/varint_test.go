package protocol

import (
	"bytes"
	"math"
	"testing"
)

func TestEncodeDecodeUvarint(t *testing.T) {
	tests := []struct {
		name  string
		value uint64
		bytes int // expected encoded length
	}{
		{"zero", 0, 1},
		{"one", 1, 1},
		{"max_1byte", 127, 1},
		{"min_2byte", 128, 2},
		{"max_2byte", 16383, 2},
		{"min_3byte", 16384, 3},
		{"medium", 1000000, 3},
		{"large", 1 << 28, 5},
		{"max_uint32", math.MaxUint32, 5},
		{"max_uint64", math.MaxUint64, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, MaxVarintLen)
			n := EncodeUvarint(buf, tc.value)

			if n != tc.bytes {
				t.Errorf("EncodeUvarint(%d) = %d bytes, want %d", tc.value, n, tc.bytes)
			}
			if got := UvarintLen(tc.value); got != n {
				t.Errorf("UvarintLen(%d) = %d, want %d", tc.value, got, n)
			}

			decoded, read := DecodeUvarint(buf[:n])
			if read != n {
				t.Errorf("DecodeUvarint read %d bytes, want %d", read, n)
			}
			if decoded != tc.value {
				t.Errorf("DecodeUvarint = %d, want %d", decoded, tc.value)
			}
		})
	}
}

func TestEncodeDecodeSvarint(t *testing.T) {
	tests := []struct {
		name  string
		value int64
	}{
		{"zero", 0},
		{"one", 1},
		{"neg_one", -1},
		{"small_pos", 100},
		{"small_neg", -100},
		{"medium_pos", 1000000},
		{"medium_neg", -1000000},
		{"max_int32", math.MaxInt32},
		{"min_int32", math.MinInt32},
		{"max_int64", math.MaxInt64},
		{"min_int64", math.MinInt64},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, MaxVarintLen)
			n := EncodeSvarint(buf, tc.value)

			if got := SvarintLen(tc.value); got != n {
				t.Errorf("SvarintLen(%d) = %d, want %d", tc.value, got, n)
			}

			decoded, read := DecodeSvarint(buf[:n])
			if read != n {
				t.Errorf("DecodeSvarint read %d bytes, want %d", read, n)
			}
			if decoded != tc.value {
				t.Errorf("DecodeSvarint = %d, want %d", decoded, tc.value)
			}
		})
	}
}

func TestZigZagOrdering(t *testing.T) {
	// Small magnitudes of either sign stay short on the wire.
	for _, v := range []int64{0, -1, 1, -2, 2, -63, 63} {
		buf := make([]byte, MaxVarintLen)
		if n := EncodeSvarint(buf, v); n != 1 {
			t.Errorf("EncodeSvarint(%d) = %d bytes, want 1", v, n)
		}
	}
}

func TestDecodeUvarintIncomplete(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"empty", nil},
		{"one_continuation", []byte{0x80}},
		{"two_continuation", []byte{0x80, 0x80}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, n := DecodeUvarint(tc.buf); n != -1 {
				t.Errorf("DecodeUvarint = %d, want -1 (incomplete)", n)
			}
		})
	}
}

func TestDecodeUvarintOverflow(t *testing.T) {
	buf := bytes.Repeat([]byte{0x80}, MaxVarintLen+1)
	if _, n := DecodeUvarint(buf); n != -2 {
		t.Errorf("DecodeUvarint = %d, want -2 (overflow)", n)
	}
}

func TestDecoderUvarintOverflow(t *testing.T) {
	d := NewDecoder(bytes.Repeat([]byte{0xFF}, MaxVarintLen+2))
	if _, err := d.ReadUvarint(); err != ErrVarintOverflow {
		t.Errorf("ReadUvarint error = %v, want ErrVarintOverflow", err)
	}
}
