package wasm_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/wippyai/wasm-ir/wasm"
)

func TestLEB128Unsigned(t *testing.T) {
	tests := []struct {
		encoded []byte
		value   uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xFFFFFFFF},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		wasm.WriteLEB128u(&buf, tt.value)
		if !bytes.Equal(buf.Bytes(), tt.encoded) {
			t.Errorf("encode %d: got %x, want %x", tt.value, buf.Bytes(), tt.encoded)
		}
		if n := wasm.SizeLEB128u(uint64(tt.value)); n != len(tt.encoded) {
			t.Errorf("SizeLEB128u(%d) = %d, want %d", tt.value, n, len(tt.encoded))
		}

		got, err := wasm.ReadLEB128u(bytes.NewReader(tt.encoded))
		if err != nil {
			t.Fatalf("decode %x: %v", tt.encoded, err)
		}
		if got != tt.value {
			t.Errorf("decode %x: got %d, want %d", tt.encoded, got, tt.value)
		}
	}
}

func TestLEB128Signed(t *testing.T) {
	tests := []struct {
		encoded []byte
		value   int32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x7f}, -1},
		{[]byte{0x3f}, 63},
		{[]byte{0xc0, 0x00}, 64},
		{[]byte{0x40}, -64},
		{[]byte{0x80, 0x80, 0x80, 0x80, 0x78}, -2147483648},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x07}, 2147483647},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		wasm.WriteLEB128s(&buf, tt.value)
		if !bytes.Equal(buf.Bytes(), tt.encoded) {
			t.Errorf("encode %d: got %x, want %x", tt.value, buf.Bytes(), tt.encoded)
		}
		got, err := wasm.ReadLEB128s(bytes.NewReader(tt.encoded))
		if err != nil {
			t.Fatalf("decode %x: %v", tt.encoded, err)
		}
		if got != tt.value {
			t.Errorf("decode %x: got %d, want %d", tt.encoded, got, tt.value)
		}
	}
}

func TestLEB128Signed64(t *testing.T) {
	for _, v := range []int64{0, -1, 1 << 40, -(1 << 40), 9223372036854775807, -9223372036854775808} {
		var buf bytes.Buffer
		wasm.WriteLEB128s64(&buf, v)
		got, err := wasm.ReadLEB128s64(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("decode %d: %v", v, err)
		}
		if got != v {
			t.Errorf("round trip %d: got %d", v, got)
		}
	}
}

func TestLEB128Overflow(t *testing.T) {
	tests := []struct {
		name string
		read func(io.ByteReader) error
		data []byte
	}{
		{"u32 six bytes", func(r io.ByteReader) error { _, err := wasm.ReadLEB128u(r); return err }, []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00}},
		{"u32 high bits", func(r io.ByteReader) error { _, err := wasm.ReadLEB128u(r); return err }, []byte{0xff, 0xff, 0xff, 0xff, 0x1f}},
		{"s32 bad sign", func(r io.ByteReader) error { _, err := wasm.ReadLEB128s(r); return err }, []byte{0xff, 0xff, 0xff, 0xff, 0x4f}},
		{"s33 too long", func(r io.ByteReader) error { _, err := wasm.ReadLEB128s33(r); return err }, []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x00}},
		{"u64 high bits", func(r io.ByteReader) error { _, err := wasm.ReadLEB128u64(r); return err }, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.read(bytes.NewReader(tt.data)); !errors.Is(err, wasm.ErrOverflow) {
				t.Errorf("err = %v, want ErrOverflow", err)
			}
		})
	}
}

func TestLEB128Truncated(t *testing.T) {
	_, err := wasm.ReadLEB128u(bytes.NewReader([]byte{0x80, 0x80}))
	if !errors.Is(err, io.EOF) {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestFloatBitsPreserveNaN(t *testing.T) {
	const signalingNaN = 0x7fa00001
	var buf bytes.Buffer
	wasm.WriteF32Bits(&buf, signalingNaN)
	got, err := wasm.ReadF32Bits(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if got != signalingNaN {
		t.Errorf("bits = %#x, want %#x", got, signalingNaN)
	}
}
