package binary

import (
	"bytes"
	"errors"
	"io"
	"testing"

	werrors "github.com/wippyai/wasm-ir/errors"
	"github.com/wippyai/wasm-ir/wasm"
)

func TestReaderReadByte(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	r := NewReader(data)

	for i, want := range data {
		if r.Position() != i {
			t.Errorf("position before read %d: got %d, want %d", i, r.Position(), i)
		}
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("ReadByte %d: %v", i, err)
		}
		if b != want {
			t.Errorf("ReadByte %d: got 0x%02x, want 0x%02x", i, b, want)
		}
	}

	if !r.EOF() {
		t.Error("expected EOF")
	}

	_, err := r.ReadByte()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected unexpected EOF, got %v", err)
	}
	if !errors.Is(err, &werrors.Error{Phase: werrors.PhaseDecode, Kind: werrors.KindTruncated}) {
		t.Errorf("expected truncated error, got %v", err)
	}
}

func TestReaderSubOffsets(t *testing.T) {
	r := NewReader([]byte{0xaa, 0xbb, 0x01, 0x02, 0x03, 0xcc})
	if _, err := r.ReadBytes(2); err != nil {
		t.Fatal(err)
	}
	sub, err := r.Sub(3)
	if err != nil {
		t.Fatalf("Sub: %v", err)
	}
	if sub.Offset() != 2 {
		t.Errorf("sub offset = %d, want 2", sub.Offset())
	}
	if r.Offset() != 5 {
		t.Errorf("parent offset = %d, want 5", r.Offset())
	}
	sub.ReadRemaining()
	_, err = sub.ReadByte()
	var e *werrors.Error
	if !errors.As(err, &e) || e.Offset != 5 {
		t.Errorf("truncation offset = %v, want absolute 5", err)
	}
}

func TestReaderLEB128(t *testing.T) {
	r := NewReader([]byte{0xe5, 0x8e, 0x26, 0x7f, 0xc0, 0xbb, 0x78})
	u, err := r.ReadU32()
	if err != nil || u != 624485 {
		t.Fatalf("ReadU32 = %d, %v", u, err)
	}
	s, err := r.ReadS32()
	if err != nil || s != -1 {
		t.Fatalf("ReadS32 = %d, %v", s, err)
	}
	s64, err := r.ReadS64()
	if err != nil || s64 != -123456 {
		t.Fatalf("ReadS64 = %d, %v", s64, err)
	}
}

func TestReaderInvalidLEB128(t *testing.T) {
	r := NewReader([]byte{0x00, 0xff, 0xff, 0xff, 0xff, 0x7f})
	if _, err := r.ReadByte(); err != nil {
		t.Fatal(err)
	}
	_, err := r.ReadU32()
	var e *werrors.Error
	if !errors.As(err, &e) {
		t.Fatalf("expected structured error, got %v", err)
	}
	if e.Kind != werrors.KindInvalidLEB128 || e.Offset != 1 {
		t.Errorf("got kind %s at %d, want invalid_leb128 at 1", e.Kind, e.Offset)
	}
	if !errors.Is(err, wasm.ErrOverflow) {
		t.Error("cause should be wasm.ErrOverflow")
	}
}

func TestReaderReadName(t *testing.T) {
	r := NewReader([]byte{0x05, 'h', 'e', 'l', 'l', 'o', 0x02, 0xff, 0xfe})
	name, err := r.ReadName()
	if err != nil || name != "hello" {
		t.Fatalf("ReadName = %q, %v", name, err)
	}
	_, err = r.ReadName()
	if !errors.Is(err, &werrors.Error{Phase: werrors.PhaseDecode, Kind: werrors.KindInvalidUTF8}) {
		t.Errorf("expected invalid utf8, got %v", err)
	}
}

func TestReaderReadInstruction(t *testing.T) {
	r := NewReader([]byte{wasm.OpI32Const, 0x2a, wasm.OpPrefixGC, 0x00})
	instr, err := r.ReadInstruction()
	if err != nil {
		t.Fatalf("ReadInstruction: %v", err)
	}
	if instr.Imm.(wasm.I32Imm).Value != 42 {
		t.Errorf("value = %v", instr.Imm)
	}
	_, err = r.ReadInstruction()
	var e *werrors.Error
	if !errors.As(err, &e) || e.Kind != werrors.KindUnsupported || e.Offset != 2 {
		t.Errorf("expected unsupported at 2, got %v", err)
	}
}

func TestWriter(t *testing.T) {
	w := NewWriter()
	w.Byte(0x01)
	w.WriteU32(624485)
	w.WriteS32(-1)
	w.WriteName("hi")
	w.WriteSized([]byte{0xaa})

	want := []byte{0x01, 0xe5, 0x8e, 0x26, 0x7f, 0x02, 'h', 'i', 0x01, 0xaa}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes = %x, want %x", w.Bytes(), want)
	}
	if w.Len() != len(want) {
		t.Errorf("Len = %d, want %d", w.Len(), len(want))
	}
}
