package binary

import (
	"errors"
	"io"
	"unicode/utf8"

	werrors "github.com/wippyai/wasm-ir/errors"
	"github.com/wippyai/wasm-ir/wasm"
)

// Reader reads binary-format values from a byte slice. Offsets reported
// by Offset and carried by errors are absolute within the original input,
// including for readers returned by Sub.
type Reader struct {
	data []byte
	pos  int
	base int
}

// NewReader creates a Reader over data starting at absolute offset 0.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the absolute offset of the next byte.
func (r *Reader) Offset() int {
	return r.base + r.pos
}

// Position returns the number of bytes consumed from this reader.
func (r *Reader) Position() int {
	return r.pos
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.data) - r.pos
}

// EOF reports whether all bytes have been consumed.
func (r *Reader) EOF() bool {
	return r.pos >= len(r.data)
}

// ReadByte reads a single byte and advances the position.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, r.truncated("byte")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// PeekByte returns the next byte without consuming it.
func (r *Reader) PeekByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, r.truncated("byte")
	}
	return r.data[r.pos], nil
}

// ReadBytes reads exactly n bytes. The result aliases the input.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, r.truncated("bytes")
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadRemaining returns all unread bytes. The result aliases the input.
func (r *Reader) ReadRemaining() []byte {
	b := r.data[r.pos:]
	r.pos = len(r.data)
	return b
}

// Sub consumes the next n bytes and returns a Reader over them.
func (r *Reader) Sub(n int) (*Reader, error) {
	start := r.Offset()
	b, err := r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	return &Reader{data: b, base: start}, nil
}

// ReadU32 reads an unsigned LEB128 encoded uint32.
func (r *Reader) ReadU32() (uint32, error) {
	start := r.Offset()
	v, err := wasm.ReadLEB128u(r)
	return v, r.lebError(start, err)
}

// ReadU64 reads an unsigned LEB128 encoded uint64.
func (r *Reader) ReadU64() (uint64, error) {
	start := r.Offset()
	v, err := wasm.ReadLEB128u64(r)
	return v, r.lebError(start, err)
}

// ReadS32 reads a signed LEB128 encoded int32.
func (r *Reader) ReadS32() (int32, error) {
	start := r.Offset()
	v, err := wasm.ReadLEB128s(r)
	return v, r.lebError(start, err)
}

// ReadS33 reads a signed 33-bit LEB128 value.
func (r *Reader) ReadS33() (int64, error) {
	start := r.Offset()
	v, err := wasm.ReadLEB128s33(r)
	return v, r.lebError(start, err)
}

// ReadS64 reads a signed LEB128 encoded int64.
func (r *Reader) ReadS64() (int64, error) {
	start := r.Offset()
	v, err := wasm.ReadLEB128s64(r)
	return v, r.lebError(start, err)
}

// ReadName reads a UTF-8 encoded name (length-prefixed byte sequence).
func (r *Reader) ReadName() (string, error) {
	length, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	start := r.Offset()
	data, err := r.ReadBytes(int(length))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", werrors.InvalidUTF8(start, data)
	}
	return string(data), nil
}

// ReadInstruction decodes one instruction, mapping codec errors onto
// structured errors at the instruction's offset.
func (r *Reader) ReadInstruction() (wasm.Instruction, error) {
	start := r.Offset()
	instr, err := wasm.ReadInstruction(r)
	if err == nil {
		return instr, nil
	}
	switch {
	case errors.Is(err, wasm.ErrUnsupportedOpcode):
		return instr, werrors.New(werrors.PhaseDecode, werrors.KindUnsupported).
			Offset(start).Detail("%v", err).Cause(err).Build()
	case errors.Is(err, wasm.ErrUnknownOpcode):
		return instr, werrors.New(werrors.PhaseDecode, werrors.KindInvalidData).
			Offset(start).Detail("%v", err).Cause(err).Build()
	}
	return instr, r.lebError(start, err)
}

func (r *Reader) lebError(start int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, wasm.ErrOverflow) {
		return werrors.InvalidLEB128(start, err)
	}
	return err
}

func (r *Reader) truncated(what string) error {
	e := werrors.Truncated(r.Offset(), what)
	e.Cause = io.ErrUnexpectedEOF
	return e
}

// Finish returns a section length error if bytes remain unread.
func (r *Reader) Finish(section string) error {
	if r.EOF() {
		return nil
	}
	return werrors.SectionLength(section, r.Offset(), len(r.data), r.pos)
}
