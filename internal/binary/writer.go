package binary

import (
	"bytes"
	"fmt"

	"fortio.org/safecast"

	"github.com/wippyai/wasm-ir/wasm"
)

// Writer provides buffered writing utilities for binary encoding.
type Writer struct {
	buf *bytes.Buffer
}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{buf: &bytes.Buffer{}}
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Buffer exposes the underlying buffer for the instruction codec.
func (w *Writer) Buffer() *bytes.Buffer {
	return w.buf
}

// Byte writes a single byte.
func (w *Writer) Byte(b byte) {
	w.buf.WriteByte(b)
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(data []byte) {
	w.buf.Write(data)
}

// WriteU32 writes an unsigned LEB128 encoded uint32.
func (w *Writer) WriteU32(v uint32) {
	wasm.WriteLEB128u(w.buf, v)
}

// WriteU64 writes an unsigned LEB128 encoded uint64.
func (w *Writer) WriteU64(v uint64) {
	wasm.WriteLEB128u64(w.buf, v)
}

// WriteS32 writes a signed LEB128 encoded int32.
func (w *Writer) WriteS32(v int32) {
	wasm.WriteLEB128s(w.buf, v)
}

// WriteS64 writes a signed LEB128 encoded int64.
func (w *Writer) WriteS64(v int64) {
	wasm.WriteLEB128s64(w.buf, v)
}

// WriteLen writes a count or byte length as an unsigned LEB128.
// Lengths that do not fit a u32 cannot be represented in the format.
func (w *Writer) WriteLen(n int) {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("binary: length %d overflows u32: %w", n, err))
	}
	w.WriteU32(v)
}

// WriteName writes a UTF-8 encoded name (length-prefixed).
func (w *Writer) WriteName(s string) {
	w.WriteLen(len(s))
	w.buf.WriteString(s)
}

// WriteSized writes data prefixed with its length.
func (w *Writer) WriteSized(data []byte) {
	w.WriteLen(len(data))
	w.buf.Write(data)
}
