package wasm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// ErrOverflow is returned when a LEB128 value exceeds its bit width,
// either by using too many bytes or by setting unused high bits.
var ErrOverflow = errors.New("leb128: overflow")

// ReadLEB128u reads an unsigned 32-bit LEB128 value
func ReadLEB128u(r io.ByteReader) (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift == 28 && b&0x70 != 0 {
			return 0, ErrOverflow
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, ErrOverflow
		}
	}
}

// ReadLEB128u64 reads an unsigned 64-bit LEB128 value
func ReadLEB128u64(r io.ByteReader) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if shift == 63 && b&0x7e != 0 {
			return 0, ErrOverflow
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 70 {
			return 0, ErrOverflow
		}
	}
}

// ReadLEB128s reads a signed 32-bit LEB128 value
func ReadLEB128s(r io.ByteReader) (int32, error) {
	v, err := readSigned(r, 32)
	return int32(v), err
}

// ReadLEB128s33 reads a signed 33-bit LEB128 value, used by block types
// and heap types.
func ReadLEB128s33(r io.ByteReader) (int64, error) {
	return readSigned(r, 33)
}

// ReadLEB128s64 reads a signed 64-bit LEB128 value
func ReadLEB128s64(r io.ByteReader) (int64, error) {
	return readSigned(r, 64)
}

func readSigned(r io.ByteReader, bits uint) (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	maxBytes := (bits + 6) / 7
	for i := uint(0); ; i++ {
		if i >= maxBytes {
			return 0, ErrOverflow
		}
		b, err = r.ReadByte()
		if err != nil {
			return 0, err
		}
		if i == maxBytes-1 {
			// Unused bits of the final byte must match the sign bit.
			used := bits - shift
			sign := (b >> (used - 1)) & 1
			rest := b & 0x7f >> used
			if (sign == 0 && rest != 0) || (sign == 1 && rest != 0x7f>>used) {
				return 0, ErrOverflow
			}
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= ^int64(0) << shift
	}
	return result, nil
}

// WriteLEB128u writes an unsigned LEB128 value
func WriteLEB128u(w *bytes.Buffer, v uint32) {
	WriteLEB128u64(w, uint64(v))
}

// WriteLEB128u64 writes an unsigned 64-bit LEB128 value
func WriteLEB128u64(w *bytes.Buffer, v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

// WriteLEB128s writes a signed LEB128 value
func WriteLEB128s(w *bytes.Buffer, v int32) {
	WriteLEB128s64(w, int64(v))
}

// WriteLEB128s64 writes a signed 64-bit LEB128 value
func WriteLEB128s64(w *bytes.Buffer, v int64) {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}
		w.WriteByte(b)
	}
}

// SizeLEB128u returns the encoded length of v.
func SizeLEB128u(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// ReadF32Bits reads the raw little-endian bits of an f32.
// Bits are kept as an integer so NaN payloads survive a round trip.
func ReadF32Bits(r io.ByteReader) (uint32, error) {
	var buf [4]byte
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		buf[i] = b
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// ReadF64Bits reads the raw little-endian bits of an f64.
func ReadF64Bits(r io.ByteReader) (uint64, error) {
	var buf [8]byte
	for i := range buf {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		buf[i] = b
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// WriteF32Bits writes raw f32 bits little-endian.
func WriteF32Bits(w *bytes.Buffer, bits uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], bits)
	w.Write(buf[:])
}

// WriteF64Bits writes raw f64 bits little-endian.
func WriteF64Bits(w *bytes.Buffer, bits uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], bits)
	w.Write(buf[:])
}
