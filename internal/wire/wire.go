// Package wire implements the big-endian primitives shared by the cache's
// binary layouts: 24-bit "medium" integers and the variable-width
// large-smart integers of the large settings format.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxMedium is the largest value a 24-bit field can hold.
const MaxMedium = 1<<24 - 1

// MaxLargeSmart is the largest value a large-smart field can hold.
const MaxLargeSmart = 1<<31 - 1

// maxShortSmart is the largest value stored in the two-byte large-smart form.
const maxShortSmart = 1<<15 - 1

// ErrShortBuffer is returned when a read runs past the end of the buffer.
var ErrShortBuffer = errors.New("wire: short buffer")

// PutMedium writes v as a 24-bit big-endian integer into b[0:3].
func PutMedium(b []byte, v uint32) {
	_ = b[2]
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

// Medium reads a 24-bit big-endian integer from b[0:3].
func Medium(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// LargeSmartSize returns the encoded width of v as a large smart.
func LargeSmartSize(v uint32) int {
	if v <= maxShortSmart {
		return 2
	}
	return 4
}

// Writer appends big-endian values to a growing byte slice.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with capacity preallocated for n bytes.
func NewWriter(n int) *Writer {
	return &Writer{buf: make([]byte, 0, n)}
}

// Bytes returns the written bytes. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written.
func (w *Writer) Len() int { return len(w.buf) }

// U8 appends one byte.
func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

// U16 appends a 16-bit integer.
func (w *Writer) U16(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }

// U24 appends a 24-bit integer. The top 8 bits of v are discarded.
func (w *Writer) U24(v uint32) { w.buf = append(w.buf, byte(v>>16), byte(v>>8), byte(v)) }

// U32 appends a 32-bit integer.
func (w *Writer) U32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }

// I32 appends a signed 32-bit integer in two's complement.
func (w *Writer) I32(v int32) { w.U32(uint32(v)) } //nolint:gosec // two's complement reinterpretation

// Raw appends b verbatim.
func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }

// LargeSmart appends v in two bytes when it fits in 15 bits, otherwise in four
// bytes with the high bit of the first byte set.
func (w *Writer) LargeSmart(v uint32) error {
	if v > MaxLargeSmart {
		return fmt.Errorf("wire: large smart %d out of range", v)
	}
	if v <= maxShortSmart {
		w.U16(uint16(v))
		return nil
	}
	w.U32(v | 1<<31)
	return nil
}

// Reader consumes big-endian values from a byte slice.
//
// The first failed read latches an error; later reads return zero values and
// the error is reported by Err.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Err returns the first error encountered while reading.
func (r *Reader) Err() error { return r.err }

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int { return r.off }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.Remaining() < n {
		r.err = fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrShortBuffer, n, r.off, r.Remaining())
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// U8 reads one byte.
func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// U16 reads a 16-bit integer.
func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// U24 reads a 24-bit integer.
func (r *Reader) U24() uint32 {
	b := r.take(3)
	if b == nil {
		return 0
	}
	return Medium(b)
}

// U32 reads a 32-bit integer.
func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// I32 reads a signed 32-bit integer.
func (r *Reader) I32() int32 { return int32(r.U32()) } //nolint:gosec // two's complement reinterpretation

// Raw returns the next n bytes. The slice aliases the reader's buffer.
func (r *Reader) Raw(n int) []byte { return r.take(n) }

// LargeSmart reads a value written by Writer.LargeSmart.
func (r *Reader) LargeSmart() uint32 {
	if r.err != nil {
		return 0
	}
	if r.Remaining() < 1 {
		r.take(1)
		return 0
	}
	if r.buf[r.off]&0x80 == 0 {
		return uint32(r.U16())
	}
	return r.U32() &^ (1 << 31)
}
