package binio

import (
	"encoding/binary"
	"io"
	"math"
)

// Writer encodes binary data sequentially to an io.Writer in the configured
// byte order. Wrap the destination in a bufio.Writer when writing many small
// values.
type Writer struct {
	w       io.Writer
	order   binary.ByteOrder
	written int64
	scratch [8]byte
}

// NewWriter creates a Writer. Only the ByteOrder option applies.
func NewWriter(w io.Writer, opts ...Option) *Writer {
	o := applyOptions(opts)
	return &Writer{w: w, order: o.ByteOrder}
}

// BytesWritten returns the total number of bytes written so far.
func (w *Writer) BytesWritten() int64 { return w.written }

func (w *Writer) write(b []byte) error {
	n, err := w.w.Write(b)
	w.written += int64(n)
	return err
}

// Uint8 writes one byte.
func (w *Writer) Uint8(v uint8) error {
	w.scratch[0] = v
	return w.write(w.scratch[:1])
}

// Uint16 writes a 16-bit unsigned integer.
func (w *Writer) Uint16(v uint16) error {
	w.order.PutUint16(w.scratch[:2], v)
	return w.write(w.scratch[:2])
}

// Uint32 writes a 32-bit unsigned integer.
func (w *Writer) Uint32(v uint32) error {
	w.order.PutUint32(w.scratch[:4], v)
	return w.write(w.scratch[:4])
}

// Uint64 writes a 64-bit unsigned integer.
func (w *Writer) Uint64(v uint64) error {
	w.order.PutUint64(w.scratch[:8], v)
	return w.write(w.scratch[:8])
}

// Int8 writes a signed byte.
func (w *Writer) Int8(v int8) error { return w.Uint8(uint8(v)) }

// Int16 writes a 16-bit signed integer.
func (w *Writer) Int16(v int16) error { return w.Uint16(uint16(v)) }

// Int32 writes a 32-bit signed integer.
func (w *Writer) Int32(v int32) error { return w.Uint32(uint32(v)) }

// Int64 writes a 64-bit signed integer.
func (w *Writer) Int64(v int64) error { return w.Uint64(uint64(v)) }

// Float32 writes an IEEE 754 32-bit float.
func (w *Writer) Float32(v float32) error { return w.Uint32(math.Float32bits(v)) }

// Float64 writes an IEEE 754 64-bit float.
func (w *Writer) Float64(v float64) error { return w.Uint64(math.Float64bits(v)) }

// Bytes writes raw bytes.
func (w *Writer) Bytes(b []byte) error { return w.write(b) }

// String writes the raw bytes of s without a length prefix or terminator.
func (w *Writer) String(s string) error { return w.write([]byte(s)) }

// CString writes s followed by a NUL terminator.
func (w *Writer) CString(s string) error {
	if err := w.String(s); err != nil {
		return err
	}
	return w.Uint8(0)
}

// Uint16Slice writes each element in the configured byte order.
func (w *Writer) Uint16Slice(vs []uint16) error {
	for _, v := range vs {
		if err := w.Uint16(v); err != nil {
			return err
		}
	}
	return nil
}

// Uint32Slice writes each element in the configured byte order.
func (w *Writer) Uint32Slice(vs []uint32) error {
	for _, v := range vs {
		if err := w.Uint32(v); err != nil {
			return err
		}
	}
	return nil
}
