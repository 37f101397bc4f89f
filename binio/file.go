package binio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	defaultBufferSize = 8192
	minBufferSize     = 16
)

// FileReader decodes binary data sequentially from a file through an internal
// buffer. Refills can be metered through a Throttle so bulk decodes do not
// starve foreground IO.
//
// A FileReader is single-user, like the readers it feeds.
type FileReader struct {
	f     *os.File
	order binary.ByteOrder

	buf    []byte
	bufPos int // next unread byte in buf
	bufEnd int // number of valid bytes in buf

	size    int64 // total file size
	filePos int64 // file offset one past the buffered bytes

	throttle Throttle
	ctx      context.Context
}

// NewFileReader opens path for sequential binary reading. It fails if the
// file cannot be opened or a buffer size below the minimum was requested.
func NewFileReader(path string, opts ...Option) (*FileReader, error) {
	o := applyOptions(opts)
	if o.BufferSize < minBufferSize {
		return nil, fmt.Errorf("binio: buffer size must be at least %d, got %d", minBufferSize, o.BufferSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("binio: open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("binio: stat %s: %w", path, err)
	}

	return &FileReader{
		f:        f,
		order:    o.ByteOrder,
		buf:      make([]byte, o.BufferSize),
		size:     info.Size(),
		throttle: o.Throttle,
		ctx:      o.Context,
	}, nil
}

// Close closes the underlying file.
func (r *FileReader) Close() error {
	return r.f.Close()
}

// Size returns the total file size in bytes.
func (r *FileReader) Size() int64 { return r.size }

// Position returns the current read position within the file.
func (r *FileReader) Position() int64 {
	return r.filePos - int64(r.bufEnd-r.bufPos)
}

// Remaining returns the number of bytes left to read.
func (r *FileReader) Remaining() int64 {
	return r.size - r.Position()
}

// SetPosition seeks to pos, clamping to the file size, and discards the
// buffer.
func (r *FileReader) SetPosition(pos int64) error {
	if pos < 0 {
		pos = 0
	}
	if pos > r.size {
		pos = r.size
	}
	if _, err := r.f.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("binio: seek to %d: %w", pos, err)
	}
	r.filePos = pos
	r.bufPos = 0
	r.bufEnd = 0
	return nil
}

// Skip advances the read position by n bytes.
func (r *FileReader) Skip(n int64) error {
	if n <= 0 {
		return nil
	}
	return r.SetPosition(r.Position() + n)
}

func (r *FileReader) buffered() int { return r.bufEnd - r.bufPos }

// ensure guarantees at least n buffered bytes, compacting and refilling as
// needed. n must not exceed the buffer size; scalar reads stay well below it.
func (r *FileReader) ensure(n int) error {
	if r.buffered() >= n {
		return nil
	}

	if r.bufPos > 0 {
		copy(r.buf, r.buf[r.bufPos:r.bufEnd])
		r.bufEnd -= r.bufPos
		r.bufPos = 0
	}

	for r.bufEnd < n {
		target := r.buf[r.bufEnd:]
		if r.throttle != nil {
			if err := r.throttle.AcquireIO(r.ctx, len(target)); err != nil {
				return fmt.Errorf("binio: throttled read: %w", err)
			}
		}
		got, err := r.f.Read(target)
		r.bufEnd += got
		r.filePos += int64(got)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("binio: read: %w", err)
		}
	}

	if r.buffered() < n {
		return fmt.Errorf("binio: need %d bytes at position %d: %w", n, r.Position(), io.ErrUnexpectedEOF)
	}
	return nil
}

// Uint8 reads one byte.
func (r *FileReader) Uint8() (uint8, error) {
	if err := r.ensure(1); err != nil {
		return 0, err
	}
	b := r.buf[r.bufPos]
	r.bufPos++
	return b, nil
}

// Uint16 reads a 16-bit unsigned integer in the configured byte order.
func (r *FileReader) Uint16() (uint16, error) {
	if err := r.ensure(2); err != nil {
		return 0, err
	}
	v := r.order.Uint16(r.buf[r.bufPos:])
	r.bufPos += 2
	return v, nil
}

// Uint32 reads a 32-bit unsigned integer in the configured byte order.
func (r *FileReader) Uint32() (uint32, error) {
	if err := r.ensure(4); err != nil {
		return 0, err
	}
	v := r.order.Uint32(r.buf[r.bufPos:])
	r.bufPos += 4
	return v, nil
}

// Uint64 reads a 64-bit unsigned integer in the configured byte order.
func (r *FileReader) Uint64() (uint64, error) {
	if err := r.ensure(8); err != nil {
		return 0, err
	}
	v := r.order.Uint64(r.buf[r.bufPos:])
	r.bufPos += 8
	return v, nil
}

// Int8 reads a signed byte.
func (r *FileReader) Int8() (int8, error) {
	v, err := r.Uint8()
	return int8(v), err
}

// Int16 reads a 16-bit signed integer in the configured byte order.
func (r *FileReader) Int16() (int16, error) {
	v, err := r.Uint16()
	return int16(v), err
}

// Int32 reads a 32-bit signed integer in the configured byte order.
func (r *FileReader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

// Int64 reads a 64-bit signed integer in the configured byte order.
func (r *FileReader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

// Float32 reads an IEEE 754 32-bit float in the configured byte order.
func (r *FileReader) Float32() (float32, error) {
	v, err := r.Uint32()
	return math.Float32frombits(v), err
}

// Float64 reads an IEEE 754 64-bit float in the configured byte order.
func (r *FileReader) Float64() (float64, error) {
	v, err := r.Uint64()
	return math.Float64frombits(v), err
}

// ReadFull copies exactly len(dst) bytes into dst, refilling the buffer as
// often as needed.
func (r *FileReader) ReadFull(dst []byte) error {
	for len(dst) > 0 {
		if err := r.ensure(1); err != nil {
			return err
		}
		n := copy(dst, r.buf[r.bufPos:r.bufEnd])
		r.bufPos += n
		dst = dst[n:]
	}
	return nil
}

// String reads a fixed-length string of n bytes.
func (r *FileReader) String(n int) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("binio: negative count %d: %w", n, io.ErrUnexpectedEOF)
	}
	b := make([]byte, n)
	if err := r.ReadFull(b); err != nil {
		return "", err
	}
	return string(b), nil
}

// CString reads up to the next NUL byte and consumes the terminator. It fails
// with io.ErrUnexpectedEOF if the file ends before a terminator.
func (r *FileReader) CString() (string, error) {
	var b []byte
	for {
		ch, err := r.Uint8()
		if err != nil {
			return "", err
		}
		if ch == 0 {
			return string(b), nil
		}
		b = append(b, ch)
	}
}
