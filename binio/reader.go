// Package binio provides bounds-checked binary decoding and encoding with
// configurable byte order, over in-memory buffers and files.
//
// The readers are sequential: every read advances a position and fails
// cleanly when too few bytes remain, so callers never index past a buffer.
// Decode scratch can be borrowed from an arena (see Reader.BytesArena) to
// keep hot decode loops allocation-free.
package binio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/memkit/arena"
)

var (
	// ErrShortBuffer is returned when a read needs more bytes than remain.
	ErrShortBuffer = errors.New("binio: short buffer")
	// ErrInvalidPosition is returned when an initial position lies beyond the
	// buffer end.
	ErrInvalidPosition = errors.New("binio: invalid position")
	// ErrScratchUnavailable is returned when arena scratch cannot be allocated.
	ErrScratchUnavailable = errors.New("binio: scratch allocation failed")
)

// Throttle meters the bytes a reader may consume. resource.Controller
// satisfies it.
type Throttle interface {
	AcquireIO(ctx context.Context, bytes int) error
}

// Options configures readers and writers. Fields that do not apply to a type
// are ignored by it.
type Options struct {
	// ByteOrder selects the wire byte order. Default: binary.LittleEndian.
	ByteOrder binary.ByteOrder

	// Position is the initial read position (Reader only). Default: 0.
	Position int

	// BufferSize is the internal buffer size (FileReader only). Default: 8192.
	BufferSize int

	// Throttle meters file refills (FileReader only). Default: none.
	Throttle Throttle

	// Context bounds throttle waits (FileReader only). Default: Background.
	Context context.Context
}

// Option mutates Options.
type Option func(*Options)

// WithByteOrder selects the byte order used to interpret multi-byte values.
func WithByteOrder(order binary.ByteOrder) Option {
	return func(o *Options) {
		if order != nil {
			o.ByteOrder = order
		}
	}
}

// WithPosition sets the initial read position of a Reader.
func WithPosition(pos int) Option {
	return func(o *Options) {
		o.Position = pos
	}
}

// WithBufferSize sets the internal buffer size of a FileReader.
func WithBufferSize(n int) Option {
	return func(o *Options) {
		o.BufferSize = n
	}
}

// WithThrottle meters a FileReader's refills through the given throttle.
func WithThrottle(t Throttle) Option {
	return func(o *Options) {
		o.Throttle = t
	}
}

// WithContext bounds the waits a throttled FileReader may incur.
func WithContext(ctx context.Context) Option {
	return func(o *Options) {
		if ctx != nil {
			o.Context = ctx
		}
	}
}

func applyOptions(opts []Option) Options {
	o := Options{
		ByteOrder:  binary.LittleEndian,
		BufferSize: defaultBufferSize,
		Context:    context.Background(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Reader decodes binary data sequentially from an in-memory buffer. It keeps
// a reference to the buffer instead of copying it; views returned by Bytes
// alias the caller's memory.
type Reader struct {
	data  []byte
	pos   int
	order binary.ByteOrder
}

// NewReader creates a Reader over buf. It fails with ErrInvalidPosition if an
// initial position past the end of buf was requested.
func NewReader(buf []byte, opts ...Option) (*Reader, error) {
	o := applyOptions(opts)
	if o.Position < 0 || o.Position > len(buf) {
		return nil, fmt.Errorf("%w: initial position %d exceeds buffer size %d", ErrInvalidPosition, o.Position, len(buf))
	}
	return &Reader{data: buf, pos: o.Position, order: o.ByteOrder}, nil
}

// Size returns the total size of the underlying buffer.
func (r *Reader) Size() int { return len(r.data) }

// Position returns the current read position.
func (r *Reader) Position() int { return r.pos }

// Remaining returns the number of bytes left to read.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// SetPosition moves the read position, clamping to the buffer end. It never
// fails.
func (r *Reader) SetPosition(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(r.data) {
		pos = len(r.data)
	}
	r.pos = pos
}

// Skip advances the read position by n bytes, clamping to the buffer end. It
// never fails.
func (r *Reader) Skip(n int) {
	if n > 0 {
		r.SetPosition(r.pos + n)
	}
}

func (r *Reader) need(n int) error {
	if len(r.data)-r.pos < n {
		return fmt.Errorf("%w: need %d bytes at position %d, %d remaining", ErrShortBuffer, n, r.pos, len(r.data)-r.pos)
	}
	return nil
}

// Uint8 reads one byte.
func (r *Reader) Uint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// Uint16 reads a 16-bit unsigned integer in the configured byte order.
func (r *Reader) Uint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := r.order.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// Uint32 reads a 32-bit unsigned integer in the configured byte order.
func (r *Reader) Uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := r.order.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// Uint64 reads a 64-bit unsigned integer in the configured byte order.
func (r *Reader) Uint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := r.order.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// Int8 reads a signed byte.
func (r *Reader) Int8() (int8, error) {
	v, err := r.Uint8()
	return int8(v), err
}

// Int16 reads a 16-bit signed integer in the configured byte order.
func (r *Reader) Int16() (int16, error) {
	v, err := r.Uint16()
	return int16(v), err
}

// Int32 reads a 32-bit signed integer in the configured byte order.
func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

// Int64 reads a 64-bit signed integer in the configured byte order.
func (r *Reader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

// Float32 reads an IEEE 754 32-bit float in the configured byte order.
func (r *Reader) Float32() (float32, error) {
	v, err := r.Uint32()
	return math.Float32frombits(v), err
}

// Float64 reads an IEEE 754 64-bit float in the configured byte order.
func (r *Reader) Float64() (float64, error) {
	v, err := r.Uint64()
	return math.Float64frombits(v), err
}

// Bytes returns a view of the next n bytes without copying. The view aliases
// the reader's buffer and stays valid as long as the buffer does.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative count %d", ErrShortBuffer, n)
	}
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return v, nil
}

// ReadFull copies exactly len(dst) bytes into dst.
func (r *Reader) ReadFull(dst []byte) error {
	if err := r.need(len(dst)); err != nil {
		return err
	}
	copy(dst, r.data[r.pos:])
	r.pos += len(dst)
	return nil
}

// BytesArena copies the next n bytes into scratch allocated from a. The copy
// lives until the arena rewinds past it. It fails with ErrScratchUnavailable
// when the arena is out of space.
func (r *Reader) BytesArena(a *arena.Arena, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative count %d", ErrShortBuffer, n)
	}
	if err := r.need(n); err != nil {
		return nil, err
	}
	dst, ok := a.Alloc(n, arena.DefaultAlignment)
	if !ok {
		return nil, fmt.Errorf("%w: %d bytes, %d remaining in arena", ErrScratchUnavailable, n, a.BytesRemaining())
	}
	copy(dst, r.data[r.pos:])
	r.pos += n
	return dst, nil
}

// Uint16Into fills dst with 16-bit values converted from the configured byte
// order.
func (r *Reader) Uint16Into(dst []uint16) error {
	if err := r.need(len(dst) * 2); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = r.order.Uint16(r.data[r.pos:])
		r.pos += 2
	}
	return nil
}

// Uint32Into fills dst with 32-bit values converted from the configured byte
// order.
func (r *Reader) Uint32Into(dst []uint32) error {
	if err := r.need(len(dst) * 4); err != nil {
		return err
	}
	for i := range dst {
		dst[i] = r.order.Uint32(r.data[r.pos:])
		r.pos += 4
	}
	return nil
}

// String reads a fixed-length string of n bytes.
func (r *Reader) String(n int) (string, error) {
	v, err := r.Bytes(n)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// CString reads up to the next NUL byte and consumes the terminator. If no
// terminator exists it reads to the end of the buffer. It never fails.
func (r *Reader) CString() string {
	rest := r.data[r.pos:]
	end := bytes.IndexByte(rest, 0)
	if end < 0 {
		r.pos = len(r.data)
		return string(rest)
	}
	r.pos += end + 1
	return string(rest[:end])
}

// PeekUint8 returns the byte at the current position without advancing.
func (r *Reader) PeekUint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	return r.data[r.pos], nil
}

// PeekUint16 returns the 16-bit value at the current position without
// advancing.
func (r *Reader) PeekUint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	return r.order.Uint16(r.data[r.pos:]), nil
}
