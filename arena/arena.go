// Package arena implements a fixed-capacity linear allocator with
// checkpoint-based rewind.
//
// # Concurrency Model
//
// An Arena has no internal synchronization and is single-user:
// concurrent calls on the same instance are undefined behavior. The intended
// pattern is one arena per goroutine or per task. Callers that must share an
// arena across goroutines have to provide their own synchronization.
//
// # Memory Management
//
// Allocations advance a cursor over a fixed buffer and are reclaimed in bulk
// by Reset or by restoring a Checkpoint. Individual allocations are never
// freed. Every view handed out by Alloc becomes invalid as soon as a rewind
// moves the cursor back past it; using such a view afterwards is a caller
// error the arena cannot detect.
//
// # Usage Recommendations
//
//  1. Create one arena per request or build phase, sized for the phase.
//  2. Use Save/Restore (or Scope) around speculative work.
//  3. Call Reset between phases for O(1) cleanup.
//  4. Call Close when done so budget reservations are returned.
package arena

import (
	"errors"
	"fmt"
	"unsafe"
)

// DefaultAlignment is the alignment guaranteed for the arena base and used
// by allocations that do not request a stricter one (8 bytes).
const DefaultAlignment = 8

var (
	// ErrAllocationFailed is returned when an owned arena cannot be constructed.
	ErrAllocationFailed = errors.New("arena: allocation failed")
	// ErrInvalidBuffer is returned when a caller-supplied buffer is unusable.
	ErrInvalidBuffer = errors.New("arena: invalid buffer")
	// ErrInvalidCheckpoint is returned when restoring a checkpoint that lies
	// outside the arena's valid range.
	ErrInvalidCheckpoint = errors.New("arena: invalid checkpoint")
)

// MemoryBudget is an interface for reserving memory against an external limit.
type MemoryBudget interface {
	AcquireMemory(bytes int64) error
	ReleaseMemory(bytes int64)
}

// Stats tracks arena usage metrics. Counters are plain integers; the arena is
// single-user, so no atomics are needed.
type Stats struct {
	TotalAllocs  uint64 // Historical: successful allocations
	FailedAllocs uint64 // Historical: rejected allocations
	BytesWasted  uint64 // Historical: alignment padding
	HighWater    int    // Peak cursor position, survives Reset/Restore
}

// Checkpoint is an opaque snapshot of the allocation cursor, taken via Save.
// It is valid only for the arena instance that produced it and only while
// that arena is alive. Restoring a checkpoint from another arena of equal or
// larger capacity is not detectable at runtime and is a caller error.
type Checkpoint struct {
	offset int
}

// Arena is a linear allocator over an owned or borrowed byte buffer.
type Arena struct {
	buf      []byte // usable, base-aligned region; len(buf) is the capacity
	cursor   int    // next allocation offset, 0 <= cursor <= len(buf)
	budget   MemoryBudget
	reserved int64 // bytes currently reserved from budget
	owned    bool
	closed   bool
	stats    Stats
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithBudget charges an owned arena's backing buffer against the given
// budget. The reservation is made at construction and returned by Close.
// Borrowed arenas (NewWithBuffer) never touch the budget since they do not
// own their storage.
func WithBudget(b MemoryBudget) Option {
	return func(a *Arena) {
		a.budget = b
	}
}

// New creates an Arena that owns a heap-acquired buffer of the given
// capacity. It fails with ErrAllocationFailed if capacity is not positive or
// the configured budget denies the reservation.
func New(capacity int, opts ...Option) (*Arena, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive, got %d", ErrAllocationFailed, capacity)
	}

	a := &Arena{owned: true}
	for _, opt := range opts {
		opt(a)
	}

	if a.budget != nil {
		if err := a.budget.AcquireMemory(int64(capacity)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAllocationFailed, err)
		}
		a.reserved = int64(capacity)
	}

	// Over-allocate so the base can be rounded up to DefaultAlignment.
	// Offsets relative to an aligned base stay aligned.
	raw := make([]byte, capacity+DefaultAlignment)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	off := int((DefaultAlignment - (addr & (DefaultAlignment - 1))) & (DefaultAlignment - 1))

	a.buf = raw[off : off+capacity : off+capacity]
	return a, nil
}

// NewWithBuffer creates an Arena over caller-supplied memory without taking
// ownership; the caller must keep buf alive for the arena's whole lifetime
// and remains responsible for it afterwards.
//
// If buf does not start on a DefaultAlignment boundary the base is re-aligned
// upward and the usable capacity shrinks by the offset. It fails with
// ErrInvalidBuffer if buf is nil or empty, or too small to hold a minimally
// aligned region after adjustment.
func NewWithBuffer(buf []byte, opts ...Option) (*Arena, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: nil or empty buffer", ErrInvalidBuffer)
	}

	addr := uintptr(unsafe.Pointer(&buf[0]))
	off := int((DefaultAlignment - (addr & (DefaultAlignment - 1))) & (DefaultAlignment - 1))
	if off != 0 && off+DefaultAlignment >= len(buf) {
		return nil, fmt.Errorf("%w: %d bytes too small after alignment", ErrInvalidBuffer, len(buf))
	}

	a := &Arena{}
	for _, opt := range opts {
		opt(a)
	}

	a.buf = buf[off:len(buf):len(buf)]
	return a, nil
}

// Alloc returns a view of exactly size bytes whose base address is a multiple
// of alignment, advancing the cursor. alignment must be a power of two.
//
// It reports false, never an error or a panic, when size is not positive,
// alignment is invalid or exceeds the capacity, or the aligned range would
// overrun the buffer. A failed Alloc leaves the cursor untouched.
//
// The returned slice's contents are unspecified: after a rewind the same
// bytes are handed out again without zeroing.
func (a *Arena) Alloc(size, alignment int) ([]byte, bool) {
	if a.closed || size <= 0 || size > len(a.buf) {
		return a.fail()
	}
	if !isPowerOfTwo(alignment) || alignment > len(a.buf) {
		return a.fail()
	}

	addr := uintptr(unsafe.Pointer(&a.buf[0])) + uintptr(a.cursor)
	mask := uintptr(alignment) - 1
	aligned := (addr + mask) &^ mask
	off := a.cursor + int(aligned-addr)

	// Latest start that still leaves room for size bytes. Also rejects
	// post-alignment overrun.
	if off > len(a.buf)-size {
		return a.fail()
	}

	a.stats.BytesWasted += uint64(off - a.cursor)
	a.stats.TotalAllocs++
	a.cursor = off + size
	if a.cursor > a.stats.HighWater {
		a.stats.HighWater = a.cursor
	}
	return a.buf[off:a.cursor:a.cursor], true
}

func (a *Arena) fail() ([]byte, bool) {
	a.stats.FailedAllocs++
	return nil, false
}

// Save returns the current cursor as an opaque checkpoint. It cannot fail.
func (a *Arena) Save() Checkpoint {
	return Checkpoint{offset: a.cursor}
}

// Restore rewinds the cursor to a previously saved checkpoint, discarding
// every allocation made after it. It fails with ErrInvalidCheckpoint if the
// checkpoint lies outside the arena's range (for example, one taken from a
// larger arena) or the arena has been closed.
func (a *Arena) Restore(cp Checkpoint) error {
	if a.closed || cp.offset < 0 || cp.offset > len(a.buf) {
		return fmt.Errorf("%w: offset %d outside [0, %d]", ErrInvalidCheckpoint, cp.offset, len(a.buf))
	}
	a.cursor = cp.offset
	return nil
}

// Reset rewinds the cursor to the construction-time checkpoint, discarding
// all allocations. It cannot fail.
func (a *Arena) Reset() {
	if !a.closed {
		a.cursor = 0
	}
}

// BytesUsed returns the number of bytes consumed by allocations, including
// alignment padding.
func (a *Arena) BytesUsed() int { return a.cursor }

// BytesRemaining returns the number of bytes still available.
func (a *Arena) BytesRemaining() int { return len(a.buf) - a.cursor }

// Capacity returns the total usable size of the managed region.
func (a *Arena) Capacity() int { return len(a.buf) }

// Stats returns a snapshot of the arena's usage counters.
func (a *Arena) Stats() Stats { return a.stats }

// Close releases the budget reservation of an owned arena and marks the
// arena unusable: subsequent Alloc calls report no space and Restore fails.
// Close is idempotent. Borrowed buffers are left untouched for their owner.
func (a *Arena) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	if a.budget != nil && a.reserved > 0 {
		a.budget.ReleaseMemory(a.reserved)
		a.reserved = 0
	}

	a.buf = nil
	a.cursor = 0
	return nil
}

func isPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}
