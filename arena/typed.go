package arena

import (
	"math"
	"unsafe"
)

// AllocTyped allocates space for a single value of type T, equivalent to
// Alloc(Sizeof(T), Alignof(T)) reinterpreted as a *T. The slot is not zeroed
// and no constructor runs; the caller must fully initialize it before use.
//
// T must not contain pointers. The backing store is a byte buffer the garbage
// collector scans as pointer-free, so a pointer stored through the returned
// *T keeps nothing alive. Zero-size types fail like a zero-size Alloc.
func AllocTyped[T any](a *Arena) (*T, bool) {
	var zero T
	buf, ok := a.Alloc(int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero)))
	if !ok {
		return nil, false
	}
	return (*T)(unsafe.Pointer(&buf[0])), true //nolint:gosec // arena-backed typed view
}

// AllocSlice allocates backing storage for a slice of T with length 0 and the
// given capacity. The same pointer-free restriction as AllocTyped applies,
// and appending beyond the capacity reallocates outside the arena.
func AllocSlice[T any](a *Arena, capacity int) ([]T, bool) {
	if capacity <= 0 {
		return nil, false
	}

	var zero T
	elem := int(unsafe.Sizeof(zero))
	if elem > 0 && capacity > math.MaxInt/elem {
		// The byte size would wrap; no arena could satisfy it anyway.
		return nil, false
	}
	buf, ok := a.Alloc(capacity*elem, int(unsafe.Alignof(zero)))
	if !ok {
		return nil, false
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&buf[0])), capacity)[:0:capacity], true //nolint:gosec // arena-backed typed view
}
