// Package pool provides a generic, thread-safe object pool with pluggable
// acquire/release hooks and scoped leasing.
//
// A Pool holds reusable value instances and hands them out LIFO: the most
// recently released item is the next one taken, which keeps hot items hot.
// An optional size limit bounds the number of resident items; items currently
// leased out are not counted.
//
// Every operation that touches the internal container serializes on one
// mutex, held only for the container mutation plus hook invocation, never
// across a caller's use of a taken item. Take never waits for an item to
// become available: it either succeeds or fails immediately, so no fairness
// or cancellation concept applies.
package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var (
	// ErrPoolExhausted is returned by Take when the pool is empty.
	ErrPoolExhausted = errors.New("pool: exhausted")
	// ErrLimitExceeded is returned when an operation would grow the pool past
	// its size limit.
	ErrLimitExceeded = errors.New("pool: size limit exceeded")
	// ErrInvalidInitialSize is returned by New when the initial size exceeds
	// the configured limit.
	ErrInvalidInitialSize = errors.New("pool: initial size exceeds size limit")
	// ErrInvalidTargetSize is returned by Reserve for a non-positive target.
	ErrInvalidTargetSize = errors.New("pool: invalid target size")
)

// AcquireHook is invoked on an item as it leaves the pool's available set.
// Hooks must not fail: the interface has no error channel, and a hook that
// panics breaks the pool contract (see TryAdd/TryReserve for containment).
// Hooks run inside the pool's critical section and must be fast.
type AcquireHook[T any] interface {
	OnAcquire(item *T)
}

// ReleaseHook is invoked on an item as it enters the pool's available set,
// including the initial population. Same contract as AcquireHook.
type ReleaseHook[T any] interface {
	OnRelease(item *T)
}

// AcquireHookFunc adapts a function to an AcquireHook.
type AcquireHookFunc[T any] func(item *T)

// OnAcquire implements AcquireHook.
func (f AcquireHookFunc[T]) OnAcquire(item *T) { f(item) }

// ReleaseHookFunc adapts a function to a ReleaseHook.
type ReleaseHookFunc[T any] func(item *T)

// OnRelease implements ReleaseHook.
func (f ReleaseHookFunc[T]) OnRelease(item *T) { f(item) }

// NopHook implements both hook interfaces with no-ops. It is the default for
// each hook role.
type NopHook[T any] struct{}

// OnAcquire implements AcquireHook.
func (NopHook[T]) OnAcquire(*T) {}

// OnRelease implements ReleaseHook.
func (NopHook[T]) OnRelease(*T) {}

// Pool is a thread-safe pool of reusable values of type T.
type Pool[T any] struct {
	mu      sync.Mutex
	items   []T // available items; the tail is the most recently released
	limit   int // 0 means unlimited
	factory func() T
	acquire AcquireHook[T]
	release ReleaseHook[T]
	logger  *slog.Logger
}

// Option is a configuration option for Pool.
type Option[T any] func(*Pool[T])

// WithLimit bounds the number of items resident in the pool. Zero (the
// default) means unlimited.
func WithLimit[T any](limit int) Option[T] {
	return func(p *Pool[T]) {
		if limit < 0 {
			limit = 0
		}
		p.limit = limit
	}
}

// WithFactory replaces the default zero-value construction of new items.
func WithFactory[T any](factory func() T) Option[T] {
	return func(p *Pool[T]) {
		if factory != nil {
			p.factory = factory
		}
	}
}

// WithAcquireHook sets the hook invoked as items leave the pool.
func WithAcquireHook[T any](h AcquireHook[T]) Option[T] {
	return func(p *Pool[T]) {
		if h != nil {
			p.acquire = h
		}
	}
}

// WithReleaseHook sets the hook invoked as items enter the pool.
func WithReleaseHook[T any](h ReleaseHook[T]) Option[T] {
	return func(p *Pool[T]) {
		if h != nil {
			p.release = h
		}
	}
}

// WithLogger enables debug logging of limit rejections and reserve rollbacks.
// A nil logger (the default) keeps the pool silent.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(p *Pool[T]) {
		p.logger = logger
	}
}

// New creates a Pool populated with initialSize items built by the factory,
// each passed through the release hook before it becomes available. It fails
// with ErrInvalidInitialSize if a limit is set and initialSize exceeds it.
func New[T any](initialSize int, opts ...Option[T]) (*Pool[T], error) {
	p := &Pool[T]{
		factory: func() T { var zero T; return zero },
		acquire: NopHook[T]{},
		release: NopHook[T]{},
	}
	for _, opt := range opts {
		opt(p)
	}

	if initialSize < 0 {
		initialSize = 0
	}
	if p.limit > 0 && initialSize > p.limit {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidInitialSize, initialSize, p.limit)
	}

	p.items = make([]T, 0, initialSize)
	for i := 0; i < initialSize; i++ {
		item := p.factory()
		p.release.OnRelease(&item)
		p.items = append(p.items, item)
	}
	return p, nil
}

// Take removes and returns the most recently released item, invoking the
// acquire hook on it first. It fails with ErrPoolExhausted when the pool is
// empty.
func (p *Pool[T]) Take() (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.items) == 0 {
		var zero T
		return zero, ErrPoolExhausted
	}
	return p.takeLocked(), nil
}

// TryTake is the non-failing variant of Take. It reports false when the pool
// is empty.
func (p *Pool[T]) TryTake() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.items) == 0 {
		var zero T
		return zero, false
	}
	return p.takeLocked(), true
}

func (p *Pool[T]) takeLocked() T {
	last := len(p.items) - 1
	item := p.items[last]

	var zero T
	p.items[last] = zero // drop the pool's reference so the GC can follow only the caller's
	p.items = p.items[:last]

	p.acquire.OnAcquire(&item)
	return item
}

// Add passes item through the release hook and inserts it. It fails with
// ErrLimitExceeded when the pool is already at its limit. The hook runs
// before insertion, so a panicking hook leaves the pool unmodified.
func (p *Pool[T]) Add(item T) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.limit > 0 && len(p.items) >= p.limit {
		p.logLimit("add rejected")
		return fmt.Errorf("%w: size %d at limit %d", ErrLimitExceeded, len(p.items), p.limit)
	}

	p.release.OnRelease(&item)
	p.items = append(p.items, item)
	return nil
}

// TryAdd is the non-failing variant of Add. It reports false when the pool is
// at its limit, and contains a release hook that breaks its no-fail contract
// by panicking: the panic is recovered, the pool is left unmodified, and
// TryAdd reports false.
func (p *Pool[T]) TryAdd(item T) (ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.limit > 0 && len(p.items) >= p.limit {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			p.logHookPanic("add", r)
			ok = false
		}
	}()

	p.release.OnRelease(&item)
	p.items = append(p.items, item)
	return true
}

// Reserve grows the pool until at least target items are resident, building
// the delta with the factory and the release hook. A panic partway through
// rolls the pool back to its pre-call size before propagating. Reserve fails
// with ErrInvalidTargetSize for a non-positive target and with
// ErrLimitExceeded when target exceeds the limit; TryReserve treats a zero
// target as a no-op instead.
func (p *Pool[T]) Reserve(target int) error {
	if target <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTargetSize, target)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.limit > 0 && target > p.limit {
		p.logLimit("reserve rejected")
		return fmt.Errorf("%w: target %d exceeds limit %d", ErrLimitExceeded, target, p.limit)
	}

	p.growLocked(target)
	return nil
}

// TryReserve is the non-failing variant of Reserve. A zero target is a
// successful no-op, where Reserve rejects it. It reports false, with the pool
// rolled back to its pre-call size, when target exceeds the limit or a
// factory/hook panics partway.
func (p *Pool[T]) TryReserve(target int) (ok bool) {
	if target == 0 {
		return true
	}
	if target < 0 {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.limit > 0 && target > p.limit {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			p.logHookPanic("reserve", r)
			ok = false
		}
	}()

	p.growLocked(target)
	return true
}

// growLocked appends factory-built items until len reaches target. On a panic
// from the factory or release hook it truncates back to the pre-call length
// and re-panics; the pool never ends in a partially-grown state.
func (p *Pool[T]) growLocked(target int) {
	prev := len(p.items)
	defer func() {
		if r := recover(); r != nil {
			var zero T
			for i := prev; i < len(p.items); i++ {
				p.items[i] = zero // drop references held past the truncation point
			}
			p.items = p.items[:prev]
			panic(r)
		}
	}()

	for len(p.items) < target {
		item := p.factory()
		p.release.OnRelease(&item)
		p.items = append(p.items, item)
	}
}

// ShrinkToFit reallocates the internal container to its current size,
// returning slack capacity to the garbage collector.
func (p *Pool[T]) ShrinkToFit() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if cap(p.items) == len(p.items) {
		return
	}
	shrunk := make([]T, len(p.items))
	copy(shrunk, p.items)
	p.items = shrunk
}

// Len returns the number of items currently resident in the pool.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// Cap returns the container capacity, the number of items the pool can hold
// without reallocating.
func (p *Pool[T]) Cap() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cap(p.items)
}

// Empty reports whether no items are resident.
func (p *Pool[T]) Empty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items) == 0
}

// SizeLimit returns the configured limit, 0 meaning unlimited.
func (p *Pool[T]) SizeLimit() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.limit
}

// SetSizeLimit replaces the size limit; 0 makes the pool unlimited. Items
// already resident above a lowered limit are not evicted; Add fails until
// takes bring the size back under the limit.
func (p *Pool[T]) SetSizeLimit(limit int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if limit < 0 {
		limit = 0
	}
	p.limit = limit
}

func (p *Pool[T]) logLimit(msg string) {
	if p.logger != nil {
		p.logger.Debug(msg, "size", len(p.items), "limit", p.limit)
	}
}

func (p *Pool[T]) logHookPanic(op string, r any) {
	if p.logger != nil {
		p.logger.Debug("hook panic contained", "op", op, "panic", r, "size", len(p.items))
	}
}
