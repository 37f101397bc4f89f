package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type buffer struct {
	id   int
	data []byte
	live bool
}

// hookCounter records hook invocations and toggles the live flag so tests can
// observe hook ordering relative to pool mutations.
type hookCounter struct {
	acquires int
	releases int
}

func (h *hookCounter) OnAcquire(b *buffer) {
	h.acquires++
	b.live = true
}

func (h *hookCounter) OnRelease(b *buffer) {
	h.releases++
	b.live = false
}

func newBufferPool(t *testing.T, initial int, opts ...Option[buffer]) (*Pool[buffer], *hookCounter) {
	t.Helper()

	next := 0
	hooks := &hookCounter{}
	base := []Option[buffer]{
		WithFactory[buffer](func() buffer {
			next++
			return buffer{id: next, data: make([]byte, 0, 64)}
		}),
		WithAcquireHook[buffer](hooks),
		WithReleaseHook[buffer](hooks),
	}

	p, err := New[buffer](initial, append(base, opts...)...)
	require.NoError(t, err)
	return p, hooks
}

func TestNew(t *testing.T) {
	t.Run("initial population runs the release hook", func(t *testing.T) {
		p, hooks := newBufferPool(t, 3)

		assert.Equal(t, 3, p.Len())
		assert.Equal(t, 3, hooks.releases)
		assert.Zero(t, hooks.acquires)
	})

	t.Run("zero initial size", func(t *testing.T) {
		p, err := New[buffer](0)
		require.NoError(t, err)
		assert.True(t, p.Empty())
	})

	t.Run("negative initial size clamps to zero", func(t *testing.T) {
		p, err := New[buffer](-5)
		require.NoError(t, err)
		assert.Zero(t, p.Len())
	})

	t.Run("initial size above limit rejected", func(t *testing.T) {
		_, err := New[buffer](10, WithLimit[buffer](5))
		assert.ErrorIs(t, err, ErrInvalidInitialSize)
	})

	t.Run("default factory yields zero values", func(t *testing.T) {
		p, err := New[int](2)
		require.NoError(t, err)

		v, err := p.Take()
		require.NoError(t, err)
		assert.Zero(t, v)
	})
}

func TestTake(t *testing.T) {
	t.Run("lifo order", func(t *testing.T) {
		p, _ := newBufferPool(t, 1) // item id 1

		require.NoError(t, p.Add(buffer{id: 42}))

		b, err := p.Take()
		require.NoError(t, err)
		assert.Equal(t, 42, b.id, "most recently released comes out first")

		b, err = p.Take()
		require.NoError(t, err)
		assert.Equal(t, 1, b.id)
	})

	t.Run("acquire hook runs on the way out", func(t *testing.T) {
		p, hooks := newBufferPool(t, 1)

		b, err := p.Take()
		require.NoError(t, err)
		assert.True(t, b.live, "acquire hook marked the item live")
		assert.Equal(t, 1, hooks.acquires)
	})

	t.Run("empty pool", func(t *testing.T) {
		p, _ := newBufferPool(t, 0)

		_, err := p.Take()
		assert.ErrorIs(t, err, ErrPoolExhausted)

		_, ok := p.TryTake()
		assert.False(t, ok)
	})
}

func TestAdd(t *testing.T) {
	t.Run("release hook runs on the way in", func(t *testing.T) {
		p, hooks := newBufferPool(t, 0)

		require.NoError(t, p.Add(buffer{id: 7, live: true}))
		assert.Equal(t, 1, hooks.releases)

		b, err := p.Take()
		require.NoError(t, err)
		assert.Equal(t, 7, b.id)
	})

	t.Run("limit bounds resident size", func(t *testing.T) {
		p, _ := newBufferPool(t, 3, WithLimit[buffer](5))

		require.NoError(t, p.Add(buffer{}))
		require.NoError(t, p.Add(buffer{}))
		assert.Equal(t, 5, p.Len())

		err := p.Add(buffer{})
		assert.ErrorIs(t, err, ErrLimitExceeded)
		assert.Equal(t, 5, p.Len())

		assert.False(t, p.TryAdd(buffer{}))
	})

	t.Run("limit ignores leased-out items", func(t *testing.T) {
		p, _ := newBufferPool(t, 2, WithLimit[buffer](2))

		b, err := p.Take()
		require.NoError(t, err)
		require.NoError(t, p.Add(buffer{id: 99}))
		assert.Equal(t, 2, p.Len())

		// The original item no longer fits.
		assert.ErrorIs(t, p.Add(b), ErrLimitExceeded)
	})

	t.Run("panicking hook propagates through Add and leaves the pool intact", func(t *testing.T) {
		p, err := New[buffer](0, WithReleaseHook[buffer](ReleaseHookFunc[buffer](func(*buffer) {
			panic("hook contract violated")
		})))
		require.NoError(t, err)

		assert.Panics(t, func() { _ = p.Add(buffer{}) })
		assert.Zero(t, p.Len())
	})

	t.Run("TryAdd contains a panicking hook", func(t *testing.T) {
		p, err := New[buffer](0, WithReleaseHook[buffer](ReleaseHookFunc[buffer](func(*buffer) {
			panic("hook contract violated")
		})))
		require.NoError(t, err)

		assert.NotPanics(t, func() {
			assert.False(t, p.TryAdd(buffer{}))
		})
		assert.Zero(t, p.Len())
	})
}

func TestReserve(t *testing.T) {
	t.Run("grows to target", func(t *testing.T) {
		p, hooks := newBufferPool(t, 2)

		require.NoError(t, p.Reserve(8))
		assert.Equal(t, 8, p.Len())
		assert.Equal(t, 8, hooks.releases)
	})

	t.Run("target at or below current size is a no-op", func(t *testing.T) {
		p, _ := newBufferPool(t, 4)

		require.NoError(t, p.Reserve(2))
		assert.Equal(t, 4, p.Len(), "reserve never shrinks")
	})

	t.Run("non-positive target", func(t *testing.T) {
		p, _ := newBufferPool(t, 1)

		assert.ErrorIs(t, p.Reserve(0), ErrInvalidTargetSize)
		assert.ErrorIs(t, p.Reserve(-1), ErrInvalidTargetSize)

		// The non-failing variant treats zero as nothing to do.
		assert.True(t, p.TryReserve(0))
		assert.False(t, p.TryReserve(-1))
		assert.Equal(t, 1, p.Len())
	})

	t.Run("target above limit", func(t *testing.T) {
		p, _ := newBufferPool(t, 2, WithLimit[buffer](8))

		assert.ErrorIs(t, p.Reserve(10), ErrLimitExceeded)
		assert.False(t, p.TryReserve(10))
		assert.Equal(t, 2, p.Len())
	})

	t.Run("mid-grow panic rolls back", func(t *testing.T) {
		built := 0
		p, err := New[int](2, WithFactory[int](func() int {
			built++
			if built == 4 { // two built at construction, two more before the trap
				panic("factory failure")
			}
			return built
		}))
		require.NoError(t, err)
		require.Equal(t, 2, p.Len())

		assert.Panics(t, func() { _ = p.Reserve(6) })
		assert.Equal(t, 2, p.Len(), "partial growth rolled back")
	})

	t.Run("rollback releases partially built items", func(t *testing.T) {
		built := 0
		p, err := New[*buffer](0, WithFactory[*buffer](func() *buffer {
			built++
			if built == 3 {
				panic("factory failure")
			}
			return &buffer{id: built}
		}))
		require.NoError(t, err)

		assert.Panics(t, func() { _ = p.Reserve(4) })
		assert.Zero(t, p.Len())

		// The slots vacated by the rollback must not pin the dead items.
		for i, slot := range p.items[:cap(p.items)] {
			assert.Nil(t, slot, "slot %d", i)
		}
	})

	t.Run("TryReserve contains the panic", func(t *testing.T) {
		calls := 0
		p, err := New[int](0, WithFactory[int](func() int {
			calls++
			if calls > 2 {
				panic("factory failure")
			}
			return calls
		}))
		require.NoError(t, err)

		assert.NotPanics(t, func() {
			assert.False(t, p.TryReserve(5))
		})
		assert.Zero(t, p.Len(), "rolled back to pre-call size")
	})
}

func TestShrinkToFit(t *testing.T) {
	p, _ := newBufferPool(t, 0)
	require.NoError(t, p.Reserve(64))

	for i := 0; i < 60; i++ {
		_, err := p.Take()
		require.NoError(t, err)
	}
	require.Greater(t, p.Cap(), p.Len())

	p.ShrinkToFit()
	assert.Equal(t, 4, p.Len())
	assert.Equal(t, p.Len(), p.Cap())
}

func TestSizeLimit(t *testing.T) {
	t.Run("lowering does not evict", func(t *testing.T) {
		p, _ := newBufferPool(t, 6)

		p.SetSizeLimit(3)
		assert.Equal(t, 6, p.Len(), "resident items stay")
		assert.ErrorIs(t, p.Add(buffer{}), ErrLimitExceeded)

		// Takes drain below the new limit; adds work again.
		for i := 0; i < 4; i++ {
			_, err := p.Take()
			require.NoError(t, err)
		}
		assert.NoError(t, p.Add(buffer{}))
	})

	t.Run("zero lifts the limit", func(t *testing.T) {
		p, _ := newBufferPool(t, 2, WithLimit[buffer](2))

		assert.ErrorIs(t, p.Add(buffer{}), ErrLimitExceeded)
		p.SetSizeLimit(0)
		assert.Equal(t, 0, p.SizeLimit())
		assert.NoError(t, p.Add(buffer{}))
	})
}

func TestConcurrency(t *testing.T) {
	const (
		workers = 8
		cycles  = 500
	)

	p, err := New[int](workers, WithFactory[int](func() int { return 1 }))
	require.NoError(t, err)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < cycles; i++ {
				v, err := p.Take()
				if err != nil {
					return err
				}
				if err := p.Add(v); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, workers, p.Len(), "every take was matched by an add")
}

func TestConcurrentHookSerialization(t *testing.T) {
	// Hooks run inside the critical section, so unsynchronized hook state must
	// stay consistent under contention; the race detector verifies the rest.
	var (
		acquires int
		releases int
	)
	p, err := New[int](4,
		WithAcquireHook[int](AcquireHookFunc[int](func(*int) { acquires++ })),
		WithReleaseHook[int](ReleaseHookFunc[int](func(*int) { releases++ })),
	)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if v, ok := p.TryTake(); ok {
					_ = p.TryAdd(v)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, acquires, releases-4, "initial population accounts for the offset")
}
