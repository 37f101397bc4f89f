package pool

// Lease is a scoped, exclusive borrow of one pooled item. It takes the item
// at creation and returns it on Close, re-running the release hook:
//
//	lease, err := p.Lease()
//	if err != nil { ... }
//	defer lease.Close()
//	use(lease.Value())
//
// A lease is single-owner: pass the *Lease around, never copy the struct —
// two copies would both try to return the same item. Release hands the item
// to the caller by value and deactivates the automatic return.
type Lease[T any] struct {
	pool   *Pool[T]
	item   T
	active bool
}

// Lease takes an item from the pool and wraps it in a Lease. It propagates
// ErrPoolExhausted when the pool is empty.
func (p *Pool[T]) Lease() (*Lease[T], error) {
	item, err := p.Take()
	if err != nil {
		return nil, err
	}
	return &Lease[T]{pool: p, item: item, active: true}, nil
}

// Value returns a pointer to the leased item. The pointer is valid until the
// lease is closed or released.
func (l *Lease[T]) Value() *T {
	return &l.item
}

// Close returns the item to the pool if the lease is still active. Only the
// first Close returns the item; later calls, or a Close after Release, are
// no-ops. The error mirrors Add: returning can fail with ErrLimitExceeded if
// the pool's limit was lowered while the lease was out.
func (l *Lease[T]) Close() error {
	if !l.active {
		return nil
	}
	l.active = false
	return l.pool.Add(l.item)
}

// Release deactivates the lease and transfers the item to the caller. The
// pool permanently loses one resident item unless the caller adds it back.
func (l *Lease[T]) Release() T {
	l.active = false
	return l.item
}
