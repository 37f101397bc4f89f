// Package memkit provides manual memory-management primitives for
// performance-sensitive Go code.
//
// The primitives live in subpackages; this package only documents the module.
//
// # Packages
//
//   - arena: a fixed-capacity linear allocator with checkpoint-based rewind
//     and a scoped checkpoint guard. One arena per goroutine or task;
//     allocation never unwinds on the hot path.
//   - pool: a generic, thread-safe object pool with acquire/release hooks and
//     scoped leasing.
//   - binio: bounds-checked binary readers and writers with configurable byte
//     order, which can borrow decode scratch from an arena.
//   - resource: a controller for memory budgets and IO throughput limits,
//     pluggable into arena construction and binio file reads.
//
// # Quick Start
//
//	a, err := arena.New(64 * 1024)
//	if err != nil { ... }
//	defer a.Close()
//
//	s := a.Scope()
//	buf, ok := a.Alloc(1024, 64)
//	// ... decode into buf ...
//	_ = s.Close() // every allocation in the scope is discarded
//
//	p, err := pool.New[bytes.Buffer](8, pool.WithLimit[bytes.Buffer](32),
//		pool.WithReleaseHook[bytes.Buffer](
//			pool.ReleaseHookFunc[bytes.Buffer](func(b *bytes.Buffer) { b.Reset() }),
//		))
//	if err != nil { ... }
//	lease, err := p.Lease()
//	if err != nil { ... }
//	defer lease.Close()
//	lease.Value().WriteString("hello")
//
// The arena and the pool are independent and compose as needed: an arena can
// back pooled decode buffers, and pooled objects can hold arena views for the
// duration of a scope.
package memkit
