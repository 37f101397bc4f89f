package arena_test

import (
	"fmt"
	"log"

	"github.com/hupe1980/memkit/arena"
)

// Example demonstrates linear allocation with checkpoint rewind.
func Example() {
	a, err := arena.New(1024)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	// Allocate a header, then speculative scratch behind a checkpoint.
	header, _ := a.Alloc(16, 8)
	copy(header, "MAGIC")

	cp := a.Save()
	scratch, _ := a.Alloc(512, 8)
	_ = scratch // speculative work

	// The scratch turned out not to be needed.
	if err := a.Restore(cp); err != nil {
		log.Fatal(err)
	}

	fmt.Println(a.BytesUsed())
	// Output: 16
}

// Example_scope demonstrates scoped rewind with defer.
func Example_scope() {
	a, err := arena.New(1024)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	decode := func() {
		s := a.Scope()
		defer s.Close() // everything below is reclaimed on return

		buf, _ := a.Alloc(256, 8)
		_ = buf
	}
	decode()

	fmt.Println(a.BytesUsed())
	// Output: 0
}

// Example_typed demonstrates typed allocation from an arena.
func Example_typed() {
	a, err := arena.New(1024)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	type point struct{ X, Y int32 }

	p, ok := arena.AllocTyped[point](a)
	if !ok {
		log.Fatal("arena exhausted")
	}
	p.X, p.Y = 3, 4

	fmt.Println(p.X, p.Y)
	// Output: 3 4
}
