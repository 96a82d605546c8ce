package state

import (
	"sync"
	"testing"
)

func TestCellGetReturnsCopy(t *testing.T) {
	c := NewSlice([]int{1, 2, 3})

	got := c.Get()
	got[0] = 99

	if c.Get()[0] != 1 {
		t.Fatalf("mutating a read snapshot must not change the cell")
	}
}

func TestCellSetCopiesInput(t *testing.T) {
	c := NewSlice[int](nil)
	in := []int{4, 5}
	c.Set(in)
	in[0] = 0

	if got := c.Get(); got[0] != 4 {
		t.Fatalf("cell shares storage with caller input: %v", got)
	}
}

func TestCellNilSliceReadsEmpty(t *testing.T) {
	c := NewSlice[string](nil)
	if got := c.Get(); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestCellVersionAndObservers(t *testing.T) {
	c := New(0, nil)
	var seen []int
	unsubscribe := c.Subscribe(func(v int) { seen = append(seen, v) })

	c.Set(1)
	c.Update(func(v int) int { return v + 1 })
	unsubscribe()
	unsubscribe()
	c.Set(10)

	if c.Version() != 3 {
		t.Fatalf("unexpected version: %d", c.Version())
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("unexpected notifications: %v", seen)
	}
}

func TestCellObserverMaySetFromCallback(t *testing.T) {
	c := New(0, nil)
	mirror := New(0, nil)
	c.Subscribe(func(v int) { mirror.Set(v * 2) })
	c.Subscribe(func(int) { _ = c.Get() })

	c.Set(21)
	if mirror.Get() != 42 {
		t.Fatalf("observer did not run: %d", mirror.Get())
	}
}

func TestReadOnlyView(t *testing.T) {
	c := NewSlice([]string{"a"})
	ro := c.ReadOnly()

	c.Set([]string{"b", "c"})
	if got := ro.Get(); len(got) != 2 || got[0] != "b" {
		t.Fatalf("read-only view stale: %v", got)
	}
	if ro.Version() != c.Version() {
		t.Fatalf("version mismatch")
	}
	if _, ok := ro.(*Cell[[]string]); ok {
		t.Fatalf("read-only view must not expose the writable cell")
	}
}

func TestCellConcurrentAccess(t *testing.T) {
	c := NewSlice[int](nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			c.Update(func(v []int) []int { return append(v, n) })
		}(i)
		go func() {
			defer wg.Done()
			_ = c.Get()
		}()
	}
	wg.Wait()

	if len(c.Get()) != 50 || c.Version() != 50 {
		t.Fatalf("lost updates: len=%d version=%d", len(c.Get()), c.Version())
	}
}
