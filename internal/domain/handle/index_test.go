package handle

import (
	"sync"
	"testing"
)

func TestRegisterGrabRelease(t *testing.T) {
	idx := New()
	h := idx.Register("alice")
	if h == 0 {
		t.Fatal("expected a non-zero handle")
	}

	ud, ok := idx.Grab(h)
	if !ok || ud != "alice" {
		t.Fatalf("Grab(%v) = (%v, %v), want (alice, true)", h, ud, ok)
	}

	if _, reaped := idx.Release(h); reaped {
		t.Fatal("Release should not reap while the Grab reference is outstanding")
	}
	ud2, reaped := idx.Release(h)
	if !reaped || ud2 != "alice" {
		t.Fatalf("final Release = (%v, %v), want (alice, true)", ud2, reaped)
	}

	if _, ok := idx.Grab(h); ok {
		t.Fatal("Grab should fail once the handle has been fully released")
	}
}

func TestHandleUniquenessAcrossReuse(t *testing.T) {
	idx := New()
	h1 := idx.Register("first")
	idx.Release(h1)

	h2 := idx.Register("second")
	if h1 == h2 {
		t.Fatalf("reused slot produced identical handle %v; generation must disambiguate", h1)
	}
	if _, ok := idx.Grab(h1); ok {
		t.Fatal("stale handle from before reuse must not resolve")
	}
	ud, ok := idx.Grab(h2)
	if !ok || ud != "second" {
		t.Fatalf("Grab(h2) = (%v, %v), want (second, true)", ud, ok)
	}
}

func TestExpandPreservesAllLiveEntries(t *testing.T) {
	idx := New()
	const n = 200 // forces several doublings past the initial 16-slot table
	handles := make([]Handle, n)
	for i := 0; i < n; i++ {
		handles[i] = idx.Register(i)
	}
	for i, h := range handles {
		ud, ok := idx.Grab(h)
		if !ok {
			t.Fatalf("handle %d (index %d) dropped across expansion", h, i)
		}
		if ud.(int) != i {
			t.Fatalf("handle %d resolved to %v, want %d", h, ud, i)
		}
		idx.Release(h)
	}
	if got := idx.Count(); got != n {
		t.Fatalf("Count() = %d, want %d", got, n)
	}
}

func TestConcurrentGrabRelease(t *testing.T) {
	idx := New()
	h := idx.Register("shared")

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := idx.Grab(h); ok {
				idx.Release(h)
			}
		}()
	}
	wg.Wait()

	if _, ok := idx.Grab(h); !ok {
		t.Fatal("the original Register reference should still keep the slot alive")
	}
	idx.Release(h)
	idx.Release(h)
}

func TestRegisterNilReturnsZeroHandle(t *testing.T) {
	idx := New()
	if h := idx.Register(nil); h != 0 {
		t.Fatalf("Register(nil) = %v, want 0", h)
	}
}
