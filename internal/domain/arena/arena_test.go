package arena

import "testing"

func TestGetReturnsRequestedCapacity(t *testing.T) {
	a := New()
	for _, size := range []int{1, 8, 100, smallMax, smallMax + 1, bigMax, bigMax + 1} {
		buf := a.Get(size)
		if len(buf) != 0 {
			t.Fatalf("Get(%d) returned non-empty slice", size)
		}
		if cap(buf) < size {
			t.Fatalf("Get(%d) capacity = %d, want >= %d", size, cap(buf), size)
		}
	}
}

func TestPutGetReusesSmallBuffer(t *testing.T) {
	a := New()
	buf := a.Get(16)
	buf = append(buf, make([]byte, 16)...)
	a.Put(buf)

	reused := a.Get(16)
	if cap(reused) < 16 {
		t.Fatalf("expected a pooled buffer with capacity >= 16, got %d", cap(reused))
	}
}

func TestHugeBuffersAreNotPooled(t *testing.T) {
	a := New()
	buf := a.Get(bigMax + 1)
	a.Put(buf) // should be silently dropped, not panic
}
