package mailbox

import (
	"testing"

	"github.com/webitel/actorhost/internal/domain/handle"
	"github.com/webitel/actorhost/internal/domain/message"
)

func TestFIFOOrdering(t *testing.T) {
	mb := New(handle.Handle(1))
	for i := 0; i < 5; i++ {
		mb.Push(message.Message{Session: i})
	}
	for i := 0; i < 5; i++ {
		m, ok := mb.Pop()
		if !ok || m.Session != i {
			t.Fatalf("Pop() = (%+v, %v), want session %d", m, ok, i)
		}
	}
	if _, ok := mb.Pop(); ok {
		t.Fatal("expected empty mailbox")
	}
}

func TestGrowsPastInitialCapacity(t *testing.T) {
	mb := New(handle.Handle(1))
	const n = initialCapacity*4 + 3
	for i := 0; i < n; i++ {
		mb.Push(message.Message{Session: i})
	}
	if got := mb.Len(); got != n {
		t.Fatalf("Len() = %d, want %d", got, n)
	}
	for i := 0; i < n; i++ {
		m, ok := mb.Pop()
		if !ok || m.Session != i {
			t.Fatalf("Pop() at %d = (%+v, %v)", i, m, ok)
		}
	}
}

func TestOverloadTracksAndResetsOnDrain(t *testing.T) {
	mb := New(handle.Handle(1))
	for i := 0; i < overloadBaseline+1; i++ {
		mb.Push(message.Message{})
	}
	if got := mb.Overload(); got != overloadBaseline+1 {
		t.Fatalf("Overload() = %d, want %d", got, overloadBaseline+1)
	}
	if got := mb.Overload(); got != 0 {
		t.Fatalf("Overload() should be one-shot, got %d", got)
	}

	for mb.Len() > 0 {
		mb.Pop()
	}
	mb.Push(message.Message{})
	if got := mb.Overload(); got != 0 {
		t.Fatalf("overload should reset to baseline after drain, got %d", got)
	}
}

func TestQueuedFlagIsAtomicHandoff(t *testing.T) {
	mb := New(handle.Handle(1))
	if !mb.TryQueue() {
		t.Fatal("first TryQueue should succeed")
	}
	if mb.TryQueue() {
		t.Fatal("second concurrent TryQueue should fail: at-most-one-in-queue")
	}
	mb.Push(message.Message{})
	if mb.TryUnqueue() {
		t.Fatal("TryUnqueue should fail while a message is still pending")
	}
	mb.Pop()
	if !mb.TryUnqueue() {
		t.Fatal("TryUnqueue should succeed once drained")
	}
}

func TestReleaseDrainsThroughCallback(t *testing.T) {
	mb := New(handle.Handle(1))
	mb.Push(message.Message{Session: 1})
	mb.Push(message.Message{Session: 2})

	var dropped []int
	mb.Release(func(m message.Message) { dropped = append(dropped, m.Session) })

	if len(dropped) != 2 || dropped[0] != 1 || dropped[1] != 2 {
		t.Fatalf("dropped = %v, want [1 2]", dropped)
	}

	// Release is idempotent: a second call must not re-invoke drop.
	mb.Release(func(m message.Message) { t.Fatal("drop called after mailbox already released") })
}
