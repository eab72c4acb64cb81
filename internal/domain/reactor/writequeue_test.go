package reactor

import "testing"

func TestLowDrainsOnlyAfterHighEmpty(t *testing.T) {
	var q writeQueue
	q.pushLow(writeBuf{data: []byte("low")})
	q.pushHigh(writeBuf{data: []byte("high")})

	buf, ok := q.front()
	if !ok || string(buf.data) != "high" {
		t.Fatalf("front() = %q, want high to drain first", buf.data)
	}
}

func TestPartialWritePromotesLowToHigh(t *testing.T) {
	var q writeQueue
	q.pushLow(writeBuf{data: []byte("abcdef")})
	q.pushLow(writeBuf{data: []byte("ghijkl")})

	q.advance(3) // partial write of the first low buffer

	if len(q.high) != 1 {
		t.Fatalf("expected the partially written buffer promoted to high, got %d high entries", len(q.high))
	}
	if string(q.high[0].remaining()) != "def" {
		t.Fatalf("promoted remainder = %q, want %q", q.high[0].remaining(), "def")
	}
	// the second low buffer must not have been touched or reordered ahead of the promotion.
	if len(q.low) != 1 || string(q.low[0].data) != "ghijkl" {
		t.Fatalf("low queue corrupted: %+v", q.low)
	}

	buf, ok := q.front()
	if !ok || string(buf.remaining()) != "def" {
		t.Fatal("promoted remainder must drain before the remaining low buffer")
	}
}

func TestFullWriteDequeues(t *testing.T) {
	var q writeQueue
	q.pushHigh(writeBuf{data: []byte("ok")})
	q.advance(2)
	if !q.empty() {
		t.Fatal("fully written buffer should be dequeued")
	}
}

func TestPendingBytes(t *testing.T) {
	var q writeQueue
	q.pushHigh(writeBuf{data: []byte("abc")})
	q.pushLow(writeBuf{data: []byte("de")})
	if got := q.pendingBytes(); got != 5 {
		t.Fatalf("pendingBytes() = %d, want 5", got)
	}
}
