// Package mailbox implements the per-service message queue and the
// per-worker run-queue that feeds it to the dispatch loop.
//
// Each service owns one Mailbox: an unbounded ring buffer (grows by
// doubling, never drops on push) with an overload counter that records the
// live length whenever it runs past a threshold that itself doubles away
// from a 1024 baseline and resets when a Pop finds the queue empty.
// This is the same growth/overload policy as the C original's
// message_queue, carried over because the failure mode it is tuned for —
// a slow consumer falling behind a fast producer — is the same in Go.
package mailbox

import (
	"sync"

	"github.com/webitel/actorhost/internal/domain/handle"
	"github.com/webitel/actorhost/internal/domain/message"
)

const (
	initialCapacity  = 16
	overloadBaseline = 1024
)

// Mailbox is a single service's inbound message queue.
type Mailbox struct {
	mu       sync.Mutex
	handle   handle.Handle
	buf      []message.Message
	head     int
	tail     int
	length   int
	overload int
	threshold int
	inGlobal bool
	released bool
}

// New creates a mailbox owned by the given service handle.
func New(h handle.Handle) *Mailbox {
	return &Mailbox{
		handle:    h,
		buf:       make([]message.Message, initialCapacity),
		threshold: overloadBaseline,
	}
}

// Handle returns the owning service's handle.
func (q *Mailbox) Handle() handle.Handle {
	return q.handle
}

// Push appends m to the tail, growing the backing array if full. It never
// rejects a message — backpressure is observed through Overload, not
// enforced by dropping.
func (q *Mailbox) Push(m message.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.length == len(q.buf) {
		q.grow()
	}
	q.buf[q.tail] = m
	q.tail = (q.tail + 1) % len(q.buf)
	q.length++

	if q.length > q.threshold {
		q.overload = q.length
		q.threshold *= 2
	}
}

func (q *Mailbox) grow() {
	grown := make([]message.Message, len(q.buf)*2)
	n := copy(grown, q.buf[q.head:])
	copy(grown[n:], q.buf[:q.head])
	q.head = 0
	q.tail = q.length
	q.buf = grown
}

// Pop removes and returns the head message. ok is false if the queue is
// empty, at which point the overload threshold resets to its baseline —
// matching the original's "a queue that has drained has nothing left to
// warn about" policy.
func (q *Mailbox) Pop() (m message.Message, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.length == 0 {
		q.threshold = overloadBaseline
		return message.Message{}, false
	}
	m = q.buf[q.head]
	q.buf[q.head] = message.Message{}
	q.head = (q.head + 1) % len(q.buf)
	q.length--
	return m, true
}

// Len reports the current live length.
func (q *Mailbox) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length
}

// Overload returns the queue length observed the last time it exceeded the
// overload threshold, and clears it — a one-shot read, matching the
// original's "overload" field being consumed by the monitor thread.
func (q *Mailbox) Overload() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	v := q.overload
	q.overload = 0
	return v
}

// MarkQueued and Queued track whether this mailbox is currently sitting in
// a worker's run-queue, so the host never enqueues the same mailbox twice
// concurrently (the "at-most-one-in-queue" invariant).
func (q *Mailbox) MarkQueued(v bool) {
	q.mu.Lock()
	q.inGlobal = v
	q.mu.Unlock()
}

func (q *Mailbox) Queued() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inGlobal
}

// TryQueue atomically sets the queued flag and reports whether this call
// is the one that set it (false means some other caller already holds the
// flag and is responsible for the mailbox reaching a worker).
func (q *Mailbox) TryQueue() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inGlobal {
		return false
	}
	q.inGlobal = true
	return true
}

// TryUnqueue clears the queued flag only if the mailbox is empty at that
// instant, under the same lock as Push, closing the race where a message
// arrives between a worker's last Pop and its decision to unqueue. It
// returns false when a message snuck in, in which case the caller must
// re-assign the mailbox instead of unqueuing it.
func (q *Mailbox) TryUnqueue() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.length > 0 {
		return false
	}
	q.inGlobal = false
	return true
}

// Release drains remaining messages through drop, reporting undelivered
// payloads to the caller so a dead-letter notice can be raised for each.
// Safe to call more than once; only the first call drains.
func (q *Mailbox) Release(drop func(message.Message)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.released {
		return
	}
	q.released = true
	for q.length > 0 {
		m := q.buf[q.head]
		q.head = (q.head + 1) % len(q.buf)
		q.length--
		if drop != nil {
			drop(m)
		}
	}
}
