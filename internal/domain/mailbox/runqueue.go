package mailbox

import "sync"

// RunQueue is a worker's FIFO of mailboxes that have pending messages and
// are not already queued anywhere else — the Go analogue of the original's
// per-worker worker_queue of message_queue pointers. A global dispatcher
// assigns mailboxes to workers round-robin; each worker drains its own
// RunQueue without contending with the others.
type RunQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []*Mailbox
	closed bool
}

// NewRunQueue creates an empty run-queue.
func NewRunQueue() *RunQueue {
	rq := &RunQueue{}
	rq.cond = sync.NewCond(&rq.mu)
	return rq
}

// Push enqueues a mailbox that has become ready for dispatch. The caller
// must have already set Mailbox.MarkQueued(true) to uphold the
// at-most-one-in-queue invariant.
func (rq *RunQueue) Push(m *Mailbox) {
	rq.mu.Lock()
	rq.buf = append(rq.buf, m)
	rq.cond.Signal()
	rq.mu.Unlock()
}

// Pop blocks until a mailbox is available or the queue is closed, in which
// case ok is false.
func (rq *RunQueue) Pop() (m *Mailbox, ok bool) {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	for len(rq.buf) == 0 {
		if rq.closed {
			return nil, false
		}
		rq.cond.Wait()
	}
	m, rq.buf = rq.buf[0], rq.buf[1:]
	return m, true
}

// TryPop returns immediately with ok=false if nothing is queued.
func (rq *RunQueue) TryPop() (m *Mailbox, ok bool) {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	if len(rq.buf) == 0 {
		return nil, false
	}
	m, rq.buf = rq.buf[0], rq.buf[1:]
	return m, true
}

// Close wakes every blocked Pop with ok=false. Further Push calls still
// succeed but nothing will ever drain them.
func (rq *RunQueue) Close() {
	rq.mu.Lock()
	rq.closed = true
	rq.cond.Broadcast()
	rq.mu.Unlock()
}
