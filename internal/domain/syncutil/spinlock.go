// Package syncutil provides the low-level synchronization primitives the
// runtime builds on: a test-and-set spinlock and a writer-preferring
// reader/writer lock with no fairness guarantee. Both keep their state in
// one or two atomic words. The handle index and the env store use them;
// mailboxes, run-queues and the timing wheel use sync.Mutex.
package syncutil

import "sync/atomic"

// Spinlock is a single-word test-and-set lock. It never blocks the OS
// thread; a contended Lock busy-waits. Use it only for critical sections
// short enough that busy-waiting beats a syscall (a handful of pointer
// writes), which is the only way it is used in this runtime.
type Spinlock struct {
	state atomic.Bool
}

// Lock spins until the lock is acquired.
func (s *Spinlock) Lock() {
	for !s.state.CompareAndSwap(false, true) {
		// busy-wait; no backoff, matching the runtime's original
		// single-word test-and-set.
	}
}

// Unlock releases the lock. Unlocking a lock that isn't held is a bug in
// the caller and is not detected.
func (s *Spinlock) Unlock() {
	s.state.Store(false)
}

// TryLock attempts to acquire the lock without spinning.
func (s *Spinlock) TryLock() bool {
	return s.state.CompareAndSwap(false, true)
}
