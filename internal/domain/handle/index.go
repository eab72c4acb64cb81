// Package handle implements the service registry: a table of refcounted
// slots addressed by a 32-bit handle, the "arena with generational indices"
// pattern called for in the runtime's design notes.
//
// The original C implementation hashed a monotonically increasing 32-bit
// counter into a power-of-two table (slot = id mod capacity) and, on
// expansion, re-placed every physical slot — including empty ones — into
// the doubled table by re-hashing. Because every empty slot hashes to the
// same bucket (0 mod anything is 0), the last empty slot visited during
// expansion clobbers whatever live entry had just been written there,
// silently dropping it. This package sidesteps the whole bug class: a
// handle directly packs the physical slot index and a per-slot generation
// counter, so growing the table means allocating more slots, never
// rehashing live ones.
package handle

import (
	"sync/atomic"

	"github.com/webitel/actorhost/internal/domain/syncutil"
)

const (
	indexBits = 24
	indexMask = 1<<indexBits - 1
	genBits   = 32 - indexBits
	genMask   = 1<<genBits - 1

	initialCapacity = 16
	loadFactorNum   = 3
	loadFactorDen   = 4
)

// Handle is the opaque 32-bit identifier handed out by Register. Zero means
// "none" and is never issued.
type Handle uint32

func pack(index int, generation uint32) Handle {
	return Handle(uint32(index+1)&indexMask | (generation&genMask)<<indexBits)
}

func unpack(h Handle) (index int, generation uint32) {
	v := uint32(h)
	return int(v&indexMask) - 1, (v >> indexBits) & genMask
}

type slot struct {
	generation uint32
	refcount   atomic.Int32
	ud         any
	live       atomic.Bool
}

// Index is the service registry. Zero value is not usable; use New.
type Index struct {
	lock  syncutil.RWLock
	slots []slot
	free  []int
	count int
}

// New creates an empty registry.
func New() *Index {
	return &Index{slots: make([]slot, initialCapacity)}
}

// Register inserts ud and returns its handle. Returns 0 if ud is nil.
func (idx *Index) Register(ud any) Handle {
	if ud == nil {
		return 0
	}
	idx.lock.Lock()
	defer idx.lock.Unlock()

	if idx.count*loadFactorDen >= len(idx.slots)*loadFactorNum {
		idx.grow()
	}

	var i int
	if n := len(idx.free); n > 0 {
		i = idx.free[n-1]
		idx.free = idx.free[:n-1]
	} else {
		i = idx.count
	}

	s := &idx.slots[i]
	if s.generation == 0 {
		s.generation = 1
	}
	s.refcount.Store(1)
	s.ud = ud
	s.live.Store(true)
	idx.count++
	return pack(i, s.generation)
}

// grow doubles slot capacity. Existing slot indices never move, so no
// re-placement is needed — this is the fix for the re-hash bug above.
func (idx *Index) grow() {
	n := len(idx.slots)
	if n == 0 {
		n = initialCapacity
	}
	grown := make([]slot, n*2)
	copy(grown, idx.slots)
	idx.slots = grown
}

// Grab increments the slot's refcount and returns its user data, or (nil,
// false) if the handle is stale or unknown.
func (idx *Index) Grab(h Handle) (any, bool) {
	if h == 0 {
		return nil, false
	}
	i, gen := unpack(h)
	idx.lock.RLock()
	defer idx.lock.RUnlock()

	if i < 0 || i >= len(idx.slots) {
		return nil, false
	}
	s := &idx.slots[i]
	if !s.live.Load() || s.generation != gen {
		return nil, false
	}
	s.refcount.Add(1)
	return s.ud, true
}

// Release decrements the slot's refcount. It returns the user data and true
// only on the transition that brings the refcount to zero and reaps the
// slot — callers use that signal to run teardown exactly once.
func (idx *Index) Release(h Handle) (any, bool) {
	if h == 0 {
		return nil, false
	}
	i, gen := unpack(h)

	idx.lock.RLock()
	if i < 0 || i >= len(idx.slots) {
		idx.lock.RUnlock()
		return nil, false
	}
	s := &idx.slots[i]
	if !s.live.Load() || s.generation != gen {
		idx.lock.RUnlock()
		return nil, false
	}
	remaining := s.refcount.Add(-1)
	idx.lock.RUnlock()

	if remaining > 0 {
		return nil, false
	}

	idx.lock.Lock()
	defer idx.lock.Unlock()
	if !s.live.Load() || s.generation != gen || s.refcount.Load() > 0 {
		return nil, false
	}
	ud := s.ud
	s.ud = nil
	s.live.Store(false)
	s.generation++
	idx.free = append(idx.free, i)
	idx.count--
	return ud, true
}

// Enumerate returns up to limit live handles, in slot order. Use Count for
// the total number of live handles, which may exceed limit.
func (idx *Index) Enumerate(limit int) []Handle {
	idx.lock.RLock()
	defer idx.lock.RUnlock()

	out := make([]Handle, 0, limit)
	for i := range idx.slots {
		if len(out) >= limit {
			break
		}
		s := &idx.slots[i]
		if s.live.Load() {
			out = append(out, pack(i, s.generation))
		}
	}
	return out
}

// Count returns the number of live handles.
func (idx *Index) Count() int {
	idx.lock.RLock()
	defer idx.lock.RUnlock()
	return idx.count
}
