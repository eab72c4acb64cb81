// Package reactor is the runtime's socket subsystem: a single-goroutine
// event loop driven by an epoll poller, a map of socket slots keyed by
// socket id (ids come from a counter and are not reduced modulo a table
// size), and
// per-connection read/write buffering with the original's exact resize and
// priority-promotion policy. Control operations (open/listen/close/send/...)
// come in over a Go channel rather than the original's byte-oriented pipe —
// idiomatic for Go, and it still funnels every socket-slot mutation through
// the single reactor goroutine the way the pipe did.
package reactor

import "sync/atomic"

// State is a socket slot's lifecycle state.
type State int32

const (
	StateInvalid State = iota
	StateReserve
	StateOpening
	StateOpened
	StateListen
	StatePListen  // a listener accepted before its owning service claimed it
	StatePAccept  // an accepted connection not yet claimed by a service
	StateBind     // a raw fd bound in (stdin/stdout-style), not a socket() fd
	StateHalfClose
)

const (
	maxSocketBits = 16
	maxSockets    = 1 << maxSocketBits
	minReadBuf    = 64
	warnWriteBuf  = 1024 * 1024 // SOCKET_WARNING threshold
)

// Protocol distinguishes TCP from UDP sockets, matching PROTOCOL_TCP/UDP/UDPv6.
type Protocol int

const (
	ProtoTCP Protocol = iota
	ProtoUDP
	ProtoUDPv6
)

// ID is a socket handle. The reactor's slot map is keyed by the full ID;
// slotIndex (id % maxSockets, the original's HASH_ID) is not used for
// lookups.
type ID uint32

func slotIndex(id ID) int {
	return int(id) % maxSockets
}

// socket is one slot in the reactor's table.
type socket struct {
	id       ID
	fd       int
	state    atomic.Int32
	protocol Protocol
	owner    uint32 // the service handle this socket reports events to

	readSize int // size to allocate for the next read; see nextReadSize

	writeQ writeQueue

	wbSize  int  // bytes currently queued for write, for the warning threshold
	warned  bool
	closing bool
}

func (s *socket) getState() State { return State(s.state.Load()) }
func (s *socket) setState(v State) { s.state.Store(int32(v)) }
func (s *socket) casState(old, new State) bool {
	return s.state.CompareAndSwap(int32(old), int32(new))
}
