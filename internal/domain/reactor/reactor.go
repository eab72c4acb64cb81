package reactor

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/webitel/actorhost/internal/domain/arena"
	"github.com/webitel/actorhost/internal/domain/poller"
)

// EventKind tags what happened on a socket, the Go equivalent of the
// original's SOCKET_OPEN/ACCEPT/DATA/UDP/CLOSE/ERR/WARNING constants.
type EventKind int

const (
	EventOpen EventKind = iota
	EventAccept
	EventData
	EventUDP
	EventClose
	EventError
	EventWarning
)

// Event is delivered to a socket's owning service.
type Event struct {
	Kind    EventKind
	ID      ID
	Owner   uint32
	Data    []byte
	UDPAddr []byte // set on EventUDP: the encoded sender address
	Err     error
}

// control plane request kinds, carried over the reactor's command channel
// instead of the original's byte-oriented pipe.
type cmdKind int

const (
	cmdListen cmdKind = iota
	cmdConnect
	cmdClose
	cmdSend
	cmdSendUDP
	cmdStart
	cmdBind
	cmdOpt
	cmdUDP
	cmdExit
)

type command struct {
	kind    cmdKind
	id      ID
	owner   uint32
	network string
	address string
	data    []byte
	udpAddr []byte
	low     bool
	fd      int
	optSize int
	reply   chan error
}

// Reactor is the runtime's socket event loop. Exactly one goroutine (Run)
// owns the poller and the slot table; every mutation arrives as a command
// over cmdCh, matching the original's single-threaded socket server.
type Reactor struct {
	poller *poller.Poller
	arena  *arena.Arena

	mu     sync.RWMutex
	slots  map[ID]*socket
	nextID atomic.Uint32

	cmdCh   chan command
	eventCh chan Event
	exiting atomic.Bool

	wakeR, wakeW int // a pipe whose read end is registered with the poller, so Wait() is interruptible
}

// New creates a reactor. Call Run to start its loop.
func New() (*Reactor, error) {
	p, err := poller.New()
	if err != nil {
		return nil, err
	}
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK); err != nil {
		p.Close()
		return nil, err
	}
	r := &Reactor{
		poller:  p,
		arena:   arena.New(),
		slots:   make(map[ID]*socket),
		cmdCh:   make(chan command, 256),
		eventCh: make(chan Event, 256),
		wakeR:   fds[0],
		wakeW:   fds[1],
	}
	if err := p.Add(r.wakeR, uint64(r.wakeR), false); err != nil {
		p.Close()
		return nil, err
	}
	return r, nil
}

// Events returns the channel socket events are published on.
func (r *Reactor) Events() <-chan Event {
	return r.eventCh
}

func (r *Reactor) wake() {
	unix.Write(r.wakeW, []byte{1})
}

// Run drives the event loop until Close is called. Call from its own
// goroutine.
func (r *Reactor) Run() {
	var events []poller.Event
	for {
		events = events[:0]
		var err error
		events, err = r.poller.Wait(events)
		if err != nil {
			if r.exiting.Load() {
				return
			}
			continue
		}
		r.drainCommands()
		for _, ev := range events {
			if int(ev.UserData) == r.wakeR {
				drainFD(r.wakeR)
				continue
			}
			r.handleReady(ev)
		}
		if r.exiting.Load() {
			return
		}
	}
}

// Close stops Run and releases the poller and wakeup pipe.
func (r *Reactor) Close() {
	r.exiting.Store(true)
	r.wake()
	r.poller.Close()
	unix.Close(r.wakeR)
	unix.Close(r.wakeW)
}

func drainFD(fd int) {
	var buf [64]byte
	for {
		n, err := unix.Read(fd, buf[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

func (r *Reactor) drainCommands() {
	for {
		select {
		case cmd := <-r.cmdCh:
			r.apply(cmd)
		default:
			return
		}
	}
}

func (r *Reactor) submit(cmd command) error {
	cmd.reply = make(chan error, 1)
	r.cmdCh <- cmd
	r.wake()
	return <-cmd.reply
}

// allocID reserves the next socket id; the slot itself is created when
// the command using the id is applied.
func (r *Reactor) allocID() ID {
	return ID(r.nextID.Add(1))
}

func (r *Reactor) lookup(id ID) (*socket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.slots[id]
	return s, ok
}

// Recycle returns a buffer obtained from a socket Event's Data back to the
// reactor's shared read-buffer arena, once the caller has copied out
// whatever it needs from it — the Go analogue of the original handing
// socket read buffers out of a single global allocator rather than a
// per-service one (spec'd distinctly from the rest of the message path).
func (r *Reactor) Recycle(buf []byte) {
	r.arena.Put(buf)
}

func (r *Reactor) publish(ev Event) {
	select {
	case r.eventCh <- ev:
	default:
		// the event channel is a bounded buffer; a stalled consumer
		// must not stall the reactor goroutine. The event is dropped
		// and the drop is not recorded anywhere.
	}
}

// Listen opens a TCP listener on address and returns its socket ID. Every
// accepted connection is reported as EventAccept with a fresh ID owned by
// the same service.
func (r *Reactor) Listen(owner uint32, address string) (ID, error) {
	id := r.allocID()
	err := r.submit(command{kind: cmdListen, id: id, owner: owner, address: address})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Connect opens a TCP connection to address, reporting EventOpen on
// success or EventError on failure.
func (r *Reactor) Connect(owner uint32, network, address string) (ID, error) {
	id := r.allocID()
	err := r.submit(command{kind: cmdConnect, id: id, owner: owner, network: network, address: address})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Send queues data for id. low selects the low-priority queue (drained
// only once high is empty); new API traffic from services should normally
// use the high queue (low=false).
func (r *Reactor) Send(id ID, data []byte, low bool) error {
	return r.submit(command{kind: cmdSend, id: id, data: data, low: low})
}

// SendUDP queues a UDP datagram for id, addressed with an encoded address
// from encodeUDPAddress.
func (r *Reactor) SendUDP(id ID, data, udpAddr []byte) error {
	return r.submit(command{kind: cmdSendUDP, id: id, data: data, udpAddr: udpAddr})
}

// CloseSocket requests id be closed. Pending writes in both the high and
// the low queue are still drained first (graceful close), matching
// SOCKET_TYPE_HALFCLOSE.
func (r *Reactor) CloseSocket(id ID) error {
	return r.submit(command{kind: cmdClose, id: id})
}

// Start claims a connection accepted on a listener owned by owner and
// moves it from PACCEPT into OPENED, registering it with the poller for
// the first time. A freshly accepted connection sits in PACCEPT — not
// polled at all — until its owning service issues Start, matching
// socket_req_start's gate: the service gets to see EventAccept and decide
// whether to keep the connection before the reactor starts delivering
// EventData for it.
func (r *Reactor) Start(id ID) error {
	return r.submit(command{kind: cmdStart, id: id})
}

// Bind registers an already-open, non-socket fd (stdin/stdout-style) with
// the reactor, reporting events to owner under a fresh ID — the Go
// analogue of socket_bind, for actors that read from a pipe or a file
// descriptor handed down by the process rather than one the reactor
// opened itself.
func (r *Reactor) Bind(owner uint32, fd int) (ID, error) {
	id := r.allocID()
	err := r.submit(command{kind: cmdBind, id: id, owner: owner, fd: fd})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// SetOpt sets id's send-buffer size (SO_SNDBUF), the Go analogue of
// socket_req's OPT control request.
func (r *Reactor) SetOpt(id ID, sendBufferSize int) error {
	return r.submit(command{kind: cmdOpt, id: id, optSize: sendBufferSize})
}

// OpenUDP creates a UDP socket owned by owner, optionally bound to
// address (empty leaves it unbound — send-only), registers it with the
// poller for reads, and returns its ID. Datagrams arrive as EventUDP with
// the sender's address in Event.UDPAddr; SendUDP/doSend on this ID send
// to an address the caller supplies per call.
func (r *Reactor) OpenUDP(owner uint32, address string) (ID, error) {
	id := r.allocID()
	err := r.submit(command{kind: cmdUDP, id: id, owner: owner, address: address})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Reactor) apply(cmd command) {
	var err error
	switch cmd.kind {
	case cmdListen:
		err = r.doListen(cmd)
	case cmdConnect:
		err = r.doConnect(cmd)
	case cmdSend:
		err = r.doSend(cmd.id, cmd.data, cmd.low, nil)
	case cmdSendUDP:
		err = r.doSend(cmd.id, cmd.data, false, cmd.udpAddr)
	case cmdClose:
		err = r.doClose(cmd.id)
	case cmdStart:
		err = r.doStart(cmd.id)
	case cmdBind:
		err = r.doBind(cmd)
	case cmdOpt:
		err = r.doOpt(cmd)
	case cmdUDP:
		err = r.doUDPOpen(cmd)
	case cmdExit:
		r.exiting.Store(true)
	}
	if cmd.reply != nil {
		cmd.reply <- err
	}
}

func (r *Reactor) doListen(cmd command) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return err
	}
	unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	sa, err := resolveTCP4(cmd.address)
	if err != nil {
		unix.Close(fd)
		return err
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return err
	}
	if err := unix.Listen(fd, 256); err != nil {
		unix.Close(fd)
		return err
	}
	s := &socket{id: cmd.id, fd: fd, protocol: ProtoTCP, owner: cmd.owner}
	s.setState(StateListen)
	r.mu.Lock()
	r.slots[cmd.id] = s
	r.mu.Unlock()
	return r.poller.Add(fd, uint64(cmd.id), false)
}

func (r *Reactor) doConnect(cmd command) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return err
	}
	sa, err := resolveTCP4(cmd.address)
	if err != nil {
		unix.Close(fd)
		return err
	}
	s := &socket{id: cmd.id, fd: fd, protocol: ProtoTCP, owner: cmd.owner, readSize: minReadBuf}
	s.setState(StateOpening)
	r.mu.Lock()
	r.slots[cmd.id] = s
	r.mu.Unlock()

	err = unix.Connect(fd, sa)
	if err != nil && err != unix.EINPROGRESS {
		r.removeSlot(cmd.id)
		unix.Close(fd)
		return err
	}
	return r.poller.Add(fd, uint64(cmd.id), true)
}

func (r *Reactor) doSend(id ID, data []byte, low bool, udpAddr []byte) error {
	s, ok := r.lookup(id)
	if !ok {
		return fmt.Errorf("reactor: unknown socket %d", id)
	}
	buf := writeBuf{data: data, udpAddr: udpAddr}
	wasEmpty := s.writeQ.empty()
	if low {
		s.writeQ.pushLow(buf)
	} else {
		s.writeQ.pushHigh(buf)
	}
	s.wbSize += len(data)
	if s.wbSize > warnWriteBuf && !s.warned {
		s.warned = true
		r.publish(Event{Kind: EventWarning, ID: id, Owner: s.owner})
	}
	if wasEmpty {
		return r.poller.Modify(s.fd, uint64(id), true)
	}
	return nil
}

func (r *Reactor) doClose(id ID) error {
	s, ok := r.lookup(id)
	if !ok {
		return nil
	}
	if !s.writeQ.empty() {
		s.setState(StateHalfClose)
		return nil
	}
	r.closeNow(s)
	return nil
}

// doStart transitions id out of PACCEPT into OPENED and registers it with
// the poller for the first time. It is a no-op (not an error) on an id
// that has already been started, so a duplicate Start from a confused
// caller doesn't double-register the fd.
func (r *Reactor) doStart(id ID) error {
	s, ok := r.lookup(id)
	if !ok {
		return fmt.Errorf("reactor: unknown socket %d", id)
	}
	if !s.casState(StatePAccept, StateOpened) {
		if s.getState() == StateOpened {
			return nil
		}
		return fmt.Errorf("reactor: socket %d not in PACCEPT", id)
	}
	return r.poller.Add(s.fd, uint64(id), !s.writeQ.empty())
}

func (r *Reactor) doBind(cmd command) error {
	s := &socket{id: cmd.id, fd: cmd.fd, protocol: ProtoTCP, owner: cmd.owner, readSize: minReadBuf}
	s.setState(StateBind)
	r.mu.Lock()
	r.slots[cmd.id] = s
	r.mu.Unlock()
	if err := r.poller.Add(cmd.fd, uint64(cmd.id), false); err != nil {
		r.removeSlot(cmd.id)
		return err
	}
	s.setState(StateOpened)
	return nil
}

func (r *Reactor) doOpt(cmd command) error {
	s, ok := r.lookup(cmd.id)
	if !ok {
		return fmt.Errorf("reactor: unknown socket %d", cmd.id)
	}
	return unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_SNDBUF, cmd.optSize)
}

func (r *Reactor) doUDPOpen(cmd command) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return err
	}
	if cmd.address != "" {
		sa, err := resolveTCP4(cmd.address)
		if err != nil {
			unix.Close(fd)
			return err
		}
		if err := unix.Bind(fd, sa); err != nil {
			unix.Close(fd)
			return err
		}
	}
	s := &socket{id: cmd.id, fd: fd, protocol: ProtoUDP, owner: cmd.owner, readSize: minReadBuf}
	s.setState(StateOpened)
	r.mu.Lock()
	r.slots[cmd.id] = s
	r.mu.Unlock()
	if err := r.poller.Add(fd, uint64(cmd.id), false); err != nil {
		r.removeSlot(cmd.id)
		unix.Close(fd)
		return err
	}
	return nil
}

func (r *Reactor) closeNow(s *socket) {
	r.removeSlot(s.id)
	r.poller.Remove(s.fd)
	unix.Close(s.fd)
	r.publish(Event{Kind: EventClose, ID: s.id, Owner: s.owner})
}

func (r *Reactor) removeSlot(id ID) {
	r.mu.Lock()
	delete(r.slots, id)
	r.mu.Unlock()
}
