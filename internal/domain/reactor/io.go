package reactor

import (
	"net"
	"strconv"

	"golang.org/x/sys/unix"

	"github.com/webitel/actorhost/internal/domain/poller"
)

// handleReady reacts to one poller readiness event for a registered
// socket: Listen sockets accept, Opening sockets complete their connect,
// everything else reads and/or flushes its write queue.
func (r *Reactor) handleReady(ev poller.Event) {
	id := ID(ev.UserData)
	s, ok := r.lookup(id)
	if !ok {
		return
	}

	switch s.getState() {
	case StateListen:
		if ev.Readable {
			r.accept(s)
		}
		return
	case StateOpening:
		if ev.Writable {
			r.completeConnect(s)
		}
		return
	}

	if ev.Writable {
		r.flush(s)
	}
	if ev.Readable {
		if s.protocol != ProtoTCP {
			r.readUDP(s)
		} else {
			r.read(s)
		}
	}
}

// accept drains every pending connection on listener, parking each one in
// PACCEPT: the fd is owned by the reactor but not yet registered with the
// poller, so no EventData can arrive before the owning service calls
// Start. This mirrors socket_req_start's gate in the original, where a
// freshly accepted connection waits for an explicit START request before
// the reactor begins polling it.
func (r *Reactor) accept(listener *socket) {
	for {
		fd, _, err := unix.Accept4(listener.fd, unix.SOCK_NONBLOCK)
		if err != nil {
			return
		}
		id := r.allocID()
		s := &socket{id: id, fd: fd, protocol: ProtoTCP, owner: listener.owner, readSize: minReadBuf}
		s.setState(StatePAccept)
		r.mu.Lock()
		r.slots[id] = s
		r.mu.Unlock()
		r.publish(Event{Kind: EventAccept, ID: id, Owner: listener.owner})
	}
}

func (r *Reactor) completeConnect(s *socket) {
	errno, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil || errno != 0 {
		r.publish(Event{Kind: EventError, ID: s.id, Owner: s.owner, Err: unix.Errno(errno)})
		r.closeNow(s)
		return
	}
	s.setState(StateOpened)
	r.poller.Modify(s.fd, uint64(s.id), !s.writeQ.empty())
	r.publish(Event{Kind: EventOpen, ID: s.id, Owner: s.owner})
}

// read services a readable TCP socket. The read buffer comes from the
// reactor's shared arena, not a per-connection allocation — spec'd
// distinctly from per-service message buffers — and is handed back via
// Recycle once whatever consumed the event has copied out of it.
func (r *Reactor) read(s *socket) {
	buf := r.arena.Get(s.readSize)[:s.readSize]
	n, err := unix.Read(s.fd, buf)
	if n > 0 {
		s.readSize = nextReadSize(s.readSize, n)
		if s.getState() != StateHalfClose {
			r.publish(Event{Kind: EventData, ID: s.id, Owner: s.owner, Data: buf[:n]})
			return
		}
		r.arena.Put(buf)
		return
	}
	r.arena.Put(buf)
	if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
		return
	}
	// n == 0 (EOF) or a hard error: the peer is gone.
	if err != nil {
		r.publish(Event{Kind: EventError, ID: s.id, Owner: s.owner, Err: err})
	}
	r.closeNow(s)
}

// readUDP services a readable UDP socket: each datagram carries its
// sender's address, encoded the same way a SENDUDP request expects it so
// a service can echo straight back to ev.UDPAddr without resolving
// anything itself.
func (r *Reactor) readUDP(s *socket) {
	buf := r.arena.Get(s.readSize)[:s.readSize]
	n, from, err := unix.Recvfrom(s.fd, buf, 0)
	if err != nil {
		r.arena.Put(buf)
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
			return
		}
		r.publish(Event{Kind: EventError, ID: s.id, Owner: s.owner, Err: err})
		return
	}
	addr := sockaddrToUDPAddr(from)
	if addr == nil {
		r.arena.Put(buf)
		return
	}
	r.publish(Event{Kind: EventUDP, ID: s.id, Owner: s.owner, Data: buf[:n], UDPAddr: encodeUDPAddress(addr)})
}

func sockaddrToUDPAddr(sa unix.Sockaddr) *net.UDPAddr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.UDPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	case *unix.SockaddrInet6:
		return &net.UDPAddr{IP: net.IP(a.Addr[:]), Port: a.Port}
	default:
		return nil
	}
}

func (r *Reactor) flush(s *socket) {
	for {
		buf, ok := s.writeQ.front()
		if !ok {
			r.poller.Modify(s.fd, uint64(s.id), false)
			if s.getState() == StateHalfClose {
				r.closeNow(s)
			}
			return
		}
		n, err := r.writeOne(s, buf)
		if n > 0 {
			s.wbSize -= n
			s.writeQ.advance(n)
			if s.warned && s.wbSize <= warnWriteBuf {
				s.warned = false
			}
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		if err != nil {
			r.publish(Event{Kind: EventError, ID: s.id, Owner: s.owner, Err: err})
			r.closeNow(s)
			return
		}
		if n == 0 {
			return
		}
	}
}

func (r *Reactor) writeOne(s *socket, buf *writeBuf) (int, error) {
	data := buf.remaining()
	if len(data) == 0 {
		return 0, nil
	}
	if buf.udpAddr != nil {
		addr, ok := decodeUDPAddress(buf.udpAddr, s.protocol)
		if !ok {
			return len(data), nil // malformed address: drop the datagram, not the socket
		}
		sa := udpSockaddr(addr)
		return len(data), unix.Sendto(s.fd, data, 0, sa)
	}
	return unix.Write(s.fd, data)
}

func resolveTCP4(address string) (unix.Sockaddr, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, err
	}
	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := net.LookupIP(host)
		if err != nil || len(ips) == 0 {
			return nil, err
		}
		ip = ips[0]
	}
	v4 := ip.To4()
	if v4 == nil {
		sa6 := &unix.SockaddrInet6{Port: port}
		copy(sa6.Addr[:], ip.To16())
		return sa6, nil
	}
	sa4 := &unix.SockaddrInet4{Port: port}
	copy(sa4.Addr[:], v4)
	return sa4, nil
}

func udpSockaddr(addr *net.UDPAddr) unix.Sockaddr {
	if v4 := addr.IP.To4(); v4 != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		copy(sa.Addr[:], v4)
		return sa
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	return sa
}
