// Package poller wraps Linux epoll exactly the way the original's epoll.c
// does: level-triggered, one fd registered at a time, readiness reported
// as a flat slice of (user data, readable, writable) events per Wait call.
package poller

import (
	"golang.org/x/sys/unix"
)

// Event reports readiness for one registered fd.
type Event struct {
	UserData uint64
	Readable bool
	Writable bool
}

// Poller is a thin epoll wrapper. Not safe for concurrent use from more
// than one goroutine at a time — exactly one goroutine (the reactor loop)
// owns it, same as the original's single-threaded socket server.
type Poller struct {
	fd int
}

// New creates an epoll instance.
func New() (*Poller, error) {
	fd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &Poller{fd: fd}, nil
}

// Add registers fd for read interest (and write interest if write is
// true), tagging events for it with userData.
func (p *Poller) Add(fd int, userData uint64, write bool) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if write {
		ev.Events |= unix.EPOLLOUT
	}
	putUserData(&ev, userData)
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// Modify changes the write interest for an already-registered fd.
func (p *Poller) Modify(fd int, userData uint64, write bool) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if write {
		ev.Events |= unix.EPOLLOUT
	}
	putUserData(&ev, userData)
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// Remove deregisters fd.
func (p *Poller) Remove(fd int) error {
	return unix.EpollCtl(p.fd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait blocks until at least one fd is ready (or forever, like the
// original's epoll_wait(..., -1) call) and appends readiness events to
// out, returning the extended slice.
func (p *Poller) Wait(out []Event) ([]Event, error) {
	var raw [64]unix.EpollEvent
	n, err := unix.EpollWait(p.fd, raw[:], -1)
	if err != nil {
		if err == unix.EINTR {
			return out, nil
		}
		return out, err
	}
	for i := 0; i < n; i++ {
		out = append(out, Event{
			UserData: userData(&raw[i]),
			Readable: raw[i].Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0,
			Writable: raw[i].Events&unix.EPOLLOUT != 0,
		})
	}
	return out, nil
}

// Close releases the epoll fd.
func (p *Poller) Close() error {
	return unix.Close(p.fd)
}

func putUserData(ev *unix.EpollEvent, userData uint64) {
	ev.Fd = int32(userData)
}

func userData(ev *unix.EpollEvent) uint64 {
	return uint64(uint32(ev.Fd))
}
