// Package service is the runtime's service host: the worker pool, the
// dispatch loop that drains each service's mailbox in order, and the
// module ABI a service implements — the Go analogue of the original's
// struct module {create, dispatch, release} triple.
package service

import (
	"os"
	"sync/atomic"

	"github.com/webitel/actorhost/internal/domain/handle"
	"github.com/webitel/actorhost/internal/domain/mailbox"
	"github.com/webitel/actorhost/internal/domain/message"
)

// Module is the behavior a registered service provides. Create builds the
// service's private state from boot args; Dispatch handles one message at
// a time, in the order the mailbox delivers them; Release tears the state
// down once the service's refcount reaches zero.
type Module struct {
	Create   func(ctx *Context, args string) (any, error)
	Dispatch func(ctx *Context, ud any, msg message.Message)
	Release  func(ud any)
}

// Context is handed to a service's Create and Dispatch calls. It is the
// service's view of the runtime: its own handle, a way to send to other
// services, and a way to schedule a timer callback onto itself.
type Context struct {
	Handle handle.Handle
	host   *Host
}

// Send delivers msg to the service addressed by target. If target does not
// resolve to a live service, the message is reported through the host's
// OnDeadLetter hook instead.
func (c *Context) Send(target handle.Handle, proto message.Protocol, session int, data []byte) {
	c.host.Send(target, message.Message{Source: c.Handle, Proto: proto, Session: session, Data: data})
}

// Timeout schedules a RESP message back to this service after ticks wheel
// ticks (delivered with the returned session number) and returns that
// session immediately, the Go analogue of service_timeout. ticks==0 sends
// the RESP on the very next dispatch instead of touching the timing wheel
// at all, matching the original's short-circuit for an immediate timeout.
func (c *Context) Timeout(ticks uint32) int {
	return c.host.Timeout(c.Handle, ticks)
}

// LogOn opens this service's <handle>.log file and starts mirroring every
// dispatched message into it. LogOff stops and closes it. Both are the Go
// analogue of service_logon/service_logoff.
func (c *Context) LogOn() error { return c.host.LogOn(c.Handle) }
func (c *Context) LogOff()      { c.host.LogOff(c.Handle) }

// service is the host's internal record for one registered actor.
type service struct {
	handle  handle.Handle
	module  Module
	ud      any
	mailbox *mailbox.Mailbox

	session atomic.Uint64   // service_session: a per-service monotonic counter
	logfile atomic.Pointer[os.File]
}

// nextSession returns the next session number for this service, the Go
// analogue of service_session's ++s->session.
func (s *service) nextSession() int {
	return int(s.session.Add(1))
}
