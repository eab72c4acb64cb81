// Package runtime aggregates the service host, timing wheel, socket
// reactor, and env stores into the single object the rest of the program
// wires up — the Design Notes' "single aggregator object" in place of the
// original's scattered file-scope globals (S, T, idx, env module statics).
package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/webitel/actorhost/internal/bus"
	"github.com/webitel/actorhost/internal/domain/env"
	"github.com/webitel/actorhost/internal/domain/handle"
	"github.com/webitel/actorhost/internal/domain/message"
	"github.com/webitel/actorhost/internal/domain/reactor"
	"github.com/webitel/actorhost/internal/domain/service"
	"github.com/webitel/actorhost/internal/domain/timer"
	"github.com/webitel/actorhost/internal/telemetry"
)

// Runtime owns every subsystem and wires socket and timer events back into
// the service host as messages.
type Runtime struct {
	Host    *service.Host
	Wheel   *timer.Wheel
	Clock   *timer.Driver
	Reactor *reactor.Reactor

	// Env holds boot-time configuration (the original's g.env); Names
	// holds the in-memory name-to-handle bindings service_name and
	// service_query work against (the original's g.names) — two stores,
	// kept apart the way the original keeps them apart, even though both
	// are the same Store type underneath.
	Env   *env.Store
	Names *env.Store

	// LogHandle is the handle of the bootstrap log service registered at
	// boot (the original's g.log).
	LogHandle handle.Handle

	log *slog.Logger

	telemetry *telemetry.Telemetry
	bus       *bus.Bus

	stop chan struct{}
}

// Config controls the aggregate's shape.
type Config struct {
	Workers int
	Logger  *slog.Logger

	// LogAddress is the path the bootstrap log service appends to;
	// empty means log to stderr only.
	LogAddress string
	// MainArgs is passed as the boot args to the bootstrap ("main")
	// service.
	MainArgs string
	// Bootstrap overrides the default bootstrap service. Zero value
	// (Create and Dispatch both nil) uses the runtime's built-in no-op
	// bootstrap.
	Bootstrap service.Module

	Telemetry *telemetry.Telemetry
	Bus       *bus.Bus
}

// New builds a Runtime and runs the original's service_start boot
// sequence up through launching the log service and the bootstrap
// ("main") service — everything except starting the worker/timer/socket
// goroutines, which Start does. The reactor's epoll instance is created
// here, so New can fail on platforms or sandboxes that refuse
// epoll_create1.
func New(cfg Config) (*Runtime, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	r, err := reactor.New()
	if err != nil {
		return nil, fmt.Errorf("runtime: reactor: %w", err)
	}
	wheel := timer.New()
	rt := &Runtime{
		Host:      service.NewHost(cfg.Workers),
		Wheel:     wheel,
		Clock:     timer.NewDriver(wheel, nil),
		Reactor:   r,
		Env:       env.New(),
		Names:     env.New(),
		log:       cfg.Logger,
		telemetry: cfg.Telemetry,
		bus:       cfg.Bus,
		stop:      make(chan struct{}),
	}

	rt.Host.Log = cfg.Logger
	rt.Host.OnDeadLetter = rt.onDeadLetter
	rt.Host.OnRegister = rt.onRegister
	rt.Host.OnRelease = rt.onRelease
	rt.Host.OnOverload = rt.onOverload
	rt.Host.OnMailboxDepth = rt.onMailboxDepth
	rt.Host.OnTimerFired = rt.onTimerFired
	rt.Host.WrapDispatch = rt.wrapDispatch
	rt.Host.Schedule = func(ticks uint32, fire func()) { rt.Wheel.After(ticks, fire) }

	logHandle, err := rt.bootLogService(cfg.LogAddress)
	if err != nil {
		return nil, err
	}
	rt.LogHandle = logHandle

	bootstrap := cfg.Bootstrap
	if bootstrap.Create == nil && bootstrap.Dispatch == nil {
		bootstrap = defaultBootstrap(cfg.Logger)
	}
	if _, err := rt.Host.Register(bootstrap, cfg.MainArgs); err != nil {
		return nil, fmt.Errorf("runtime: bootstrap service: %w", err)
	}

	return rt, nil
}

// bootLogService registers the bootstrap log service, the Go analogue of
// service_start's g.log = service_create(&log_mod, service_env_get("log")).
func (rt *Runtime) bootLogService(address string) (handle.Handle, error) {
	var w io.Writer = os.Stderr
	if address != "" {
		f, err := os.OpenFile(address, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return 0, fmt.Errorf("runtime: log service: %w", err)
		}
		w = f
	}
	return rt.Host.Register(newLogModule(w), "")
}

// RegisterName binds name to h in the names store, the Go analogue of
// service_name.
func (rt *Runtime) RegisterName(name string, h handle.Handle) {
	rt.Names.SetInt(name, int(h))
}

// LookupName resolves name to its registered handle, or zero if unbound —
// the Go analogue of service_query.
func (rt *Runtime) LookupName(name string) handle.Handle {
	n, ok := rt.Names.GetInt(name)
	if !ok {
		return 0
	}
	return handle.Handle(n)
}

// Start launches every subsystem's background goroutine.
func (rt *Runtime) Start() {
	rt.Host.Start()
	go rt.Clock.Run()
	go rt.Reactor.Run()
	go rt.pumpSocketEvents()
}

// Stop shuts every subsystem down in dependency order: socket events and
// timers stop firing before the host's workers are torn down, and any
// service still registered is released (service_abort's enumerate-and-
// release sweep, rather than leaving handles to the process exit).
func (rt *Runtime) Stop() {
	close(rt.stop)
	rt.Clock.Stop()
	rt.Reactor.Close()

	// Release every surviving handle concurrently: each Release drains a
	// mailbox and calls the module's own Release hook, so one wedged
	// service must not hold up the rest of the sweep.
	var g errgroup.Group
	for _, h := range rt.Host.Lookup(1 << 20) {
		h := h
		g.Go(func() error {
			rt.Host.Release(h)
			return nil
		})
	}
	g.Wait()

	rt.Host.Stop()
}

func (rt *Runtime) pumpSocketEvents() {
	for {
		select {
		case <-rt.stop:
			return
		case ev, ok := <-rt.Reactor.Events():
			if !ok {
				return
			}
			rt.deliverSocketEvent(ev)
		}
	}
}

// deliverSocketEvent encodes ev into a SOCKET message and hands it to the
// owning service. The event's Data, if any, came out of the reactor's
// shared arena (see reactor.Reactor.read); once it has been copied into
// the wire-encoded message payload it is returned to that arena instead
// of left for the GC, closing the loop the arena is built for.
func (rt *Runtime) deliverSocketEvent(ev reactor.Event) {
	data := encodeSocketEvent(ev)
	if ev.Data != nil {
		rt.Reactor.Recycle(ev.Data)
	}
	if ev.Owner == 0 {
		return
	}
	rt.Host.Send(handle.Handle(ev.Owner), message.Message{
		Proto:   message.Socket,
		Session: int(ev.ID),
		Data:    data,
	})
}

func (rt *Runtime) onDeadLetter(dl service.DeadLetter) {
	rt.log.Warn("dead letter", "target", dl.Target, "proto", dl.Message.Proto.String())
	if rt.telemetry != nil {
		rt.telemetry.DeadLetters.Add(context.Background(), 1)
	}
	if rt.bus != nil {
		rt.bus.PublishLifecycle(bus.TopicDeadLetter, bus.LifecycleEvent{Handle: dl.Target})
	}
}

func (rt *Runtime) onRegister(h handle.Handle) {
	if rt.bus != nil {
		rt.bus.PublishLifecycle(bus.TopicRegistered, bus.LifecycleEvent{Handle: h})
	}
}

func (rt *Runtime) onRelease(h handle.Handle) {
	if rt.bus != nil {
		rt.bus.PublishLifecycle(bus.TopicReleased, bus.LifecycleEvent{Handle: h})
	}
}

func (rt *Runtime) onOverload(h handle.Handle, length int) {
	if rt.telemetry != nil {
		rt.telemetry.OverloadTotal.Add(context.Background(), 1)
	}
}

func (rt *Runtime) onMailboxDepth(h handle.Handle, depth int) {
	if rt.telemetry != nil {
		rt.telemetry.MailboxDepth.Record(context.Background(), int64(depth))
	}
}

func (rt *Runtime) onTimerFired() {
	if rt.telemetry != nil {
		rt.telemetry.TimerFired.Add(context.Background(), 1)
	}
}

func (rt *Runtime) wrapDispatch(h handle.Handle, fn func()) {
	if rt.telemetry == nil {
		fn()
		return
	}
	_, span := rt.telemetry.StartDispatch(context.Background(), fmt.Sprintf("%d", h))
	defer span.End()
	fn()
}
