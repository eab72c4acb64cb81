package service

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/webitel/actorhost/internal/domain/handle"
	"github.com/webitel/actorhost/internal/domain/mailbox"
	"github.com/webitel/actorhost/internal/domain/message"
	"github.com/webitel/actorhost/internal/domain/reactor"
)

// monitorInterval is how often the monitor goroutine checks every
// worker's progress, matching the original's monitor thread (five
// one-second sleeps between checks, with an early exit if the service
// count drops to zero — simplified here to a plain ticker since Stop
// already tears the goroutine down promptly).
const monitorInterval = 5 * time.Second

// DeadLetter is reported through Host's OnDeadLetter hook whenever a
// message is sent to a handle that does not resolve to a live service.
type DeadLetter struct {
	Target  handle.Handle
	Message message.Message
}

// monitor is one worker's stuck-dispatch detector: trigger is called with
// the message's (source, handle) immediately before Dispatch and with
// (0, 0) immediately after, so a monitor goroutine comparing version
// across two checks notices a worker that has been sitting inside the
// same Dispatch call for longer than monitorInterval — the Go analogue of
// struct monitor and monitor_trigger.
type monitor struct {
	version atomic.Uint32
	source  atomic.Uint32
	handle  atomic.Uint32
}

func (m *monitor) trigger(source, h uint32) {
	m.source.Store(source)
	m.handle.Store(h)
	m.version.Add(1)
}

// Host is the service registry plus worker pool: it owns every service's
// mailbox, assigns ready mailboxes to workers round-robin, and runs each
// worker's dispatch loop on its own goroutine. A separate monitor
// goroutine watches every worker for a dispatch that never returns.
type Host struct {
	registry *handle.Index

	mu       sync.RWMutex
	services map[handle.Handle]*service

	workers     []*mailbox.RunQueue
	monitors    []*monitor
	next        atomic.Uint64
	monitorStop chan struct{}

	wg sync.WaitGroup

	Log *slog.Logger

	OnDeadLetter   func(DeadLetter)
	OnRegister     func(handle.Handle)
	OnRelease      func(handle.Handle)
	OnOverload     func(handle.Handle, int)
	OnMailboxDepth func(handle.Handle, int)
	OnTimerFired   func()

	// WrapDispatch, if set, runs around every call to a service's
	// Dispatch (e.g. to open a tracing span); it must call fn exactly
	// once. Dispatch runs directly if nil.
	WrapDispatch func(handle.Handle, func())

	// Schedule, if set, hands ticks and fire to the runtime's timing
	// wheel; Timeout is a no-op for ticks > 0 if this is nil. Set by
	// runtime.New so the domain/service package never imports the
	// timer package directly.
	Schedule func(ticks uint32, fire func())
}

// NewHost creates a host with the given number of dispatch workers.
func NewHost(workers int) *Host {
	if workers < 1 {
		workers = 1
	}
	h := &Host{
		registry:    handle.New(),
		services:    make(map[handle.Handle]*service),
		workers:     make([]*mailbox.RunQueue, workers),
		monitors:    make([]*monitor, workers),
		monitorStop: make(chan struct{}),
	}
	for i := range h.workers {
		h.workers[i] = mailbox.NewRunQueue()
		h.monitors[i] = &monitor{}
	}
	return h
}

func (h *Host) logger() *slog.Logger {
	if h.Log != nil {
		return h.Log
	}
	return slog.Default()
}

// Start launches one goroutine per worker plus the monitor goroutine.
// Call once.
func (h *Host) Start() {
	for i, rq := range h.workers {
		h.wg.Add(1)
		go h.runWorker(i, rq)
	}
	h.wg.Add(1)
	go h.runMonitor()
}

// Stop closes every worker's run-queue and the monitor goroutine, and
// waits for all of them to exit. In-flight dispatches finish; nothing new
// is assigned after Stop returns.
func (h *Host) Stop() {
	for _, rq := range h.workers {
		rq.Close()
	}
	close(h.monitorStop)
	h.wg.Wait()
}

// runMonitor watches every worker's monitor for a version that hasn't
// moved between two checks while it still names a live (source, handle)
// pair — the Go analogue of the monitor thread's monitor_check loop.
func (h *Host) runMonitor() {
	defer h.wg.Done()

	checks := make([]uint32, len(h.monitors))
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.monitorStop:
			return
		case <-ticker.C:
			for i, m := range h.monitors {
				v := m.version.Load()
				if v != checks[i] {
					checks[i] = v
					continue
				}
				if hdl := m.handle.Load(); hdl != 0 {
					h.logger().Warn("message dispatch may be stuck",
						"worker", i,
						"source", m.source.Load(),
						"handle", hdl,
						"version", v,
					)
				}
			}
		}
	}
}

// Register creates a new service from module with args, assigns it a
// handle, and returns it. A module without Create starts with nil user
// data. The service is live and reachable by Send as soon as Register
// returns.
func (h *Host) Register(module Module, args string) (handle.Handle, error) {
	rec := &service{module: module}
	ctx := &Context{host: h}
	rec.handle = h.registry.Register(rec)
	ctx.Handle = rec.handle
	rec.mailbox = mailbox.New(rec.handle)

	if module.Create != nil {
		ud, err := module.Create(ctx, args)
		if err != nil {
			h.registry.Release(rec.handle)
			return 0, fmt.Errorf("service: create: %w", err)
		}
		rec.ud = ud
	}

	h.mu.Lock()
	h.services[rec.handle] = rec
	h.mu.Unlock()

	if h.OnRegister != nil {
		h.OnRegister(rec.handle)
	}

	return rec.handle, nil
}

// Release drops one reference to h. When the refcount reaches zero the
// service's mailbox is drained (each undelivered message reported as a
// dead letter), its log file (if open) is closed, and its module's
// Release is invoked.
func (h *Host) Release(target handle.Handle) {
	ud, reaped := h.registry.Release(target)
	if !reaped {
		return
	}

	h.mu.Lock()
	rec := h.services[target]
	delete(h.services, target)
	h.mu.Unlock()

	if rec != nil {
		rec.mailbox.Release(func(m message.Message) {
			if h.OnDeadLetter != nil {
				h.OnDeadLetter(DeadLetter{Target: target, Message: m})
			}
		})
		if f := rec.logfile.Swap(nil); f != nil {
			fmt.Fprintf(f, "close time: %s\n", time.Now().Format(time.RFC3339))
			f.Close()
		}
	}
	if rec != nil && rec.module.Release != nil {
		rec.module.Release(ud)
	}
	if h.OnRelease != nil {
		h.OnRelease(target)
	}
}

// Send enqueues msg for delivery to target. If target does not resolve to
// a live service, msg is reported as a dead letter instead.
func (h *Host) Send(target handle.Handle, msg message.Message) {
	h.mu.RLock()
	rec, ok := h.services[target]
	h.mu.RUnlock()
	if !ok {
		if h.OnDeadLetter != nil {
			h.OnDeadLetter(DeadLetter{Target: target, Message: msg})
		}
		return
	}

	rec.mailbox.Push(msg)
	if rec.mailbox.TryQueue() {
		h.assign(rec)
	}
}

// Timeout is the Go analogue of service_timeout: ticks==0 sends the RESP
// immediately (no wheel involvement); otherwise it schedules one through
// Schedule and returns the session the eventual RESP will carry.
func (h *Host) Timeout(target handle.Handle, ticks uint32) int {
	h.mu.RLock()
	rec, ok := h.services[target]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	session := rec.nextSession()

	if ticks == 0 {
		h.Send(target, message.Message{Proto: message.Resp, Session: session})
		return session
	}
	if h.Schedule != nil {
		h.Schedule(ticks, func() {
			if h.OnTimerFired != nil {
				h.OnTimerFired()
			}
			h.Send(target, message.Message{Proto: message.Resp, Session: session})
		})
	}
	return session
}

// LogOn opens target's <handle>.log file (creating it if necessary) and
// writes its open-time header, the Go analogue of service_logon's atomic
// CAS swap from a nil file pointer to an open one. A second LogOn while
// the file is already open is a no-op.
func (h *Host) LogOn(target handle.Handle) error {
	h.mu.RLock()
	rec, ok := h.services[target]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("service: unknown handle %d", target)
	}
	if rec.logfile.Load() != nil {
		return nil
	}
	f, err := os.OpenFile(fmt.Sprintf("%d.log", target), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	fmt.Fprintf(f, "open time: %s\n", time.Now().Format(time.RFC3339))
	if !rec.logfile.CompareAndSwap(nil, f) {
		f.Close()
	}
	return nil
}

// LogOff closes target's log file, if open, writing its close-time
// footer first — the Go analogue of service_logoff's CAS swap back to
// nil.
func (h *Host) LogOff(target handle.Handle) {
	h.mu.RLock()
	rec, ok := h.services[target]
	h.mu.RUnlock()
	if !ok {
		return
	}
	f := rec.logfile.Load()
	if f == nil {
		return
	}
	if !rec.logfile.CompareAndSwap(f, nil) {
		return
	}
	fmt.Fprintf(f, "close time: %s\n", time.Now().Format(time.RFC3339))
	f.Close()
}

// assign hands rec's mailbox to the next worker in round-robin order.
func (h *Host) assign(rec *service) {
	i := h.next.Add(1) % uint64(len(h.workers))
	h.workers[i].Push(rec.mailbox)
}

func (h *Host) runWorker(i int, rq *mailbox.RunQueue) {
	defer h.wg.Done()
	mon := h.monitors[i]
	for {
		mb, ok := rq.Pop()
		if !ok {
			return
		}
		h.drain(mon, mb)
	}
}

// drain dispatches exactly one message from mb, then either re-queues it
// (more work remains, behind whatever else is already waiting on a
// worker's run-queue) or marks it no longer queued. One message per turn
// — not a batch — is what keeps one chatty service from starving its
// neighbors on the same worker: re-pushing to the back of the run-queue
// after a single Dispatch call gives every other ready mailbox a turn
// before this one is revisited.
func (h *Host) drain(mon *monitor, mb *mailbox.Mailbox) {
	h.mu.RLock()
	rec, ok := h.services[mb.Handle()]
	h.mu.RUnlock()
	if !ok {
		mb.MarkQueued(false)
		return
	}

	m, ok := mb.Pop()
	if !ok {
		mb.MarkQueued(false)
		return
	}

	if h.OnMailboxDepth != nil {
		h.OnMailboxDepth(rec.handle, mb.Len())
	}
	if n := mb.Overload(); n > 0 {
		h.logger().Warn("mailbox overload", "handle", rec.handle, "length", n)
		if h.OnOverload != nil {
			h.OnOverload(rec.handle, n)
		}
	}

	ctx := &Context{Handle: rec.handle, host: h}

	mon.trigger(m.Source, uint32(rec.handle))
	if f := rec.logfile.Load(); f != nil {
		f.WriteString(logLine(m))
		f.Sync()
	}

	dispatch := func() { rec.module.Dispatch(ctx, rec.ud, m) }
	if h.WrapDispatch != nil {
		h.WrapDispatch(rec.handle, dispatch)
	} else {
		dispatch()
	}
	mon.trigger(0, 0)

	if !mb.TryUnqueue() {
		h.assign(rec)
	}
}

// logLine renders m the way log_output does: a socket-proto message gets
// a "[socket] id" header, everything else a "[source] proto session"
// header, each followed by a hex dump of the payload and a blank line.
func logLine(m message.Message) string {
	now := time.Now().Format(time.RFC3339)
	if m.Proto == message.Socket {
		return fmt.Sprintf("[socket] %d %s\n%s\n", m.Session, now, reactor.HexDump(m.Data))
	}
	return fmt.Sprintf("[%d] %s %d %s\n%s\n", m.Source, m.Proto, m.Session, now, reactor.HexDump(m.Data))
}

// Lookup returns the live handles currently registered, for the admin
// inspector.
func (h *Host) Lookup(limit int) []handle.Handle {
	return h.registry.Enumerate(limit)
}
