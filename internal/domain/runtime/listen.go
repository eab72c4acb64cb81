package runtime

import (
	"github.com/sony/gobreaker"

	"github.com/webitel/actorhost/internal/breaker"
	"github.com/webitel/actorhost/internal/domain/reactor"
)

// ListenGuarded opens a TCP listener through a circuit breaker, so a
// socket subsystem failing to bind (port exhaustion, a saturated fd
// table) backs off for a cooldown window instead of a caller retrying in
// a tight loop against the reactor goroutine.
func (rt *Runtime) ListenGuarded(cb *gobreaker.CircuitBreaker, owner uint32, address string) (reactor.ID, error) {
	id, err := cb.Execute(func() (any, error) {
		return rt.Reactor.Listen(owner, address)
	})
	if err != nil {
		return 0, err
	}
	return id.(reactor.ID), nil
}

// NewListenBreaker is a convenience constructor so callers don't need a
// direct import of internal/breaker just to call ListenGuarded.
func NewListenBreaker(name string) *gobreaker.CircuitBreaker {
	return breaker.New(name)
}
