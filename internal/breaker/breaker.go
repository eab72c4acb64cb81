// Package breaker builds the circuit breaker that runtime.ListenGuarded
// wraps reactor Listen calls in, so repeated listen failures (out of file
// descriptors, an address already in use) back off instead of being
// retried in a tight loop. The reactor's own accept loop does not go
// through it.
package breaker

import (
	"time"

	"github.com/sony/gobreaker"
)

// New creates a breaker for guarded Listen calls: it trips after 5
// consecutive failures and stays open for one second before
// allowing a probe request through.
func New(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}
