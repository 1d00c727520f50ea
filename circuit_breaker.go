package clamd

import (
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/pior/clamd/protocol"
)

// CircuitBreaker wraps one command/response exchange. When the breaker is
// open, Execute fails fast with gobreaker.ErrOpenState without touching the
// daemon. This is failure isolation, not retry policy: no call is ever
// repeated.
//
// Satisfied by *gobreaker.CircuitBreaker[*protocol.Result].
type CircuitBreaker interface {
	Execute(fn func() (*protocol.Result, error)) (*protocol.Result, error)
	State() gobreaker.State
}

// NewCircuitBreakerConfig returns a Config.NewCircuitBreaker function for
// common use cases: the breaker trips when at least 3 requests in the
// interval have a failure ratio of 60% or more.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(Address) CircuitBreaker {
	return func(addr Address) CircuitBreaker {
		settings := gobreaker.Settings{
			Name:        addr.String(),
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return gobreaker.NewCircuitBreaker[*protocol.Result](settings)
	}
}
