package circuitbreaker

import "sync/atomic"

// breakerMetrics tracks per-breaker counters exposed through Snapshot.
type breakerMetrics struct {
	stateTransitions atomic.Int64
	requestsAllowed  atomic.Int64
	requestsRejected atomic.Int64
}
