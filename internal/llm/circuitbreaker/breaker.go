// Package circuitbreaker stops calling a provider after repeated failures and
// lets a trial request through once the reset timeout has elapsed.
package circuitbreaker

import (
	"log/slog"
	"sync"
	"time"
)

// CircuitState represents the current state of a circuit breaker.
type CircuitState int32

const (
	// StateClosed allows requests through.
	StateClosed CircuitState = iota
	// StateOpen blocks all requests until the reset timeout elapses.
	StateOpen
	// StateHalfOpen allows trial requests; the next outcome decides the state.
	StateHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Listener is notified of every state transition. Listeners run after the
// breaker's lock is released and may call back into the breaker.
type Listener func(provider string, from, to CircuitState)

// Config holds breaker thresholds.
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit.
	FailureThreshold int
	// ResetTimeout is how long the circuit stays open before a trial request.
	ResetTimeout time.Duration
}

// Defaults used when a Config field is zero.
const (
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 30 * time.Second
)

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	return c
}

type transition struct {
	from, to CircuitState
}

// Breaker is a single provider's circuit breaker. All methods are safe for
// concurrent use.
type Breaker struct {
	mu            sync.Mutex
	provider      string
	cfg           Config
	state         CircuitState
	failures      int
	lastFailureAt time.Time
	// trialInFlight is set while the single half-open request runs.
	trialInFlight bool

	now     func() time.Time
	notify  func(provider string, from, to CircuitState)
	metrics breakerMetrics
}

func newBreaker(provider string, cfg Config, now func() time.Time, notify func(string, CircuitState, CircuitState)) *Breaker {
	return &Breaker{
		provider: provider,
		cfg:      cfg.withDefaults(),
		state:    StateClosed,
		now:      now,
		notify:   notify,
	}
}

// Provider returns the provider this breaker guards.
func (b *Breaker) Provider() string { return b.provider }

// AllowRequest reports whether a call may proceed. An open circuit whose
// reset timeout has elapsed moves to half-open and admits one trial call;
// further calls are rejected until that trial is recorded or released.
func (b *Breaker) AllowRequest() bool {
	b.mu.Lock()
	var tr *transition
	allowed := true
	switch b.state {
	case StateOpen:
		if b.now().Sub(b.lastFailureAt) >= b.cfg.ResetTimeout {
			tr = b.setState(StateHalfOpen)
			b.trialInFlight = true
		} else {
			allowed = false
		}
	case StateHalfOpen:
		if b.trialInFlight {
			allowed = false
		} else {
			b.trialInFlight = true
		}
	case StateClosed:
	}
	if allowed {
		b.metrics.requestsAllowed.Add(1)
	} else {
		b.metrics.requestsRejected.Add(1)
	}
	b.mu.Unlock()

	b.emit(tr)
	return allowed
}

// RecordSuccess closes a half-open circuit and clears the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	var tr *transition
	b.failures = 0
	b.trialInFlight = false
	if b.state == StateHalfOpen {
		tr = b.setState(StateClosed)
	}
	b.mu.Unlock()

	b.emit(tr)
}

// RecordFailure counts a failure. A closed circuit opens once the threshold
// is reached; a half-open circuit reopens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	var tr *transition
	b.failures++
	b.trialInFlight = false
	switch b.state {
	case StateClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.lastFailureAt = b.now()
			tr = b.setState(StateOpen)
		}
	case StateHalfOpen:
		b.lastFailureAt = b.now()
		tr = b.setState(StateOpen)
	case StateOpen:
		b.lastFailureAt = b.now()
	}
	b.mu.Unlock()

	b.emit(tr)
}

// ReleaseTrial frees the half-open trial slot without recording an outcome,
// for a trial call abandoned by its caller.
func (b *Breaker) ReleaseTrial() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trialInFlight = false
}

// State returns the current state without evaluating the reset timeout.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// FailureCount returns the current consecutive failure count.
func (b *Breaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// ResetAt returns when an open circuit will admit a trial request.
func (b *Breaker) ResetAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return time.Time{}
	}
	return b.lastFailureAt.Add(b.cfg.ResetTimeout)
}

// setState must be called with b.mu held.
func (b *Breaker) setState(to CircuitState) *transition {
	from := b.state
	if from == to {
		return nil
	}
	b.state = to
	b.metrics.stateTransitions.Add(1)
	return &transition{from: from, to: to}
}

func (b *Breaker) emit(tr *transition) {
	if tr == nil {
		return
	}
	slog.Info("circuit breaker state transition",
		"provider", b.provider,
		"from", tr.from.String(),
		"to", tr.to.String())
	if b.notify != nil {
		b.notify(b.provider, tr.from, tr.to)
	}
}
