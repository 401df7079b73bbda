package circuitbreaker

import (
	"sort"
	"sync"
	"time"
)

// Registry owns one Breaker per provider. Breakers are created on first use
// and live as long as the registry. Create one registry at the composition
// root and share it between every client that talks to the same providers.
type Registry struct {
	mu        sync.RWMutex
	breakers  map[string]*Breaker
	cfg       Config
	now       func() time.Time
	listeners []Listener
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// WithListener registers a transition listener at construction.
func WithListener(l Listener) RegistryOption {
	return func(r *Registry) { r.listeners = append(r.listeners, l) }
}

// NewRegistry returns an empty registry whose breakers use cfg.
func NewRegistry(cfg Config, opts ...RegistryOption) *Registry {
	r := &Registry{
		breakers: make(map[string]*Breaker),
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the provider's breaker, creating it closed on first use.
func (r *Registry) Get(provider string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[provider]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[provider]; ok {
		return b
	}
	b = newBreaker(provider, r.cfg, r.now, r.notify)
	r.breakers[provider] = b
	return b
}

// Subscribe adds a transition listener for all current and future breakers.
func (r *Registry) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Reset discards every breaker so the next Get starts closed. Listeners are kept.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers = make(map[string]*Breaker)
}

// Snapshot describes one breaker for diagnostics.
type Snapshot struct {
	Provider         string    `json:"provider"`
	State            string    `json:"state"`
	FailureCount     int       `json:"failure_count"`
	ResetAt          time.Time `json:"reset_at,omitzero"`
	RequestsAllowed  int64     `json:"requests_allowed"`
	RequestsRejected int64     `json:"requests_rejected"`
	StateTransitions int64     `json:"state_transitions"`
}

// Snapshot returns the state of every known breaker ordered by provider.
func (r *Registry) Snapshot() []Snapshot {
	r.mu.RLock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.RUnlock()

	out := make([]Snapshot, 0, len(breakers))
	for _, b := range breakers {
		out = append(out, Snapshot{
			Provider:         b.Provider(),
			State:            b.State().String(),
			FailureCount:     b.FailureCount(),
			ResetAt:          b.ResetAt(),
			RequestsAllowed:  b.metrics.requestsAllowed.Load(),
			RequestsRejected: b.metrics.requestsRejected.Load(),
			StateTransitions: b.metrics.stateTransitions.Load(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

func (r *Registry) notify(provider string, from, to CircuitState) {
	r.mu.RLock()
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, l := range listeners {
		l(provider, from, to)
	}
}
