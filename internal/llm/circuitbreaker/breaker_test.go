package circuitbreaker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-grader/internal/llm/circuitbreaker"
	llmerrors "github.com/ahrav/go-grader/internal/llm/errors"
	"github.com/ahrav/go-grader/internal/llm/transport"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordedTransition struct {
	provider string
	from, to circuitbreaker.CircuitState
}

type transitionLog struct {
	mu  sync.Mutex
	got []recordedTransition
}

func (l *transitionLog) listen(provider string, from, to circuitbreaker.CircuitState) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, recordedTransition{provider, from, to})
}

func (l *transitionLog) all() []recordedTransition {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]recordedTransition(nil), l.got...)
}

func newRegistry(clock *fakeClock, log *transitionLog) *circuitbreaker.Registry {
	return circuitbreaker.NewRegistry(
		circuitbreaker.Config{FailureThreshold: 3, ResetTimeout: 30 * time.Second},
		circuitbreaker.WithClock(clock.Now),
		circuitbreaker.WithListener(log.listen),
	)
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	clock, log := newFakeClock(), &transitionLog{}
	b := newRegistry(clock, log).Get("anthropic")

	assert.Equal(t, circuitbreaker.StateClosed, b.State())
	assert.True(t, b.AllowRequest())

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, circuitbreaker.StateClosed, b.State())
	assert.Equal(t, 2, b.FailureCount())
	assert.True(t, b.AllowRequest())

	b.RecordFailure()
	assert.Equal(t, circuitbreaker.StateOpen, b.State())
	assert.False(t, b.AllowRequest())
	assert.Equal(t, clock.Now().Add(30*time.Second), b.ResetAt())

	assert.Equal(t, []recordedTransition{
		{"anthropic", circuitbreaker.StateClosed, circuitbreaker.StateOpen},
	}, log.all())
}

func TestBreakerHalfOpenAfterResetTimeout(t *testing.T) {
	clock, log := newFakeClock(), &transitionLog{}
	b := newRegistry(clock, log).Get("google")
	for range 3 {
		b.RecordFailure()
	}

	clock.Advance(29 * time.Second)
	assert.False(t, b.AllowRequest(), "still inside reset timeout")
	assert.Equal(t, circuitbreaker.StateOpen, b.State())

	clock.Advance(time.Second)
	assert.True(t, b.AllowRequest())
	assert.Equal(t, circuitbreaker.StateHalfOpen, b.State())
	assert.False(t, b.AllowRequest(), "half-open admits one trial at a time")

	t.Run("success closes", func(t *testing.T) {
		b.RecordSuccess()
		assert.Equal(t, circuitbreaker.StateClosed, b.State())
		assert.Zero(t, b.FailureCount())
	})

	assert.Equal(t, []recordedTransition{
		{"google", circuitbreaker.StateClosed, circuitbreaker.StateOpen},
		{"google", circuitbreaker.StateOpen, circuitbreaker.StateHalfOpen},
		{"google", circuitbreaker.StateHalfOpen, circuitbreaker.StateClosed},
	}, log.all())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	clock, log := newFakeClock(), &transitionLog{}
	b := newRegistry(clock, log).Get("anthropic")
	for range 3 {
		b.RecordFailure()
	}
	clock.Advance(31 * time.Second)
	require.True(t, b.AllowRequest())

	b.RecordFailure()
	assert.Equal(t, circuitbreaker.StateOpen, b.State())
	assert.False(t, b.AllowRequest())
	// last_failure_at was reset, so the full timeout applies again.
	assert.Equal(t, clock.Now().Add(30*time.Second), b.ResetAt())

	clock.Advance(30 * time.Second)
	assert.True(t, b.AllowRequest())
}

func TestBreakerHalfOpenSingleTrial(t *testing.T) {
	clock := newFakeClock()
	reg := circuitbreaker.NewRegistry(
		circuitbreaker.Config{FailureThreshold: 1, ResetTimeout: time.Minute},
		circuitbreaker.WithClock(clock.Now),
	)
	b := reg.Get("anthropic")
	b.RecordFailure()
	clock.Advance(time.Minute)

	require.True(t, b.AllowRequest())
	assert.Equal(t, circuitbreaker.StateHalfOpen, b.State())
	assert.False(t, b.AllowRequest())
	assert.False(t, b.AllowRequest())

	b.ReleaseTrial()
	assert.True(t, b.AllowRequest(), "released slot admits the next trial")
	assert.False(t, b.AllowRequest())

	b.RecordSuccess()
	assert.Equal(t, circuitbreaker.StateClosed, b.State())
	assert.True(t, b.AllowRequest())
	assert.True(t, b.AllowRequest())

	snap := reg.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, int64(3), snap[0].RequestsRejected)
}

func TestBreakerHalfOpenConcurrentTrial(t *testing.T) {
	clock := newFakeClock()
	reg := circuitbreaker.NewRegistry(
		circuitbreaker.Config{FailureThreshold: 1, ResetTimeout: time.Second},
		circuitbreaker.WithClock(clock.Now),
	)
	b := reg.Get("google")
	b.RecordFailure()
	clock.Advance(time.Second)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.AllowRequest() {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, allowed)
}

func TestBreakerSuccessResetsConsecutiveFailures(t *testing.T) {
	clock, log := newFakeClock(), &transitionLog{}
	b := newRegistry(clock, log).Get("anthropic")

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, circuitbreaker.StateClosed, b.State())
	assert.Empty(t, log.all())
}

func TestRegistryIsolatesProvidersAndResets(t *testing.T) {
	clock, log := newFakeClock(), &transitionLog{}
	reg := newRegistry(clock, log)

	assert.Same(t, reg.Get("anthropic"), reg.Get("anthropic"))

	for range 3 {
		reg.Get("anthropic").RecordFailure()
	}
	assert.Equal(t, circuitbreaker.StateOpen, reg.Get("anthropic").State())
	assert.Equal(t, circuitbreaker.StateClosed, reg.Get("google").State())

	snaps := reg.Snapshot()
	require.Len(t, snaps, 2)
	assert.Equal(t, "anthropic", snaps[0].Provider)
	assert.Equal(t, "open", snaps[0].State)
	assert.Equal(t, "google", snaps[1].Provider)

	reg.Reset()
	assert.Empty(t, reg.Snapshot())
	assert.Equal(t, circuitbreaker.StateClosed, reg.Get("anthropic").State())
}

func TestRegistryDefaults(t *testing.T) {
	reg := circuitbreaker.NewRegistry(circuitbreaker.Config{})
	b := reg.Get("anthropic")
	for range circuitbreaker.DefaultFailureThreshold - 1 {
		b.RecordFailure()
	}
	assert.Equal(t, circuitbreaker.StateClosed, b.State())
	b.RecordFailure()
	assert.Equal(t, circuitbreaker.StateOpen, b.State())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := circuitbreaker.NewRegistry(circuitbreaker.Config{FailureThreshold: 10, ResetTimeout: time.Millisecond})

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			provider := []string{"anthropic", "google"}[i%2]
			for j := range 200 {
				b := reg.Get(provider)
				if b.AllowRequest() {
					if j%3 == 0 {
						b.RecordSuccess()
					} else {
						b.RecordFailure()
					}
				}
				_ = b.State()
			}
		}(i)
	}
	wg.Wait()

	for _, s := range reg.Snapshot() {
		assert.Contains(t, []string{"closed", "open", "half_open"}, s.State)
	}
	assert.Len(t, reg.Snapshot(), 2)
}

func TestListenerMayQueryBreaker(t *testing.T) {
	clock := newFakeClock()
	var reg *circuitbreaker.Registry
	var seen circuitbreaker.CircuitState
	reg = circuitbreaker.NewRegistry(
		circuitbreaker.Config{FailureThreshold: 1, ResetTimeout: time.Second},
		circuitbreaker.WithClock(clock.Now),
		circuitbreaker.WithListener(func(provider string, _, _ circuitbreaker.CircuitState) {
			seen = reg.Get(provider).State()
		}),
	)
	reg.Get("google").RecordFailure()
	assert.Equal(t, circuitbreaker.StateOpen, seen)
}

func TestMiddleware(t *testing.T) {
	clock, log := newFakeClock(), &transitionLog{}
	reg := newRegistry(clock, log)

	var fail bool
	calls := 0
	core := transport.HandlerFunc(func(context.Context, *transport.Request) (*transport.Response, error) {
		calls++
		if fail {
			return nil, &llmerrors.ProviderError{Provider: "anthropic", Type: llmerrors.ErrorTypeServiceUnavailable}
		}
		return &transport.Response{Text: "ok"}, nil
	})
	h := transport.Chain(core, circuitbreaker.Middleware(reg))
	req := &transport.Request{Provider: "anthropic"}

	fail = true
	for range 3 {
		_, err := h.Handle(context.Background(), req)
		require.Error(t, err)
	}
	assert.Equal(t, 3, calls)

	_, err := h.Handle(context.Background(), req)
	var cbErr *llmerrors.CircuitBreakerError
	require.True(t, errors.As(err, &cbErr))
	assert.Equal(t, "anthropic", cbErr.Provider)
	assert.Equal(t, clock.Now().Add(30*time.Second).Unix(), cbErr.ResetAt)
	assert.Equal(t, 3, calls, "open circuit must not reach the provider")

	clock.Advance(30 * time.Second)
	fail = false
	resp, err := h.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, circuitbreaker.StateClosed, reg.Get("anthropic").State())
}

func TestMiddlewareIgnoresCallerCancellation(t *testing.T) {
	reg := circuitbreaker.NewRegistry(circuitbreaker.Config{FailureThreshold: 1, ResetTimeout: time.Minute})
	core := transport.HandlerFunc(func(ctx context.Context, _ *transport.Request) (*transport.Response, error) {
		return nil, context.Canceled
	})
	_, err := transport.Chain(core, circuitbreaker.Middleware(reg)).Handle(context.Background(), &transport.Request{Provider: "google"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, circuitbreaker.StateClosed, reg.Get("google").State())
}

func TestMiddlewareCancelledTrialReleasesSlot(t *testing.T) {
	clock := newFakeClock()
	reg := circuitbreaker.NewRegistry(
		circuitbreaker.Config{FailureThreshold: 1, ResetTimeout: time.Second},
		circuitbreaker.WithClock(clock.Now),
	)
	reg.Get("google").RecordFailure()
	clock.Advance(time.Second)

	cancelled := true
	core := transport.HandlerFunc(func(context.Context, *transport.Request) (*transport.Response, error) {
		if cancelled {
			return nil, context.Canceled
		}
		return &transport.Response{Text: "ok"}, nil
	})
	h := transport.Chain(core, circuitbreaker.Middleware(reg))
	req := &transport.Request{Provider: "google"}

	_, err := h.Handle(context.Background(), req)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, circuitbreaker.StateHalfOpen, reg.Get("google").State())

	cancelled = false
	resp, err := h.Handle(context.Background(), req)
	require.NoError(t, err, "abandoned trial must not wedge the breaker")
	assert.Equal(t, "ok", resp.Text)
	assert.Equal(t, circuitbreaker.StateClosed, reg.Get("google").State())
}

func TestMiddlewareRejectsWhileTrialInFlight(t *testing.T) {
	clock := newFakeClock()
	reg := circuitbreaker.NewRegistry(
		circuitbreaker.Config{FailureThreshold: 1, ResetTimeout: time.Second},
		circuitbreaker.WithClock(clock.Now),
	)
	b := reg.Get("anthropic")
	b.RecordFailure()
	clock.Advance(time.Second)
	require.True(t, b.AllowRequest())

	calls := 0
	core := transport.HandlerFunc(func(context.Context, *transport.Request) (*transport.Response, error) {
		calls++
		return &transport.Response{}, nil
	})
	_, err := transport.Chain(core, circuitbreaker.Middleware(reg)).Handle(context.Background(), &transport.Request{Provider: "anthropic"})

	var cbErr *llmerrors.CircuitBreakerError
	require.True(t, errors.As(err, &cbErr))
	assert.Equal(t, "half_open", cbErr.State)
	assert.Zero(t, calls)
}
