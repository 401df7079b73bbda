// Package ratelimit throttles outbound provider calls with one token bucket
// per provider so retries and sequential stages cannot exceed the configured QPS.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-grader/internal/configuration"
	llmerrors "github.com/ahrav/go-grader/internal/llm/errors"
	"github.com/ahrav/go-grader/internal/llm/transport"
)

var (
	errRequestsPerSecondInvalid = errors.New("requests_per_second must be greater than 0")
	errBurstInvalid             = errors.New("burst must be greater than 0")
)

// Limiter holds a lazily created token bucket per provider.
type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	logger   *slog.Logger

	waited   atomic.Int64
	rejected atomic.Int64
}

// New validates cfg and returns a Limiter.
func New(cfg configuration.RateLimitConfig) (*Limiter, error) {
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("%w, got %v", errRequestsPerSecondInvalid, cfg.RequestsPerSecond)
	}
	if cfg.Burst <= 0 {
		return nil, fmt.Errorf("%w, got %d", errBurstInvalid, cfg.Burst)
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(cfg.RequestsPerSecond),
		burst:    cfg.Burst,
		logger:   slog.Default().With("component", "ratelimit"),
	}, nil
}

func (l *Limiter) limiterFor(provider string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[provider]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[provider]; ok {
		return lim
	}
	lim = rate.NewLimiter(l.limit, l.burst)
	l.limiters[provider] = lim
	return lim
}

// Wait blocks until provider has a token. If the wait cannot complete
// before ctx's deadline a local RateLimitError is returned, which the retry
// layer treats as transient.
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	lim := l.limiterFor(provider)
	if lim.Allow() {
		return nil
	}

	l.waited.Add(1)
	start := time.Now()
	err := lim.Wait(ctx)
	if err == nil {
		l.logger.Debug("rate limited, waited for token", "provider", provider, "waited", time.Since(start))
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
		return ctxErr
	}

	l.rejected.Add(1)
	// Report the time until the next token without consuming it.
	r := lim.Reserve()
	delay := r.Delay()
	r.Cancel()
	retryAfter := int(math.Ceil(delay.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return &llmerrors.RateLimitError{Provider: provider, RetryAfter: retryAfter, LocalLimit: true}
}

// Stats is a snapshot of limiter activity.
type Stats struct {
	Providers int   `json:"providers"`
	Waited    int64 `json:"waited"`
	Rejected  int64 `json:"rejected"`
}

// Stats returns a snapshot of the limiter counters.
func (l *Limiter) Stats() Stats {
	l.mu.RLock()
	n := len(l.limiters)
	l.mu.RUnlock()
	return Stats{Providers: n, Waited: l.waited.Load(), Rejected: l.rejected.Load()}
}

// Middleware applies the limiter to every attempt that reaches it.
func Middleware(l *Limiter) transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if err := l.Wait(ctx, req.Provider); err != nil {
				return nil, err
			}
			return next.Handle(ctx, req)
		})
	}
}
