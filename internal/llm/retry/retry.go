package retry

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	llmerrors "github.com/ahrav/go-grader/internal/llm/errors"
)

// Retrier executes operations under a Policy. It is safe for concurrent use.
type Retrier struct {
	policy    Policy
	retryable func(error) bool
	sleep     func(context.Context, time.Duration) error
	jitter    func() float64
	logger    *slog.Logger
	stats     *retryStats
}

// Option customizes a Retrier.
type Option func(*Retrier)

// WithClassifier overrides which errors are retried.
func WithClassifier(fn func(error) bool) Option {
	return func(r *Retrier) { r.retryable = fn }
}

// WithSleep overrides the context-aware sleep used between attempts.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(r *Retrier) { r.sleep = fn }
}

// WithJitter overrides the jitter source; fn must return values in [0, 1).
func WithJitter(fn func() float64) Option {
	return func(r *Retrier) { r.jitter = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Retrier) { r.logger = l }
}

// New returns a Retrier for policy. By default only rate-limit and
// service-unavailable errors are retried.
func New(policy Policy, opts ...Option) *Retrier {
	r := &Retrier{
		policy:    policy,
		retryable: llmerrors.IsRetryable,
		sleep:     sleepContext,
		jitter:    rand.Float64, // #nosec G404 -- non-cryptographic jitter
		logger:    slog.Default().With("component", "retry"),
		stats:     &retryStats{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the retrier's policy.
func (r *Retrier) Policy() Policy { return r.policy }

// Do runs op up to MaxRetries+1 times. Non-retryable errors are returned
// immediately; after the final failed attempt the last error is returned
// unchanged so callers can still match its concrete type.
func Do[T any](ctx context.Context, r *Retrier, op func(context.Context) (T, error)) (T, error) {
	var zero T
	maxAttempts := r.policy.MaxAttempts()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		v, err := op(ctx)
		r.stats.totalAttempts.Add(1)
		if err == nil {
			if attempt > 1 {
				r.stats.successfulRetries.Add(1)
				r.logger.Info("operation succeeded after retry", "attempt", attempt)
			} else {
				r.stats.successfulFirstAttempts.Add(1)
			}
			return v, nil
		}

		if !r.retryable(err) {
			r.logger.Debug("non-retryable error", "error", err, "attempt", attempt)
			return zero, err
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		delay := r.backoff(attempt, llmerrors.RetryAfter(err))
		r.stats.recordBackoff(delay)
		r.logger.Warn("retrying after transient error",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"backoff", delay,
			"error", err)

		if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
			return zero, sleepErr
		}
	}

	r.stats.failedRetries.Add(1)
	r.logger.Error("retries exhausted", "attempts", maxAttempts, "error", lastErr)
	return zero, lastErr
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
