// Package retry repeats LLM calls that fail with transient errors, using
// capped exponential backoff with multiplicative jitter.
package retry

import (
	"errors"
	"fmt"
	"time"

	"github.com/ahrav/go-grader/internal/configuration"
)

var (
	errMaxRetriesInvalid = errors.New("max retries must be >= 0")
	errBaseDelayInvalid  = errors.New("base delay must be greater than 0")
	errMaxDelayInvalid   = errors.New("max delay must be >= base delay")
)

// Policy is an immutable retry configuration. A policy with MaxRetries n
// makes at most n+1 attempts.
type Policy struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewPolicy validates and returns a policy.
func NewPolicy(maxRetries int, baseDelay, maxDelay time.Duration) (Policy, error) {
	if maxRetries < 0 {
		return Policy{}, fmt.Errorf("%w, got %d", errMaxRetriesInvalid, maxRetries)
	}
	if baseDelay <= 0 {
		return Policy{}, fmt.Errorf("%w, got %v", errBaseDelayInvalid, baseDelay)
	}
	if maxDelay < baseDelay {
		return Policy{}, fmt.Errorf("%w, max: %v, base: %v", errMaxDelayInvalid, maxDelay, baseDelay)
	}
	return Policy{maxRetries: maxRetries, baseDelay: baseDelay, maxDelay: maxDelay}, nil
}

// PolicyFromConfig builds a policy from the retry section of the configuration.
func PolicyFromConfig(cfg configuration.RetryConfig) (Policy, error) {
	return NewPolicy(cfg.MaxRetries, cfg.BaseDelay, cfg.MaxDelay)
}

// MaxRetries returns the number of retries after the first attempt.
func (p Policy) MaxRetries() int { return p.maxRetries }

// MaxAttempts returns the total number of attempts.
func (p Policy) MaxAttempts() int { return p.maxRetries + 1 }

// BaseDelay returns the delay before the first retry, before jitter.
func (p Policy) BaseDelay() time.Duration { return p.baseDelay }

// MaxDelay returns the delay cap, before jitter.
func (p Policy) MaxDelay() time.Duration { return p.maxDelay }
