package retry

import (
	"sync/atomic"
	"time"
)

// retryStats provides thread-safe retry metrics using atomic operations.
type retryStats struct {
	totalAttempts           atomic.Int64
	successfulRetries       atomic.Int64
	failedRetries           atomic.Int64
	successfulFirstAttempts atomic.Int64
	maxBackoff              atomic.Int64 // nanoseconds
}

// Stats is a snapshot of a Retrier's activity.
type Stats struct {
	TotalAttempts           int64         `json:"total_attempts"`
	SuccessfulRetries       int64         `json:"successful_retries"`
	FailedRetries           int64         `json:"failed_retries"`
	SuccessfulFirstAttempts int64         `json:"successful_first_attempts"`
	MaxBackoff              time.Duration `json:"max_backoff"`
}

func (s *retryStats) recordBackoff(backoff time.Duration) {
	n := backoff.Nanoseconds()
	for {
		current := s.maxBackoff.Load()
		if n <= current || s.maxBackoff.CompareAndSwap(current, n) {
			return
		}
	}
}

// Stats returns a snapshot of the retrier's counters.
func (r *Retrier) Stats() Stats {
	return Stats{
		TotalAttempts:           r.stats.totalAttempts.Load(),
		SuccessfulRetries:       r.stats.successfulRetries.Load(),
		FailedRetries:           r.stats.failedRetries.Load(),
		SuccessfulFirstAttempts: r.stats.successfulFirstAttempts.Load(),
		MaxBackoff:              time.Duration(r.stats.maxBackoff.Load()),
	}
}
