package retry

import (
	"time"
)

// Jitter bounds: each delay is scaled by a factor drawn from [0.8, 1.2).
const (
	jitterLow   = 0.8
	jitterRange = 0.4
)

// nominalDelay returns min(base * 2^(retry-1), max) for retry >= 1.
func (p Policy) nominalDelay(retry int) time.Duration {
	d := p.baseDelay
	for i := 1; i < retry; i++ {
		d *= 2
		if d >= p.maxDelay || d <= 0 {
			return p.maxDelay
		}
	}
	if d > p.maxDelay {
		return p.maxDelay
	}
	return d
}

// backoff applies multiplicative jitter to the nominal delay and honours a
// provider Retry-After hint when it is longer but still within the cap.
func (r *Retrier) backoff(retry int, retryAfter time.Duration) time.Duration {
	nominal := r.policy.nominalDelay(retry)
	d := time.Duration(float64(nominal) * (jitterLow + jitterRange*r.jitter()))
	if retryAfter > d && retryAfter <= r.policy.maxDelay {
		return retryAfter
	}
	return d
}
