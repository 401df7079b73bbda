package errors

import (
	"context"
	"errors"
	"net"
	"time"
)

// IsRetryable reports whether err belongs to the transient kinds the retry
// handler may repeat: rate limits and provider unavailability.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Checked first: an open circuit must never be retried in place.
	var cbErr *CircuitBreakerError
	if errors.As(err, &cbErr) {
		return false
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.IsRetryable()
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	// Caller cancellation is not a provider fault.
	if errors.Is(err, context.Canceled) {
		return false
	}

	return isNetworkError(err)
}

// Classify returns the ErrorType that best describes err.
func Classify(err error) ErrorType {
	if err == nil {
		return ""
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Type
	}

	switch {
	case errors.Is(err, ErrCircuitBreakerOpen):
		return ErrorTypeCircuitBreaker
	case errors.Is(err, ErrRateLimitExceeded):
		return ErrorTypeRateLimit
	case errors.Is(err, ErrUnknownModel):
		return ErrorTypeUnknownModel
	case errors.Is(err, ErrJSONParse):
		return ErrorTypeJSONParse
	case errors.Is(err, ErrValidation):
		return ErrorTypeValidation
	case errors.Is(err, ErrAuthentication):
		return ErrorTypeAuth
	case errors.Is(err, ErrServiceUnavailable), isNetworkError(err):
		return ErrorTypeServiceUnavailable
	default:
		return ErrorTypeUnknown
	}
}

// RetryAfter extracts a provider backoff hint from err, or zero.
func RetryAfter(err error) time.Duration {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.GetRetryAfter()
	}
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return rateLimitErr.GetRetryAfter()
	}
	return 0
}

// isNetworkError detects transport failures that never produced a response.
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
