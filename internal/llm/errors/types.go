// Package errors defines the error taxonomy shared by the LLM client, the
// resilience middleware and the grading pipelines.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType categorizes LLM operation failures for retry classification.
// Only rate limits and provider unavailability are considered transient.
type ErrorType string

const (
	// ErrorTypeRateLimit indicates the provider or local limiter rejected the call (retryable).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeServiceUnavailable covers 5xx responses, overloads, network
	// failures and request timeouts (retryable).
	ErrorTypeServiceUnavailable ErrorType = "service_unavailable"

	// ErrorTypeAuth indicates rejected credentials (non-retryable).
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypeValidation indicates the provider rejected the request shape (non-retryable).
	ErrorTypeValidation ErrorType = "validation_failed"

	// ErrorTypeCircuitBreaker indicates the provider's breaker rejected the call.
	ErrorTypeCircuitBreaker ErrorType = "circuit_breaker"

	// ErrorTypeUnknownModel indicates a model missing from the cost registry.
	ErrorTypeUnknownModel ErrorType = "unknown_model"

	// ErrorTypeJSONParse indicates model output that is not the expected JSON.
	ErrorTypeJSONParse ErrorType = "json_parse"

	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = "unknown"
)

// Sentinel errors matched with errors.Is against the typed errors below.
var (
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrServiceUnavailable = errors.New("provider service unavailable")
	ErrAuthentication     = errors.New("authentication failed")
	ErrValidation         = errors.New("request validation failed")
	ErrCircuitBreakerOpen = errors.New("circuit breaker open")
	ErrUnknownModel       = errors.New("unknown model")
	ErrJSONParse          = errors.New("invalid JSON in model output")

	// ErrUnknownProvider indicates an unknown or unconfigured provider.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrInvalidResponse indicates the provider returned a body we could not use.
	ErrInvalidResponse = errors.New("invalid provider response")
)

// ProviderError captures structured error responses from LLM providers.
// Network failures and client-side timeouts are reported as ProviderError
// with ErrorTypeServiceUnavailable and a zero StatusCode.
type ProviderError struct {
	Provider   string    `json:"provider"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
	Code       string    `json:"code"` // Provider error code
	Type       ErrorType `json:"type"`
	RetryAfter int       `json:"retry_after"` // Retry-After header value in seconds
	Cause      error     `json:"-"`
}

// Error returns formatted provider error with status code context.
func (e *ProviderError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

// Unwrap exposes the transport error behind network failures.
func (e *ProviderError) Unwrap() error { return e.Cause }

// Is maps the classified type onto the package sentinels so callers can use
// errors.Is(err, ErrRateLimitExceeded) without knowing the concrete type.
func (e *ProviderError) Is(target error) bool {
	switch e.Type {
	case ErrorTypeRateLimit:
		return target == ErrRateLimitExceeded
	case ErrorTypeServiceUnavailable:
		return target == ErrServiceUnavailable
	case ErrorTypeAuth:
		return target == ErrAuthentication
	case ErrorTypeValidation:
		return target == ErrValidation
	default:
		return false
	}
}

// IsRetryable determines if the provider error warrants a retry attempt.
func (e *ProviderError) IsRetryable() bool {
	return e.Type == ErrorTypeRateLimit || e.Type == ErrorTypeServiceUnavailable
}

// GetRetryAfter returns the provider's backoff hint, if any.
func (e *ProviderError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

// RateLimitError reports a local limiter rejection.
type RateLimitError struct {
	Provider   string `json:"provider"`
	RetryAfter int    `json:"retry_after"` // Seconds to wait before retry
	LocalLimit bool   `json:"local_limit"`
}

// Error returns formatted rate limit error with retry guidance.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit exceeded for %s, retry after %d seconds", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded for %s", e.Provider)
}

// Is matches ErrRateLimitExceeded.
func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimitExceeded }

// GetRetryAfter returns the suggested wait.
func (e *RateLimitError) GetRetryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return time.Duration(e.RetryAfter) * time.Second
	}
	return 0
}

// CircuitBreakerError indicates the provider's circuit rejected a call
// without contacting the provider.
type CircuitBreakerError struct {
	Provider string `json:"provider"`
	State    string `json:"state"`
	ResetAt  int64  `json:"reset_at"` // Unix timestamp when the breaker may admit a trial
}

// Error returns formatted circuit breaker error with state context.
func (e *CircuitBreakerError) Error() string {
	return fmt.Sprintf("circuit breaker %s for %s", e.State, e.Provider)
}

// Is matches ErrCircuitBreakerOpen.
func (e *CircuitBreakerError) Is(target error) bool { return target == ErrCircuitBreakerOpen }

// ValidationError captures input validation failures with field context.
type ValidationError struct {
	Field   string `json:"field"`
	Value   any    `json:"value"`
	Message string `json:"message"`
}

// Error returns formatted validation error with field-specific context.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// UnknownModelError is returned when a response names a model that has no
// cost entry, or names no model at all.
type UnknownModelError struct {
	Model string `json:"model"`
}

// Error includes the offending model id.
func (e *UnknownModelError) Error() string {
	if e.Model == "" {
		return "Model cannot be nil"
	}
	return fmt.Sprintf("unknown model: %s", e.Model)
}

// Is matches ErrUnknownModel.
func (e *UnknownModelError) Is(target error) bool { return target == ErrUnknownModel }

// JSONParseError reports model output that could not be decoded into the
// expected payload.
type JSONParseError struct {
	Message string `json:"message"`
	// Snippet holds the beginning of the offending output for diagnostics.
	Snippet string `json:"snippet,omitempty"`
	Cause   error  `json:"-"`
}

// Error returns the parse failure description.
func (e *JSONParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to parse model output as JSON: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to parse model output as JSON: %s", e.Message)
}

// Unwrap returns the decoder error.
func (e *JSONParseError) Unwrap() error { return e.Cause }

// Is matches ErrJSONParse.
func (e *JSONParseError) Is(target error) bool { return target == ErrJSONParse }
