package errors

import (
	"errors"
	"fmt"
)

// WorkflowError is the structured form of an LLM failure handed to Temporal.
// Type becomes the application error type; Retryable decides whether the
// activity failure may be retried by the workflow engine.
type WorkflowError struct {
	Type      ErrorType      `json:"type"`
	Message   string         `json:"message"`
	Code      string         `json:"code"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
	Cause     error          `json:"-"`
}

// Error formats the workflow error with its type.
func (e *WorkflowError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *WorkflowError) Unwrap() error { return e.Cause }

// ClassifyLLMError converts err into a WorkflowError. Nil in, nil out.
func ClassifyLLMError(err error) *WorkflowError {
	if err == nil {
		return nil
	}

	var wfErr *WorkflowError
	if errors.As(err, &wfErr) {
		return wfErr
	}

	we := &WorkflowError{
		Type:      Classify(err),
		Message:   err.Error(),
		Retryable: IsRetryable(err),
		Cause:     err,
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		we.Code = provErr.Code
		we.Details = map[string]any{
			"provider":    provErr.Provider,
			"status_code": provErr.StatusCode,
		}
	}

	var cbErr *CircuitBreakerError
	if errors.As(err, &cbErr) {
		we.Code = "CIRCUIT_BREAKER"
		we.Details = map[string]any{"provider": cbErr.Provider, "state": cbErr.State}
	}

	var modelErr *UnknownModelError
	if errors.As(err, &modelErr) {
		we.Code = "UNKNOWN_MODEL"
		we.Details = map[string]any{"model": modelErr.Model}
	}

	return we
}
