package grading

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	llmerrors "github.com/ahrav/go-grader/internal/llm/errors"
)

// Activity error sentinels.
var (
	// ErrActivityValidation is returned when activity input is malformed.
	// It is never retried.
	ErrActivityValidation = errors.New("activity input validation failed")

	// ErrAssignmentNotFound is returned when the requested assignment is not
	// stored. It is never retried.
	ErrAssignmentNotFound = errors.New("assignment not found")
)

// Application error types reported to Temporal.
const (
	ErrorTypeValidation = "Validation"
	ErrorTypeNotFound   = "NotFound"
)

// nonRetryable wraps cause as a Temporal non-retryable application error.
func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

// applicationError converts an arbitrary failure into a Temporal application
// error whose type and retryability follow the LLM error taxonomy.
func applicationError(msg string, err error) error {
	we := llmerrors.ClassifyLLMError(err)
	var details []any
	if len(we.Details) > 0 {
		details = append(details, we.Details)
	}
	return temporal.NewApplicationErrorWithOptions(msg+": "+we.Message, string(we.Type), temporal.ApplicationErrorOptions{
		NonRetryable: !we.Retryable,
		Cause:        err,
		Details:      details,
	})
}
