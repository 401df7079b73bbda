package pipeline

import (
	"maps"
	"slices"
)

// unknownFailure is used when a failure is constructed without a message.
const unknownFailure = "unknown error"

// Result is the immutable outcome of a pipeline run. A successful result has
// data and no errors; a failed result has at least one error and no data.
type Result[T any] struct {
	success bool
	data    *T
	errors  []string
	metrics map[string]any
}

// Succeeded returns a successful result.
func Succeeded[T any](data *T, metrics map[string]any) Result[T] {
	return Result[T]{success: true, data: data, metrics: cloneMetrics(metrics)}
}

// Failed returns a failed result.
func Failed[T any](errs []string, metrics map[string]any) Result[T] {
	if len(errs) == 0 {
		errs = []string{unknownFailure}
	}
	return Result[T]{errors: slices.Clone(errs), metrics: cloneMetrics(metrics)}
}

// Success reports whether the run succeeded.
func (r Result[T]) Success() bool { return r.success }

// Data returns the payload of a successful run, or nil.
func (r Result[T]) Data() *T { return r.data }

// Errors returns a copy of the error messages.
func (r Result[T]) Errors() []string { return slices.Clone(r.errors) }

// Metrics returns a copy of the run's metrics.
func (r Result[T]) Metrics() map[string]any { return cloneMetrics(r.metrics) }

func cloneMetrics(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return maps.Clone(m)
}
