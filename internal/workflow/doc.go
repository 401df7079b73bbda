// Package workflow implements the Temporal workflow that grades an
// assignment.
//
// A run calls several paid LLM endpoints and is not idempotent, so the
// workflow schedules it as one activity with a single attempt. Resilience
// against transient provider failures lives below the activity in the LLM
// client's retry and circuit breaker middleware.
//
// Workflows must stay deterministic: no wall clock, randomness or I/O.
// Anything of that kind belongs in internal/grading.
package workflow
