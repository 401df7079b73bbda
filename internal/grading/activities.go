// Package grading exposes assignment processing as a Temporal activity.
package grading

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/internal/pipeline"
	"github.com/ahrav/go-grader/internal/processor"
	"github.com/ahrav/go-grader/internal/storage"
	"github.com/ahrav/go-grader/pkg/activity"
)

// ActivityProcessAssignment is the registered name of ProcessAssignment.
const ActivityProcessAssignment = "ProcessAssignment"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Processor runs a whole assignment.
type Processor interface {
	Process(ctx context.Context, a *domain.Assignment) (*processor.AssignmentResult, error)
}

// AssignmentLoader reads assignments and their recorded usage.
type AssignmentLoader interface {
	LoadAssignment(ctx context.Context, id string) (*domain.Assignment, error)
	ListUsage(ctx context.Context, assignmentID string) ([]domain.UsageRecord, error)
}

// ProcessAssignmentInput names the stored assignment to grade.
type ProcessAssignmentInput struct {
	AssignmentID string `json:"assignment_id" validate:"required"`
}

// ProcessAssignmentOutput summarises a finished run. A failed run is
// reported here rather than as an activity error so the partial work stays
// visible to the workflow.
type ProcessAssignmentOutput struct {
	AssignmentID   string          `json:"assignment_id"`
	Success        bool            `json:"success"`
	State          processor.State `json:"state"`
	RubricID       string          `json:"rubric_id,omitempty"`
	FeedbackCount  int             `json:"feedback_count"`
	FailedStudents int             `json:"failed_students"`
	SummaryID      string          `json:"summary_id,omitempty"`
	Errors         []string        `json:"errors,omitempty"`
	TokensUsed     int64           `json:"tokens_used"`
	Cost           domain.MicroUSD `json:"cost_micro_usd"`
}

// Activities holds the dependencies of the grading activities.
type Activities struct {
	store     AssignmentLoader
	processor Processor
}

// NewActivities returns the grading activities.
func NewActivities(store AssignmentLoader, p Processor) *Activities {
	return &Activities{store: store, processor: p}
}

// ProcessAssignment loads the assignment and runs it to completion. The
// run is not idempotent: every call pays for fresh LLM calls, so the
// workflow schedules it without retries.
func (a *Activities) ProcessAssignment(ctx context.Context, in ProcessAssignmentInput) (*ProcessAssignmentOutput, error) {
	if err := validate.Struct(in); err != nil {
		return nil, nonRetryable(ErrorTypeValidation, errors.Join(ErrActivityValidation, err), "invalid process assignment input")
	}

	assignment, err := a.store.LoadAssignment(ctx, in.AssignmentID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nonRetryable(ErrorTypeNotFound, fmt.Errorf("%w: %w", ErrAssignmentNotFound, err), "assignment "+in.AssignmentID+" not found")
	}
	if err != nil {
		return nil, applicationError("load assignment", err)
	}

	activity.SafeLog(ctx, "Processing assignment",
		"assignment_id", assignment.ID,
		"student_count", len(assignment.StudentWorks))

	result, err := a.processor.Process(ctx, assignment)
	if errors.Is(err, domain.ErrInvalidAssignment) {
		return nil, nonRetryable(ErrorTypeValidation, err, "stored assignment is invalid")
	}
	if err != nil {
		return nil, applicationError("process assignment", err)
	}

	out := summarize(assignment.ID, result)
	if usage, err := a.store.ListUsage(ctx, assignment.ID); err != nil {
		activity.SafeLogError(ctx, "Listing usage failed", "assignment_id", assignment.ID, "error", err)
	} else {
		for _, rec := range usage {
			out.Cost = out.Cost.Add(rec.Cost)
		}
	}

	if !out.Success {
		activity.SafeLogError(ctx, "Assignment processing failed",
			"assignment_id", assignment.ID,
			"state", out.State,
			"errors", out.Errors)
	}
	activity.SafeLog(ctx, "Assignment processed",
		"assignment_id", assignment.ID,
		"success", out.Success,
		"tokens_used", out.TokensUsed,
		"cost", out.Cost.String())
	return out, nil
}

func summarize(id string, r *processor.AssignmentResult) *ProcessAssignmentOutput {
	out := &ProcessAssignmentOutput{
		AssignmentID:   id,
		Success:        r.Success,
		State:          r.State,
		FeedbackCount:  len(r.StudentFeedbacks),
		FailedStudents: r.FailedStudents(),
		Errors:         r.Errors,
	}
	if r.Rubric != nil {
		out.RubricID = r.Rubric.ID
	}
	if r.Summary != nil {
		out.SummaryID = r.Summary.ID
	}
	if n, ok := r.Metrics[processor.MetricTotalTokensUsed].(int64); ok {
		out.TokensUsed = n
	}
	return out
}

// HeartbeatBroadcaster records an activity heartbeat on every progress
// update before forwarding it. Outside an activity it only forwards.
type HeartbeatBroadcaster struct {
	Next pipeline.Broadcaster
}

// Broadcast implements pipeline.Broadcaster.
func (h HeartbeatBroadcaster) Broadcast(
	ctx context.Context,
	subject domain.Processable,
	status domain.ProcessStatus,
	data map[string]any,
) error {
	activity.RecordHeartbeat(ctx, data["progress"])
	if h.Next == nil {
		return nil
	}
	return h.Next.Broadcast(ctx, subject, status, data)
}
