package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-grader/internal/grading"
)

// Timing defaults for the grading activity.
const (
	DefaultActivityTimeout = 30 * time.Minute
	// Heartbeats arrive with every progress broadcast; the longest gap is
	// one LLM call including its retries.
	DefaultHeartbeatTimeout = 10 * time.Minute
)

// GradeAssignmentInput starts a grading run for a stored assignment.
type GradeAssignmentInput struct {
	AssignmentID string `json:"assignment_id"`
	// ActivityTimeout bounds the whole run; zero uses the default.
	ActivityTimeout time.Duration `json:"activity_timeout,omitempty"`
}

// GradeAssignmentWorkflow grades one assignment by running the
// ProcessAssignment activity exactly once.
func GradeAssignmentWorkflow(ctx workflow.Context, in GradeAssignmentInput) (*grading.ProcessAssignmentOutput, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "grade_assignment.v", workflow.DefaultVersion, currentVersion)

	if in.AssignmentID == "" {
		return nil, temporal.NewNonRetryableApplicationError(
			"assignment id is required",
			grading.ErrorTypeValidation,
			nil,
		)
	}

	timeout := in.ActivityTimeout
	if timeout <= 0 {
		timeout = DefaultActivityTimeout
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		HeartbeatTimeout:    DefaultHeartbeatTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	logger := workflow.GetLogger(ctx)
	logger.Info("Grading assignment", "assignment_id", in.AssignmentID)

	var out grading.ProcessAssignmentOutput
	err := workflow.ExecuteActivity(ctx, grading.ActivityProcessAssignment,
		grading.ProcessAssignmentInput{AssignmentID: in.AssignmentID},
	).Get(ctx, &out)
	if err != nil {
		logger.Error("Grading activity failed", "assignment_id", in.AssignmentID, "error", err)
		return nil, err
	}

	logger.Info("Grading finished",
		"assignment_id", in.AssignmentID,
		"success", out.Success,
		"state", out.State,
		"failed_students", out.FailedStudents)
	return &out, nil
}
