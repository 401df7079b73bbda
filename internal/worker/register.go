package worker

import (
	"go.temporal.io/sdk/activity"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-grader/internal/grading"
	"github.com/ahrav/go-grader/internal/workflow"
)

// RegisterAll registers the grading workflow and its activity. Call it once
// during startup, before the worker starts.
func RegisterAll(w sdkworker.Registry, acts *grading.Activities) {
	w.RegisterWorkflow(workflow.GradeAssignmentWorkflow)
	w.RegisterActivityWithOptions(acts.ProcessAssignment, activity.RegisterOptions{
		Name: grading.ActivityProcessAssignment,
	})
}
