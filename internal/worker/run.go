package worker

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/log"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-grader/internal/configuration"
	"github.com/ahrav/go-grader/internal/workflow"
)

// Dial connects to the Temporal frontend described by cfg.
func Dial(cfg configuration.TemporalConfig) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Logger:    log.NewStructuredLogger(slog.Default().With("component", "temporal")),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal at %s: %w", cfg.HostPort, err)
	}
	return c, nil
}

// Run serves the grading task queue until ctx is cancelled.
func Run(ctx context.Context, c client.Client, app *App) error {
	w := sdkworker.New(c, app.Config.Temporal.TaskQueue, sdkworker.Options{})
	RegisterAll(w, app.Activities)

	stop := make(chan any)
	go func() {
		<-ctx.Done()
		close(stop)
	}()

	slog.Info("Temporal worker started",
		"task_queue", app.Config.Temporal.TaskQueue,
		"namespace", app.Config.Temporal.Namespace)
	if err := w.Run(stop); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	return nil
}

// StartGrading starts GradeAssignmentWorkflow for a stored assignment. The
// workflow id is derived from the assignment so a second start while one is
// running is rejected by Temporal.
func StartGrading(ctx context.Context, c client.Client, cfg configuration.TemporalConfig, assignmentID string) (client.WorkflowRun, error) {
	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "grade-assignment-" + assignmentID,
		TaskQueue: cfg.TaskQueue,
	}, workflow.GradeAssignmentWorkflow, workflow.GradeAssignmentInput{
		AssignmentID:    assignmentID,
		ActivityTimeout: cfg.ActivityTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start grading workflow: %w", err)
	}
	return run, nil
}
