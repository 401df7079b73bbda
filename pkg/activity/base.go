// Package activity provides helpers for code that may or may not be running
// inside a Temporal activity. Every helper degrades to a no-op outside one,
// so the same code paths serve the CLI, the worker and tests.
package activity

import (
	"context"

	"go.temporal.io/sdk/activity"
)

// WorkflowContext identifies the workflow execution behind an activity.
type WorkflowContext struct {
	WorkflowID string
	RunID      string
	ActivityID string
	Attempt    int32
}

// WorkflowInfo returns the execution details of the current activity. ok is
// false when ctx is not an activity context.
func WorkflowInfo(ctx context.Context) (wf WorkflowContext, ok bool) {
	defer func() {
		if recover() != nil {
			wf, ok = WorkflowContext{}, false
		}
	}()

	info := activity.GetInfo(ctx)
	return WorkflowContext{
		WorkflowID: info.WorkflowExecution.ID,
		RunID:      info.WorkflowExecution.RunID,
		ActivityID: info.ActivityID,
		Attempt:    info.Attempt,
	}, true
}

// IsActivity reports whether ctx belongs to a running activity.
func IsActivity(ctx context.Context) bool {
	_, ok := WorkflowInfo(ctx)
	return ok
}

// SafeLog logs at info level through the activity logger. Outside an
// activity the call is ignored.
func SafeLog(ctx context.Context, msg string, keyvals ...any) {
	defer func() { _ = recover() }()
	activity.GetLogger(ctx).Info(msg, keyvals...)
}

// SafeLogError is SafeLog at error level.
func SafeLogError(ctx context.Context, msg string, keyvals ...any) {
	defer func() { _ = recover() }()
	activity.GetLogger(ctx).Error(msg, keyvals...)
}

// RecordHeartbeat records an activity heartbeat with details. Outside an
// activity the call is ignored.
func RecordHeartbeat(ctx context.Context, details ...any) {
	defer func() { _ = recover() }()
	activity.RecordHeartbeat(ctx, details...)
}
