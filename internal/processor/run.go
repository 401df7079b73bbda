package processor

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/internal/pipeline"
)

// Aggregate metric keys recorded for the whole run.
const (
	MetricTotalDuration   = "total_duration_ms"
	MetricTotalTokensUsed = "total_tokens_used"
	MetricPipelineCount   = "pipeline_count"
	MetricStudentCount    = "student_count"
	MetricStartedAt       = "started_at"
	MetricCompletedAt     = "completed_at"
)

// Metric key prefixes for per-pipeline metrics.
const (
	prefixRubric  = "rubric_"
	prefixSummary = "summary_"
)

func studentPrefix(i int) string { return fmt.Sprintf("student_%d_", i) }

// run is the mutable state of a single Process call.
type run struct {
	p          *AssignmentProcessor
	assignment *domain.Assignment
	sm         stateMachine
	logger     *slog.Logger

	startedAt      time.Time
	completedCalls int
	totalCalls     int
	pipelineCount  int
	tokensUsed     int64

	metrics map[string]any
	result  *AssignmentResult
}

func (r *run) execute(ctx context.Context) *AssignmentResult {
	a := r.assignment
	r.logger.InfoContext(ctx, "assignment processing started", "student_count", len(a.StudentWorks))
	r.updateStatus(ctx, domain.StatusInProgress)

	// Rubric.
	r.markStep(ctx, domain.StepAssignmentSaved, domain.StatusCompleted)
	if err := r.sm.transition(StateRubricInProgress); err != nil {
		return r.fail(ctx, err.Error())
	}
	r.markStep(ctx, domain.StepCreatingRubric, domain.StatusInProgress)

	rubricRes := safeRun(ctx, r.p.pipelines.Rubric,
		pipeline.NewContext(a, domain.ProcessGenerateRubric, pipeline.Parent{Assignment: a}))
	r.absorb(prefixRubric, rubricRes.Metrics())
	if !rubricRes.Success() && r.p.pipelines.Rubric.Criticality() == pipeline.Critical {
		r.markStep(ctx, domain.StepCreatingRubric, domain.StatusFailed)
		return r.fail(ctx, rubricRes.Errors()...)
	}
	rubric := rubricRes.Data()
	r.result.Rubric = rubric
	r.markStep(ctx, domain.StepCreatingRubric, domain.StatusCompleted)

	// Per-student feedback, strictly sequential.
	if err := r.sm.transition(StateFeedbackInProgress); err != nil {
		return r.fail(ctx, err.Error())
	}
	r.markStep(ctx, domain.StepGeneratingFeedback, domain.StatusInProgress)

	for i := range a.StudentWorks {
		work := &a.StudentWorks[i]
		res := safeRun(ctx, r.p.pipelines.Feedback,
			pipeline.NewContext(work, domain.ProcessGenerateStudentFeedback, pipeline.Parent{Assignment: a, Rubric: rubric}))
		r.absorb(studentPrefix(i), res.Metrics())
		r.result.StudentResults = append(r.result.StudentResults, res)

		if res.Success() {
			r.result.StudentFeedbacks = append(r.result.StudentFeedbacks, *res.Data())
		} else {
			r.logger.WarnContext(ctx, "student feedback failed, continuing",
				"student_work_id", work.ID,
				"student_index", i,
				"errors", res.Errors())
			if r.p.pipelines.Feedback.Criticality() == pipeline.Critical {
				r.markStep(ctx, domain.StepGeneratingFeedback, domain.StatusFailed)
				return r.fail(ctx, res.Errors()...)
			}
		}
		r.broadcastProgress(ctx, domain.StepGeneratingFeedback, domain.StatusInProgress)
	}
	r.markStep(ctx, domain.StepGeneratingFeedback, domain.StatusCompleted)

	// Summary.
	if err := r.sm.transition(StateSummaryInProgress); err != nil {
		return r.fail(ctx, err.Error())
	}
	r.markStep(ctx, domain.StepSummarizingFeedback, domain.StatusInProgress)

	if len(a.StudentWorks) > 0 && len(r.result.StudentFeedbacks) == 0 {
		r.logger.WarnContext(ctx, "every student feedback failed, skipping summary")
		r.completedCalls++
	} else {
		subject := &domain.SummarySubject{Assignment: a, Feedbacks: r.result.StudentFeedbacks}
		sumRes := safeRun(ctx, r.p.pipelines.Summary,
			pipeline.NewContext(subject, domain.ProcessGenerateSummaryFeedback, pipeline.Parent{Assignment: a, Rubric: rubric}))
		r.absorb(prefixSummary, sumRes.Metrics())
		if !sumRes.Success() && r.p.pipelines.Summary.Criticality() == pipeline.Critical {
			r.markStep(ctx, domain.StepSummarizingFeedback, domain.StatusFailed)
			return r.fail(ctx, sumRes.Errors()...)
		}
		r.result.Summary = sumRes.Data()
	}
	r.markStep(ctx, domain.StepSummarizingFeedback, domain.StatusCompleted)

	if err := r.sm.transition(StateCompleted); err != nil {
		return r.fail(ctx, err.Error())
	}
	r.result.Success = true
	r.updateStatus(ctx, domain.StatusCompleted)
	return r.finish(ctx)
}

// safeRun shields the run from a runner that panics instead of returning a
// failed result.
func safeRun[T any](ctx context.Context, runner pipeline.Runner[T], pctx *pipeline.Context) (res pipeline.Result[T]) {
	defer func() {
		if rec := recover(); rec != nil {
			res = pipeline.Failed[T]([]string{fmt.Sprintf("panic: %v", rec)}, nil)
		}
	}()
	return runner.Run(ctx, pctx)
}

// absorb merges one pipeline's metrics under prefix and counts its call.
func (r *run) absorb(prefix string, m map[string]any) {
	for k, v := range m {
		r.metrics[prefix+k] = v
	}
	r.tokensUsed += asInt64(m[pipeline.MetricTokensUsed])
	r.pipelineCount++
	r.completedCalls++
}

func (r *run) fail(ctx context.Context, errs ...string) *AssignmentResult {
	if len(errs) == 0 {
		errs = []string{"assignment processing failed"}
	}
	r.result.Errors = append(r.result.Errors, errs...)
	if err := r.sm.transition(StateFailed); err != nil {
		r.logger.ErrorContext(ctx, "cannot mark run failed", "error", err)
	}
	r.logger.ErrorContext(ctx, "assignment processing failed", "state", r.sm.current, "errors", errs)
	r.updateStatus(ctx, domain.StatusFailed)
	return r.finish(ctx)
}

func (r *run) finish(ctx context.Context) *AssignmentResult {
	completedAt := r.p.now()
	r.metrics[MetricTotalDuration] = completedAt.Sub(r.startedAt).Milliseconds()
	r.metrics[MetricTotalTokensUsed] = r.tokensUsed
	r.metrics[MetricPipelineCount] = r.pipelineCount
	r.metrics[MetricStudentCount] = len(r.assignment.StudentWorks)
	r.metrics[MetricStartedAt] = r.startedAt.UTC().Format(time.RFC3339Nano)
	r.metrics[MetricCompletedAt] = completedAt.UTC().Format(time.RFC3339Nano)

	r.result.State = r.sm.current
	r.result.Metrics = maps.Clone(r.metrics)

	final := domain.StatusCompleted
	if !r.result.Success {
		final = domain.StatusFailed
	}
	r.broadcast(ctx, final, map[string]any{
		"state":           string(r.sm.current),
		"progress":        r.progress(),
		"completed_calls": r.completedCalls,
		"total_calls":     r.totalCalls,
		"errors":          r.result.Errors,
	})

	if err := r.p.metrics.Record(ctx, r.assignment, domain.ProcessAssignment, maps.Clone(r.metrics), r.result.Success); err != nil {
		r.logger.WarnContext(ctx, "recording assignment metrics failed", "error", err)
	}
	r.logger.InfoContext(ctx, "assignment processing finished",
		"state", r.sm.current,
		"success", r.result.Success,
		"feedback_count", len(r.result.StudentFeedbacks),
		"failed_students", r.result.FailedStudents(),
		"total_tokens_used", r.tokensUsed,
		"duration_ms", r.metrics[MetricTotalDuration])
	return r.result
}

func (r *run) markStep(ctx context.Context, step domain.Step, status domain.StepStatus) {
	if err := r.p.steps.UpdateStep(ctx, r.assignment.ID, step, status); err != nil {
		r.logger.WarnContext(ctx, "updating step failed", "step", step, "status", status, "error", err)
	}
	r.broadcastProgress(ctx, step, status)
}

func (r *run) updateStatus(ctx context.Context, status domain.ProcessStatus) {
	if err := r.p.status.UpdateStatus(ctx, r.assignment, status); err != nil {
		r.logger.WarnContext(ctx, "updating assignment status failed", "status", status, "error", err)
	}
}

// Progress is the fraction of LLM calls done, where a skipped summary
// counts as done.
func (r *run) progress() float64 {
	if r.totalCalls == 0 {
		return 0
	}
	return min(float64(r.completedCalls)/float64(r.totalCalls), 1)
}

func (r *run) broadcastProgress(ctx context.Context, step domain.Step, status domain.StepStatus) {
	data := map[string]any{
		"step":            string(step),
		"step_status":     string(status),
		"state":           string(r.sm.current),
		"progress":        r.progress(),
		"completed_calls": r.completedCalls,
		"total_calls":     r.totalCalls,
	}
	r.broadcast(ctx, domain.StatusInProgress, data)
}

func (r *run) broadcast(ctx context.Context, status domain.ProcessStatus, data map[string]any) {
	if err := r.p.broadcaster.Broadcast(ctx, r.assignment, status, data); err != nil {
		r.logger.WarnContext(ctx, "progress broadcast failed", "status", status, "error", err)
	}
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
