package pipeline

import (
	"context"

	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/internal/llm/transport"
)

// Generator sends a prompt to a model.
type Generator interface {
	Generate(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// UsageTracker records the cost of one LLM response.
type UsageTracker interface {
	Record(
		ctx context.Context,
		resp *transport.Response,
		trackable domain.Processable,
		userID string,
		requestType domain.ProcessType,
	) (*domain.UsageRecord, error)
}

// Broadcaster publishes progress for a subject.
type Broadcaster interface {
	Broadcast(ctx context.Context, subject domain.Processable, status domain.ProcessStatus, data map[string]any) error
}

// MetricsRecorder persists or exports the metrics of a run.
type MetricsRecorder interface {
	Record(ctx context.Context, subject domain.Processable, pt domain.ProcessType, metrics map[string]any, success bool) error
}

// RubricStore persists generated rubrics.
type RubricStore interface {
	SaveRubric(ctx context.Context, rubric *domain.Rubric) error
}

// FeedbackStore persists per-student feedback.
type FeedbackStore interface {
	SaveStudentFeedback(ctx context.Context, feedback *domain.StudentFeedback) error
}

// SummaryStore persists assignment summaries.
type SummaryStore interface {
	SaveAssignmentSummary(ctx context.Context, summary *domain.AssignmentSummary) error
}

// NoOpBroadcaster discards broadcasts.
type NoOpBroadcaster struct{}

// Broadcast implements Broadcaster.
func (NoOpBroadcaster) Broadcast(context.Context, domain.Processable, domain.ProcessStatus, map[string]any) error {
	return nil
}

// NoOpMetricsRecorder discards metrics.
type NoOpMetricsRecorder struct{}

// Record implements MetricsRecorder.
func (NoOpMetricsRecorder) Record(context.Context, domain.Processable, domain.ProcessType, map[string]any, bool) error {
	return nil
}
