// Package processor orchestrates a full assignment run: the rubric, then
// feedback for every student in turn, then the class summary.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/internal/pipeline"
)

// StepTracker persists the status of a processing step.
type StepTracker interface {
	UpdateStep(ctx context.Context, assignmentID string, step domain.Step, status domain.StepStatus) error
}

// StatusUpdater persists the processing status of a subject.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, subject domain.Processable, status domain.ProcessStatus) error
}

// Pipelines are the three runners a processor drives.
type Pipelines struct {
	Rubric   pipeline.Runner[domain.Rubric]
	Feedback pipeline.Runner[domain.StudentFeedback]
	Summary  pipeline.Runner[domain.AssignmentSummary]
}

// Deps configures an AssignmentProcessor. Only Pipelines is required.
type Deps struct {
	Pipelines   Pipelines
	Steps       StepTracker
	Status      StatusUpdater
	Broadcaster pipeline.Broadcaster
	Metrics     pipeline.MetricsRecorder
	Logger      *slog.Logger
	Now         func() time.Time
}

// AssignmentResult is the aggregate outcome of a run. It always carries
// every artifact produced before a failure.
type AssignmentResult struct {
	Success bool  `json:"success"`
	State   State `json:"state"`

	Rubric *domain.Rubric `json:"rubric,omitempty"`
	// StudentFeedbacks holds successful feedback only, in submission order.
	StudentFeedbacks []domain.StudentFeedback `json:"student_feedbacks"`
	Summary          *domain.AssignmentSummary `json:"summary,omitempty"`
	// StudentResults holds one result per submission, failures included.
	StudentResults []pipeline.Result[domain.StudentFeedback] `json:"-"`

	Errors  []string       `json:"errors,omitempty"`
	Metrics map[string]any `json:"metrics"`
}

// FailedStudents returns the number of submissions whose feedback failed.
func (r *AssignmentResult) FailedStudents() int {
	n := 0
	for _, res := range r.StudentResults {
		if !res.Success() {
			n++
		}
	}
	return n
}

// AssignmentProcessor runs assignments. It holds no per-run state and may
// process different assignments concurrently.
type AssignmentProcessor struct {
	pipelines   Pipelines
	steps       StepTracker
	status      StatusUpdater
	broadcaster pipeline.Broadcaster
	metrics     pipeline.MetricsRecorder
	logger      *slog.Logger
	now         func() time.Time
}

// New returns a processor.
func New(deps Deps) (*AssignmentProcessor, error) {
	if deps.Pipelines.Rubric == nil || deps.Pipelines.Feedback == nil || deps.Pipelines.Summary == nil {
		return nil, errors.New("processor: rubric, feedback and summary pipelines are required")
	}
	p := &AssignmentProcessor{
		pipelines:   deps.Pipelines,
		steps:       deps.Steps,
		status:      deps.Status,
		broadcaster: deps.Broadcaster,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		now:         deps.Now,
	}
	if p.steps == nil {
		p.steps = noopSteps{}
	}
	if p.status == nil {
		p.status = noopStatus{}
	}
	if p.broadcaster == nil {
		p.broadcaster = pipeline.NoOpBroadcaster{}
	}
	if p.metrics == nil {
		p.metrics = pipeline.NoOpMetricsRecorder{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	p.logger = p.logger.With("component", "assignment_processor")
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Process runs the whole assignment. The error is non-nil only when the
// assignment itself is invalid; processing failures are reported on the
// result.
func (p *AssignmentProcessor) Process(ctx context.Context, a *domain.Assignment) (*AssignmentResult, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil assignment", domain.ErrInvalidAssignment)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	r := &run{
		p:          p,
		assignment: a,
		sm:         stateMachine{current: StateNotStarted},
		startedAt:  p.now(),
		totalCalls: len(a.StudentWorks) + 2,
		metrics:    make(map[string]any),
		result:     &AssignmentResult{StudentFeedbacks: []domain.StudentFeedback{}},
		logger:     p.logger.With("assignment_id", a.ID),
	}
	return r.execute(ctx), nil
}

type noopSteps struct{}

func (noopSteps) UpdateStep(context.Context, string, domain.Step, domain.StepStatus) error { return nil }

type noopStatus struct{}

func (noopStatus) UpdateStatus(context.Context, domain.Processable, domain.ProcessStatus) error {
	return nil
}
