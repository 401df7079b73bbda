package pipeline

import (
	"log/slog"

	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/internal/prompt"
)

// Pipeline names.
const (
	NameRubric          = "rubric"
	NameStudentFeedback = "student_feedback"
	NameSummary         = "assignment_summary"
)

// Deps are the collaborators shared by the three pipelines.
type Deps struct {
	Generator   Generator
	Tracker     UsageTracker
	Builder     prompt.Builder
	Renderer    prompt.Renderer
	Broadcaster Broadcaster
	Metrics     MetricsRecorder
	Logger      *slog.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Builder == nil {
		d.Builder = prompt.DefaultBuilder
	}
	if d.Renderer == nil {
		d.Renderer = prompt.MustNewTemplateRenderer()
	}
	if d.Broadcaster == nil {
		d.Broadcaster = NoOpBroadcaster{}
	}
	if d.Metrics == nil {
		d.Metrics = NoOpMetricsRecorder{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}

func buildStages[T any](d Deps, parse Parser[T], save func(*storageStage[T]), broadcast bool) []Stage {
	logger := d.Logger.With("component", "pipeline")
	gen := &generateStage{gen: d.Generator, tracker: d.Tracker}
	store := &storageStage[T]{}
	save(store)

	stages := []Stage{PromptInputStage(d.Builder, d.Renderer)}
	if broadcast {
		stages = append(stages, BroadcastStage(StageStarted, d.Broadcaster, domain.StatusInProgress, logger))
	}
	stages = append(stages,
		gen,
		&parseStage[T]{parse: parse, regenerate: gen, logger: logger},
		store,
	)
	if broadcast {
		stages = append(stages, BroadcastStage(StageCompleted, d.Broadcaster, domain.StatusCompleted, logger))
	}
	return append(stages, MetricsStage(d.Metrics, logger))
}

// NewRubricPipeline generates, stores and returns an assignment's rubric.
// Its failure is critical.
func NewRubricPipeline(d Deps, store RubricStore) *Pipeline[domain.Rubric] {
	d = d.withDefaults()
	stages := buildStages(d, ParseRubric, func(s *storageStage[domain.Rubric]) {
		s.save = store.SaveRubric
		s.assign = func(pctx *Context, r *domain.Rubric) { pctx.SavedRubric = r }
	}, true)
	return New(NameRubric, Critical, func(pctx *Context) *domain.Rubric { return pctx.SavedRubric }, d.Logger, stages...).
		WithMetrics(d.Metrics)
}

// NewStudentFeedbackPipeline grades one submission. It does not broadcast,
// and its failure is not critical.
func NewStudentFeedbackPipeline(d Deps, store FeedbackStore) *Pipeline[domain.StudentFeedback] {
	d = d.withDefaults()
	stages := buildStages(d, ParseStudentFeedback, func(s *storageStage[domain.StudentFeedback]) {
		s.save = store.SaveStudentFeedback
		s.assign = func(pctx *Context, f *domain.StudentFeedback) { pctx.SavedFeedback = f }
	}, false)
	return New(NameStudentFeedback, NonCritical, func(pctx *Context) *domain.StudentFeedback { return pctx.SavedFeedback }, d.Logger, stages...).
		WithMetrics(d.Metrics)
}

// NewSummaryPipeline summarizes the class's feedback. Its failure is critical.
func NewSummaryPipeline(d Deps, store SummaryStore) *Pipeline[domain.AssignmentSummary] {
	d = d.withDefaults()
	stages := buildStages(d, ParseSummary, func(s *storageStage[domain.AssignmentSummary]) {
		s.save = store.SaveAssignmentSummary
		s.assign = func(pctx *Context, sum *domain.AssignmentSummary) { pctx.SavedSummary = sum }
	}, true)
	return New(NameSummary, Critical, func(pctx *Context) *domain.AssignmentSummary { return pctx.SavedSummary }, d.Logger, stages...).
		WithMetrics(d.Metrics)
}
