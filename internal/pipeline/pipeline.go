package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/ahrav/go-grader/internal/domain"
)

// Criticality tells the processor whether a failed run aborts the assignment.
type Criticality int

const (
	// Critical failures stop assignment processing.
	Critical Criticality = iota
	// NonCritical failures are recorded and processing continues.
	NonCritical
)

func (c Criticality) String() string {
	if c == NonCritical {
		return "non_critical"
	}
	return "critical"
}

// Metric keys written by every pipeline run.
const (
	MetricTotalDuration = "total_duration_ms"
	MetricInputTokens   = "input_tokens"
	MetricOutputTokens  = "output_tokens"
	MetricTokensUsed    = "tokens_used"
	MetricCost          = "cost_micro_usd"
	MetricModel         = "model"
	MetricProvider      = "provider"
	MetricJSONRetry     = "json_retry"
)

// Runner is a pipeline as seen by the processor.
type Runner[T any] interface {
	Run(ctx context.Context, pctx *Context) Result[T]
	Criticality() Criticality
}

// Pipeline runs a fixed list of stages and extracts a typed payload.
type Pipeline[T any] struct {
	name        string
	criticality Criticality
	stages      []Stage
	extract     func(*Context) *T
	metrics     MetricsRecorder
	logger      *slog.Logger
}

// New assembles a pipeline. The stage list is fixed for its lifetime.
func New[T any](name string, criticality Criticality, extract func(*Context) *T, logger *slog.Logger, stages ...Stage) *Pipeline[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline[T]{
		name:        name,
		criticality: criticality,
		stages:      stages,
		extract:     extract,
		metrics:     NoOpMetricsRecorder{},
		logger:      logger.With("component", "pipeline", "pipeline", name),
	}
}

// WithMetrics sets the recorder that failed runs report to. Successful runs
// report through their metrics stage.
func (p *Pipeline[T]) WithMetrics(rec MetricsRecorder) *Pipeline[T] {
	if rec != nil {
		p.metrics = rec
	}
	return p
}

// Name returns the pipeline name.
func (p *Pipeline[T]) Name() string { return p.name }

// Criticality implements Runner.
func (p *Pipeline[T]) Criticality() Criticality { return p.criticality }

// Stages returns the stage names in execution order.
func (p *Pipeline[T]) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Run executes every stage in order. It never returns an error or panics:
// any stage failure becomes a failed Result carrying the metrics gathered so far.
func (p *Pipeline[T]) Run(ctx context.Context, pctx *Context) (res Result[T]) {
	if pctx == nil || pctx.Subject == nil {
		return Failed[T]([]string{p.name + ": context has no subject"}, nil)
	}
	if pctx.StartedAt.IsZero() {
		pctx.StartedAt = time.Now()
	}
	pctx.Status = domain.StatusInProgress

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in %s pipeline: %v", p.name, r)
			p.logger.ErrorContext(ctx, "pipeline panicked",
				"subject_kind", pctx.Subject.Kind(),
				"subject_id", pctx.Subject.ProcessableID(),
				"panic", r,
				"stack", string(debug.Stack()))
			res = p.fail(ctx, pctx, err)
		}
	}()

	for _, stage := range p.stages {
		start := time.Now()
		next, err := stage.Apply(ctx, pctx)
		pctx.SetMetric(stage.Name()+"_duration_ms", time.Since(start).Milliseconds())
		if err != nil {
			p.logger.ErrorContext(ctx, "pipeline stage failed",
				"stage", stage.Name(),
				"subject_kind", pctx.Subject.Kind(),
				"subject_id", pctx.Subject.ProcessableID(),
				"error", err)
			return p.fail(ctx, pctx, fmt.Errorf("%s: %w", stage.Name(), err))
		}
		if next != nil {
			pctx = next
		}
	}

	pctx.Status = domain.StatusCompleted
	pctx.SetMetric(MetricTotalDuration, time.Since(pctx.StartedAt).Milliseconds())
	return Succeeded(p.extract(pctx), pctx.Metrics())
}

func (p *Pipeline[T]) fail(ctx context.Context, pctx *Context, err error) Result[T] {
	pctx.Status = domain.StatusFailed
	pctx.AddError(err.Error())
	pctx.SetMetric(MetricTotalDuration, time.Since(pctx.StartedAt).Milliseconds())
	p.recordFailure(ctx, pctx)
	return Failed[T](pctx.Errors(), pctx.Metrics())
}

// recordFailure reports a failed run. Recorder errors and panics are logged
// and dropped.
func (p *Pipeline[T]) recordFailure(ctx context.Context, pctx *Context) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.WarnContext(ctx, "metrics recorder panicked", "panic", r)
		}
	}()
	if err := p.metrics.Record(ctx, pctx.Subject, pctx.ProcessType, pctx.Metrics(), false); err != nil {
		p.logger.WarnContext(ctx, "metrics recording failed",
			"subject_id", pctx.Subject.ProcessableID(),
			"process_type", pctx.ProcessType,
			"error", err)
	}
}
