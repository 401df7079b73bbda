// Package metrics exports grader and LLM metrics to Prometheus.
package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/internal/llm/circuitbreaker"
	"github.com/ahrav/go-grader/internal/llm/resilience"
	"github.com/ahrav/go-grader/internal/pipeline"
	"github.com/ahrav/go-grader/internal/processor"
)

const namespace = "grader"

// Recorder implements resilience.Metrics for the LLM middleware and
// pipeline.MetricsRecorder for pipeline runs. Each Recorder owns its
// registry, so several can coexist in one process.
type Recorder struct {
	registry *prometheus.Registry
	logger   *slog.Logger

	llmRequests *prometheus.CounterVec
	llmErrors   *prometheus.CounterVec
	llmDuration *prometheus.HistogramVec
	llmTokens   *prometheus.HistogramVec

	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	runTokens   *prometheus.CounterVec
	runCost     *prometheus.CounterVec
	jsonRetries *prometheus.CounterVec

	breakerState       *prometheus.GaugeVec
	breakerTransitions *prometheus.CounterVec
}

// NewRecorder creates a Recorder with a fresh registry that also carries
// the Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	llmLabels := []string{"provider", "model", "request_type"}

	return &Recorder{
		registry: reg,
		logger:   slog.Default().With("component", "metrics"),
		llmRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Logical LLM calls by provider, model and request type.",
		}, llmLabels),
		llmErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_request_errors_total",
			Help:      "Failed logical LLM calls by error type.",
		}, append(llmLabels, "error_type")),
		llmDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Latency of logical LLM calls, retries included.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, llmLabels),
		llmTokens: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_tokens",
			Help:      "Tokens per LLM response by direction.",
			Buckets:   prometheus.ExponentialBuckets(64, 2, 10),
		}, append(llmLabels, "direction")),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline and assignment runs by process type and outcome.",
		}, []string{"process_type", "status"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Wall time of pipeline and assignment runs.",
			Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1800},
		}, []string{"process_type"}),
		runTokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_tokens_total",
			Help:      "Tokens consumed by pipeline runs.",
		}, []string{"process_type"}),
		runCost: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_cost_usd_total",
			Help:      "LLM cost of pipeline runs in US dollars.",
		}, []string{"process_type"}),
		jsonRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_json_retries_total",
			Help:      "Pipeline runs that re-prompted after unparseable output.",
		}, []string{"process_type"}),
		breakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per provider (0 closed, 1 open, 2 half-open).",
		}, []string{"provider"}),
		breakerTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state transitions per provider.",
		}, []string{"provider", "from", "to"}),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// IncrementCounter implements resilience.Metrics.
func (r *Recorder) IncrementCounter(name string, tags map[string]string, value float64) {
	switch name {
	case resilience.MetricRequestsTotal:
		r.llmRequests.With(llmLabels(tags)).Add(value)
	case resilience.MetricRequestErrors:
		l := llmLabels(tags)
		l["error_type"] = tags["error_type"]
		r.llmErrors.With(l).Add(value)
	default:
		r.logger.Debug("unknown counter", "name", name)
	}
}

// RecordHistogram implements resilience.Metrics.
func (r *Recorder) RecordHistogram(name string, tags map[string]string, value float64) {
	switch name {
	case resilience.MetricRequestDuration:
		r.llmDuration.With(llmLabels(tags)).Observe(value / 1000)
	case resilience.MetricInputTokens, resilience.MetricOutputTokens:
		l := llmLabels(tags)
		l["direction"] = "output"
		if name == resilience.MetricInputTokens {
			l["direction"] = "input"
		}
		r.llmTokens.With(l).Observe(value)
	default:
		r.logger.Debug("unknown histogram", "name", name)
	}
}

// SetGauge implements resilience.Metrics.
func (r *Recorder) SetGauge(name string, tags map[string]string, value float64) {
	if name == "circuit_breaker_state" {
		r.breakerState.WithLabelValues(tags["provider"]).Set(value)
		return
	}
	r.logger.Debug("unknown gauge", "name", name)
}

func llmLabels(tags map[string]string) prometheus.Labels {
	return prometheus.Labels{
		"provider":     tags["provider"],
		"model":        tags["model"],
		"request_type": tags["request_type"],
	}
}

// Record implements pipeline.MetricsRecorder. Pipeline runs report
// tokens_used and cost_micro_usd; whole assignment runs report
// total_tokens_used.
func (r *Recorder) Record(
	_ context.Context,
	_ domain.Processable,
	pt domain.ProcessType,
	m map[string]any,
	success bool,
) error {
	ptl := string(pt)
	status := "success"
	if !success {
		status = "failure"
	}
	r.runs.WithLabelValues(ptl, status).Inc()

	if ms, ok := number(m[pipeline.MetricTotalDuration]); ok {
		r.runDuration.WithLabelValues(ptl).Observe(ms / 1000)
	}
	tokens, ok := number(m[pipeline.MetricTokensUsed])
	if !ok {
		tokens, ok = number(m[processor.MetricTotalTokensUsed])
	}
	if ok {
		r.runTokens.WithLabelValues(ptl).Add(tokens)
	}
	if micros, ok := number(m[pipeline.MetricCost]); ok {
		r.runCost.WithLabelValues(ptl).Add(micros / domain.MicrosPerDollar)
	}
	if retried, _ := m[pipeline.MetricJSONRetry].(bool); retried {
		r.jsonRetries.WithLabelValues(ptl).Inc()
	}
	return nil
}

// BreakerListener returns a circuit breaker listener that tracks state.
func (r *Recorder) BreakerListener() circuitbreaker.Listener {
	return func(provider string, from, to circuitbreaker.CircuitState) {
		r.breakerState.WithLabelValues(provider).Set(float64(to))
		r.breakerTransitions.WithLabelValues(provider, from.String(), to.String()).Inc()
	}
}

// number converts the numeric metric representations used by pipelines.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case domain.MicroUSD:
		return float64(n), true
	case time.Duration:
		return float64(n.Milliseconds()), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

var (
	_ resilience.Metrics       = (*Recorder)(nil)
	_ pipeline.MetricsRecorder = (*Recorder)(nil)
)
