// Package resilience holds the cross-cutting observability middleware that
// wraps every logical LLM call: structured logs plus counters and histograms.
package resilience

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	llmerrors "github.com/ahrav/go-grader/internal/llm/errors"
	"github.com/ahrav/go-grader/internal/llm/transport"
)

// Metric names emitted by the logging middleware.
const (
	MetricRequestsTotal   = "llm_requests_total"
	MetricRequestErrors   = "llm_request_errors_total"
	MetricRequestDuration = "llm_request_duration_ms"
	MetricInputTokens     = "llm_input_tokens"
	MetricOutputTokens    = "llm_output_tokens"
)

// Metrics collects observability data with tag-based dimensions. A given
// metric name must always be used with the same set of tag keys.
type Metrics interface {
	IncrementCounter(name string, tags map[string]string, value float64)
	RecordHistogram(name string, tags map[string]string, value float64)
	SetGauge(name string, tags map[string]string, value float64)
}

// NoOpMetrics discards all data.
type NoOpMetrics struct{}

// NewNoOpMetrics returns a new no-op metrics collector.
func NewNoOpMetrics() *NoOpMetrics { return &NoOpMetrics{} }

func (n *NoOpMetrics) IncrementCounter(string, map[string]string, float64) {}
func (n *NoOpMetrics) RecordHistogram(string, map[string]string, float64)  {}
func (n *NoOpMetrics) SetGauge(string, map[string]string, float64)         {}

// LoggingMiddleware logs each logical LLM call and records its metrics.
// Prompts are never logged, only their length.
type LoggingMiddleware struct {
	logger  *slog.Logger
	metrics Metrics
}

// NewLoggingMiddleware creates the observability middleware. Nil arguments
// fall back to slog.Default and NoOpMetrics.
func NewLoggingMiddleware(logger *slog.Logger, metrics Metrics) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewNoOpMetrics()
	}
	m := &LoggingMiddleware{logger: logger.With("component", "llm"), metrics: metrics}
	return m.Middleware()
}

// Middleware returns the wrapping function.
func (m *LoggingMiddleware) Middleware() transport.Middleware {
	return func(next transport.Handler) transport.Handler {
		return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if req.TraceID == "" {
				req.TraceID = uuid.NewString()
			}

			tags := map[string]string{
				"provider":     req.Provider,
				"model":        req.Model,
				"request_type": req.RequestType,
			}

			m.logger.Info("LLM request started",
				"trace_id", req.TraceID,
				"provider", req.Provider,
				"model", req.Model,
				"request_type", req.RequestType,
				"max_tokens", req.MaxTokens,
				"prompt_length", len(req.Prompt))
			m.metrics.IncrementCounter(MetricRequestsTotal, tags, 1)

			start := time.Now()
			resp, err := next.Handle(ctx, req)
			duration := time.Since(start)
			m.metrics.RecordHistogram(MetricRequestDuration, tags, float64(duration.Milliseconds()))

			if err != nil {
				errorType := llmerrors.Classify(err)
				errTags := maps.Clone(tags)
				errTags["error_type"] = string(errorType)
				m.metrics.IncrementCounter(MetricRequestErrors, errTags, 1)
				m.logger.Error("LLM request failed",
					"trace_id", req.TraceID,
					"provider", req.Provider,
					"model", req.Model,
					"request_type", req.RequestType,
					"duration_ms", duration.Milliseconds(),
					"error_type", errorType,
					"error", err)
				return resp, err
			}

			m.metrics.RecordHistogram(MetricInputTokens, tags, float64(resp.InputTokens))
			m.metrics.RecordHistogram(MetricOutputTokens, tags, float64(resp.OutputTokens))
			m.logger.Info("LLM request completed",
				"trace_id", req.TraceID,
				"provider", req.Provider,
				"model", resp.Model,
				"request_type", req.RequestType,
				"duration_ms", duration.Milliseconds(),
				"input_tokens", resp.InputTokens,
				"output_tokens", resp.OutputTokens,
				"provider_request_id", resp.RequestID,
				"response_length", len(resp.Text))
			return resp, nil
		})
	}
}
