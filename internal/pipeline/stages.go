package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahrav/go-grader/internal/domain"
	llmerrors "github.com/ahrav/go-grader/internal/llm/errors"
	"github.com/ahrav/go-grader/internal/llm/transport"
	"github.com/ahrav/go-grader/internal/prompt"
)

// ErrNoResponse is returned when the parse stage runs before generation.
var ErrNoResponse = errors.New("no LLM response to parse")

// PromptInputStage builds the prompt input and renders the prompt text.
func PromptInputStage(builder prompt.Builder, renderer prompt.Renderer) Stage {
	return NewStage(StagePromptInput, func(_ context.Context, pctx *Context) (*Context, error) {
		in, err := builder.Build(prompt.Request{
			Subject:     pctx.Subject,
			ProcessType: pctx.ProcessType,
			Assignment:  pctx.Parent.Assignment,
			Rubric:      pctx.Parent.Rubric,
		})
		if err != nil {
			return nil, fmt.Errorf("build prompt input: %w", err)
		}
		text, err := renderer.Render(in)
		if err != nil {
			return nil, fmt.Errorf("render prompt: %w", err)
		}
		pctx.PromptInput = in
		pctx.Prompt = text
		pctx.SetMetric("prompt_length", int64(len(text)))
		return pctx, nil
	})
}

// BroadcastStage publishes status for the subject. Broadcasting is best
// effort: failures are logged and the run continues.
func BroadcastStage(name string, b Broadcaster, status domain.ProcessStatus, logger *slog.Logger) Stage {
	return NewStage(name, func(ctx context.Context, pctx *Context) (*Context, error) {
		data := map[string]any{"process_type": string(pctx.ProcessType)}
		if status == domain.StatusCompleted {
			data["duration_ms"] = time.Since(pctx.StartedAt).Milliseconds()
		}
		if err := b.Broadcast(ctx, pctx.Subject, status, data); err != nil {
			logger.WarnContext(ctx, "broadcast failed",
				"stage", name,
				"subject_id", pctx.Subject.ProcessableID(),
				"status", status,
				"error", err)
		}
		return pctx, nil
	})
}

// generateStage calls the model and records usage for the response.
type generateStage struct {
	gen     Generator
	tracker UsageTracker
}

func (s *generateStage) Name() string { return StageGenerate }

func (s *generateStage) Apply(ctx context.Context, pctx *Context) (*Context, error) {
	resp, err := s.gen.Generate(ctx, &transport.Request{
		Prompt:      pctx.Prompt,
		RequestType: string(pctx.ProcessType),
	})
	if err != nil {
		return nil, err
	}
	pctx.Response = resp

	pctx.AddMetric(MetricInputTokens, resp.InputTokens)
	pctx.AddMetric(MetricOutputTokens, resp.OutputTokens)
	pctx.AddMetric(MetricTokensUsed, resp.TotalTokens())
	pctx.AddMetric("llm_calls", 1)
	pctx.SetMetric(MetricModel, resp.Model)
	pctx.SetMetric(MetricProvider, resp.Provider)

	if s.tracker != nil {
		rec, err := s.tracker.Record(ctx, resp, pctx.Subject, pctx.UserID(), pctx.ProcessType)
		if err != nil {
			return nil, fmt.Errorf("track usage: %w", err)
		}
		pctx.AddMetric(MetricCost, int64(rec.Cost))
	}
	return pctx, nil
}

// Parser decodes and validates raw model output.
type Parser[T any] func(raw string, pctx *Context) (*T, error)

// parseStage decodes the response. On the first JSON parse failure it
// re-prompts once with an instruction to answer in valid JSON.
type parseStage[T any] struct {
	parse      Parser[T]
	regenerate Stage
	logger     *slog.Logger
}

func (s *parseStage[T]) Name() string { return StageParse }

func (s *parseStage[T]) Apply(ctx context.Context, pctx *Context) (*Context, error) {
	if pctx.Response == nil {
		return nil, ErrNoResponse
	}
	v, err := s.parse(pctx.Response.Text, pctx)
	if errors.Is(err, llmerrors.ErrJSONParse) && !pctx.JSONRetried {
		s.logger.WarnContext(ctx, "model returned invalid JSON, retrying once",
			"subject_id", pctx.Subject.ProcessableID(),
			"process_type", pctx.ProcessType,
			"error", err)
		pctx.JSONRetried = true
		pctx.SetMetric(MetricJSONRetry, true)
		pctx.Prompt += prompt.JSONReminder
		if _, err := s.regenerate.Apply(ctx, pctx); err != nil {
			return nil, err
		}
		v, err = s.parse(pctx.Response.Text, pctx)
	}
	if err != nil {
		return nil, err
	}
	pctx.Parsed = v
	return pctx, nil
}

// storageStage persists the parsed payload and exposes it on the context.
type storageStage[T any] struct {
	save   func(context.Context, *T) error
	assign func(*Context, *T)
}

func (s *storageStage[T]) Name() string { return StageStorage }

func (s *storageStage[T]) Apply(ctx context.Context, pctx *Context) (*Context, error) {
	v, ok := pctx.Parsed.(*T)
	if !ok || v == nil {
		return nil, fmt.Errorf("nothing to store: parsed payload is %T", pctx.Parsed)
	}
	if err := s.save(ctx, v); err != nil {
		return nil, fmt.Errorf("save %T: %w", v, err)
	}
	s.assign(pctx, v)
	return pctx, nil
}

// MetricsStage hands the run's metrics to the recorder. Recorder failures
// are logged and ignored.
func MetricsStage(rec MetricsRecorder, logger *slog.Logger) Stage {
	return NewStage(StageMetrics, func(ctx context.Context, pctx *Context) (*Context, error) {
		metrics := pctx.Metrics()
		metrics[MetricTotalDuration] = time.Since(pctx.StartedAt).Milliseconds()
		if err := rec.Record(ctx, pctx.Subject, pctx.ProcessType, metrics, true); err != nil {
			logger.WarnContext(ctx, "metrics recording failed",
				"subject_id", pctx.Subject.ProcessableID(),
				"process_type", pctx.ProcessType,
				"error", err)
		}
		return pctx, nil
	})
}
