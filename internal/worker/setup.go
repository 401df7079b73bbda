// Package worker wires the grader's dependencies and runs the Temporal
// worker. Build is the composition root shared by every cmd/grader command.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ahrav/go-grader/internal/broadcast"
	"github.com/ahrav/go-grader/internal/configuration"
	"github.com/ahrav/go-grader/internal/cost"
	"github.com/ahrav/go-grader/internal/grading"
	"github.com/ahrav/go-grader/internal/llm"
	"github.com/ahrav/go-grader/internal/llm/circuitbreaker"
	"github.com/ahrav/go-grader/internal/llm/retry"
	"github.com/ahrav/go-grader/internal/metrics"
	"github.com/ahrav/go-grader/internal/pipeline"
	"github.com/ahrav/go-grader/internal/processor"
	"github.com/ahrav/go-grader/internal/prompt"
	"github.com/ahrav/go-grader/internal/storage"
)

// App holds the wired components of the grader.
type App struct {
	Config     *configuration.Config
	Store      storage.Store
	Metrics    *metrics.Recorder
	Breakers   *circuitbreaker.Registry
	Models     *cost.ModelRegistry
	LLM        llm.Client
	Processor  *processor.AssignmentProcessor
	Activities *grading.Activities

	closers []func() error
}

type options struct {
	httpClient   *http.Client
	store        storage.Store
	broadcaster  pipeline.Broadcaster
	retryOptions []retry.Option
	logger       *slog.Logger
}

// Option customizes Build.
type Option func(*options)

// WithHTTPClient replaces the pooled provider HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.httpClient = c } }

// WithStore uses s instead of opening the configured store. The caller
// keeps ownership of s.
func WithStore(s storage.Store) Option { return func(o *options) { o.store = s } }

// WithBroadcaster replaces the configured broadcaster.
func WithBroadcaster(b pipeline.Broadcaster) Option { return func(o *options) { o.broadcaster = b } }

// WithRetryOptions customizes the LLM retrier.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(o *options) { o.retryOptions = append(o.retryOptions, opts...) }
}

// WithLogger sets the logger handed to every component.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// Build wires the grader from cfg. Call Close on the returned App to release
// the store and broker connections.
func Build(ctx context.Context, cfg *configuration.Config, opts ...Option) (_ *App, err error) {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	app.Models, err = cost.NewDefaultRegistry(cfg.Models)
	if err != nil {
		return nil, fmt.Errorf("failed to build model registry: %w", err)
	}

	app.Metrics = metrics.NewRecorder()
	app.Breakers = circuitbreaker.NewRegistry(circuitbreaker.Config{
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		ResetTimeout:     cfg.CircuitBreaker.ResetTimeout,
	}, circuitbreaker.WithListener(app.Metrics.BreakerListener()))

	app.LLM, err = llm.NewClient(cfg, llm.Deps{
		Breakers:     app.Breakers,
		Models:       app.Models,
		Metrics:      app.Metrics,
		Logger:       o.logger,
		HTTPClient:   o.httpClient,
		RetryOptions: o.retryOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	app.Store = o.store
	if app.Store == nil {
		app.Store, err = storage.Open(ctx, cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		app.closers = append(app.closers, app.Store.Close)
	}

	bc := o.broadcaster
	if bc == nil {
		redisBC, closeBC, err := broadcast.Open(ctx, cfg.Broadcast)
		if err != nil {
			return nil, fmt.Errorf("failed to open broadcaster: %w", err)
		}
		app.closers = append(app.closers, closeBC)
		bc = redisBC
	}
	bc = grading.HeartbeatBroadcaster{Next: bc}

	renderer, err := prompt.NewTemplateRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	deps := pipeline.Deps{
		Generator:   app.LLM,
		Tracker:     cost.NewTracker(cost.NewCalculator(app.Models), app.Store),
		Builder:     prompt.DefaultBuilder,
		Renderer:    renderer,
		Broadcaster: bc,
		Metrics:     app.Metrics,
		Logger:      o.logger,
	}

	app.Processor, err = processor.New(processor.Deps{
		Pipelines: processor.Pipelines{
			Rubric:   pipeline.NewRubricPipeline(deps, app.Store),
			Feedback: pipeline.NewStudentFeedbackPipeline(deps, app.Store),
			Summary:  pipeline.NewSummaryPipeline(deps, app.Store),
		},
		Steps:       app.Store,
		Status:      app.Store,
		Broadcaster: bc,
		Metrics:     app.Metrics,
		Logger:      o.logger,
	})
	if err != nil {
		return nil, err
	}

	app.Activities = grading.NewActivities(app.Store, app.Processor)
	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
