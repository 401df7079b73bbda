// Package llm provides the resilient client every grading pipeline uses to
// call Anthropic and Google models.
//
// Architecture:
//   - Provider adapters translate the normalized request to each HTTP API
//   - A middleware chain wraps the HTTP round trip; from outermost inward it
//     applies logging and metrics, the provider's circuit breaker, retries
//     with jittered backoff, and the local rate limiter
//   - Request/response only; no streaming
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ahrav/go-grader/internal/configuration"
	"github.com/ahrav/go-grader/internal/cost"
	"github.com/ahrav/go-grader/internal/llm/circuitbreaker"
	"github.com/ahrav/go-grader/internal/llm/providers"
	"github.com/ahrav/go-grader/internal/llm/ratelimit"
	"github.com/ahrav/go-grader/internal/llm/resilience"
	"github.com/ahrav/go-grader/internal/llm/retry"
	"github.com/ahrav/go-grader/internal/llm/transport"
)

// HTTP transport tuning.
const (
	DefaultMaxIdleConns   = 100
	DefaultIdleTimeout    = 90 * time.Second
	DefaultTLSTimeout     = 10 * time.Second
	defaultExpectContinue = 1 * time.Second
)

// Client generates text through the configured provider.
type Client interface {
	// Generate sends req through the middleware chain. Zero-valued provider,
	// model, max tokens, temperature and timeout are filled from configuration.
	Generate(ctx context.Context, req *transport.Request) (*transport.Response, error)
}

// Deps are the shared collaborators of a client. Breakers is required so
// every client in a process shares one set of per-provider circuits.
type Deps struct {
	Breakers *circuitbreaker.Registry
	Models   *cost.ModelRegistry
	Metrics  resilience.Metrics
	Logger   *slog.Logger

	// HTTPClient overrides the pooled default client.
	HTTPClient *http.Client
	// RetryOptions customize the retrier, mainly for tests.
	RetryOptions []retry.Option
}

type client struct {
	cfg     configuration.LLMConfig
	models  *cost.ModelRegistry
	handler transport.Handler
}

// NewClient builds the provider router and middleware chain from cfg.
func NewClient(cfg *configuration.Config, deps Deps) (Client, error) {
	if cfg == nil {
		cfg = configuration.DefaultConfig()
	}
	if deps.Breakers == nil {
		return nil, fmt.Errorf("llm client: circuit breaker registry is required")
	}
	if deps.Models == nil {
		models, err := cost.NewDefaultRegistry(cfg.Models)
		if err != nil {
			return nil, fmt.Errorf("failed to build model registry: %w", err)
		}
		deps.Models = models
	}

	router, err := providers.NewRouter(cfg.LLM.Providers)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}

	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          DefaultMaxIdleConns,
				IdleConnTimeout:       DefaultIdleTimeout,
				TLSHandshakeTimeout:   DefaultTLSTimeout,
				ExpectContinueTimeout: defaultExpectContinue,
			},
		}
	}
	core := transport.NewHTTPHandler(httpClient, router)

	policy, err := retry.PolicyFromConfig(cfg.Retry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize retry policy: %w", err)
	}

	middlewares := []transport.Middleware{
		resilience.NewLoggingMiddleware(deps.Logger, deps.Metrics),
		circuitbreaker.Middleware(deps.Breakers),
		retry.Middleware(retry.New(policy, deps.RetryOptions...)),
	}
	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.New(cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
		}
		middlewares = append(middlewares, ratelimit.Middleware(limiter))
	}

	return &client{
		cfg:     cfg.LLM,
		models:  deps.Models,
		handler: transport.Chain(core, middlewares...),
	}, nil
}

// Generate implements Client.
func (c *client) Generate(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	r := *req
	if r.Provider == "" {
		r.Provider = c.cfg.Provider
	}
	if r.Model == "" {
		r.Model = c.cfg.Model
	}
	if r.Model == "" {
		model, err := c.models.DefaultModel(r.Provider)
		if err != nil {
			return nil, err
		}
		r.Model = model
	}
	if r.MaxTokens == 0 {
		r.MaxTokens = c.cfg.MaxTokens
	}
	if r.Temperature == 0 {
		r.Temperature = c.cfg.Temperature
	}
	if r.Timeout == 0 {
		r.Timeout = c.cfg.HTTPTimeout
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return c.handler.Handle(ctx, &r)
}
