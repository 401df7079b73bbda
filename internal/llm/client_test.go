package llm_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-grader/internal/configuration"
	"github.com/ahrav/go-grader/internal/llm"
	"github.com/ahrav/go-grader/internal/llm/circuitbreaker"
	llmerrors "github.com/ahrav/go-grader/internal/llm/errors"
	"github.com/ahrav/go-grader/internal/llm/retry"
	"github.com/ahrav/go-grader/internal/llm/transport"
)

const okBody = `{
	"content": [{"type": "text", "text": "graded"}],
	"model": "claude-3-5-haiku-20241022",
	"usage": {"input_tokens": 10, "output_tokens": 5}
}`

func noSleep(context.Context, time.Duration) error { return nil }

func newTestClient(t *testing.T, srv *httptest.Server, breakers *circuitbreaker.Registry) llm.Client {
	t.Helper()
	cfg := configuration.DefaultConfig()
	cfg.RateLimit.Enabled = false
	cfg.LLM.Providers = map[string]configuration.ProviderConfig{
		configuration.ProviderAnthropic: {APIKey: "sk-test", Endpoint: srv.URL},
	}
	c, err := llm.NewClient(cfg, llm.Deps{
		Breakers:     breakers,
		HTTPClient:   srv.Client(),
		RetryOptions: []retry.Option{retry.WithSleep(noSleep)},
	})
	require.NoError(t, err)
	return c
}

func TestClientFillsDefaultsFromConfig(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, circuitbreaker.NewRegistry(circuitbreaker.Config{}))
	resp, err := c.Generate(context.Background(), &transport.Request{Prompt: "grade it"})
	require.NoError(t, err)

	assert.Equal(t, "graded", resp.Text)
	assert.Equal(t, configuration.ProviderAnthropic, resp.Provider)
	assert.Equal(t, "claude-3-5-haiku-latest", body["model"])
	assert.EqualValues(t, configuration.DefaultMaxTokens, body["max_tokens"])
}

func TestClientRetriesOverloadedProvider(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(529)
			_, _ = io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`)
			return
		}
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	breakers := circuitbreaker.NewRegistry(circuitbreaker.Config{FailureThreshold: 2})
	c := newTestClient(t, srv, breakers)

	resp, err := c.Generate(context.Background(), &transport.Request{Prompt: "grade it"})
	require.NoError(t, err)
	assert.Equal(t, "graded", resp.Text)
	assert.Equal(t, int32(3), calls.Load())
	// Retries happen inside the breaker, so one logical success is recorded.
	assert.Equal(t, circuitbreaker.StateClosed, breakers.Get(configuration.ProviderAnthropic).State())
}

func TestClientDoesNotRetryAuthenticationFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"authentication_error","message":"bad key"}}`)
	}))
	defer srv.Close()

	breakers := circuitbreaker.NewRegistry(circuitbreaker.Config{FailureThreshold: 1})
	c := newTestClient(t, srv, breakers)

	_, err := c.Generate(context.Background(), &transport.Request{Prompt: "grade it"})
	require.ErrorIs(t, err, llmerrors.ErrAuthentication)
	assert.Equal(t, int32(1), calls.Load())

	_, err = c.Generate(context.Background(), &transport.Request{Prompt: "grade it"})
	require.ErrorIs(t, err, llmerrors.ErrCircuitBreakerOpen)
	assert.Equal(t, int32(1), calls.Load(), "open circuit must not reach the provider")
}

func TestClientRejectsInvalidRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("provider must not be called")
	}))
	defer srv.Close()

	c := newTestClient(t, srv, circuitbreaker.NewRegistry(circuitbreaker.Config{}))
	_, err := c.Generate(context.Background(), &transport.Request{})
	require.ErrorIs(t, err, transport.ErrInvalidRequest)
}
