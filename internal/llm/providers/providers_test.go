package providers_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-grader/internal/configuration"
	llmerrors "github.com/ahrav/go-grader/internal/llm/errors"
	"github.com/ahrav/go-grader/internal/llm/providers"
	"github.com/ahrav/go-grader/internal/llm/transport"
)

func newRequest(provider, model string) *transport.Request {
	return &transport.Request{Provider: provider, Model: model, Prompt: "Grade this", MaxTokens: 256}
}

func TestAnthropicAdapterRoundTrip(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-test", r.Header.Get("x-api-key"))
		assert.Equal(t, providers.AnthropicAPIVersion, r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("request-id", "req_123")
		_, _ = io.WriteString(w, `{
			"id": "msg_1",
			"content": [{"type": "text", "text": "{\"ok\":"}, {"type": "text", "text": "true}"}],
			"model": "claude-3-5-haiku-20241022",
			"usage": {"input_tokens": 1000, "output_tokens": 500}
		}`)
	}))
	defer srv.Close()

	adapter := providers.NewAnthropicAdapter(configuration.ProviderConfig{APIKey: "sk-test", Endpoint: srv.URL + "/"})
	h := transport.NewHTTPHandler(srv.Client(), mustRouter(t, providers.ProviderAnthropic, adapter))

	resp, err := h.Handle(context.Background(), newRequest(providers.ProviderAnthropic, "claude-3-5-haiku-latest"))
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, resp.Text)
	assert.Equal(t, int64(1000), resp.InputTokens)
	assert.Equal(t, int64(500), resp.OutputTokens)
	assert.Equal(t, "claude-3-5-haiku-20241022", resp.Model)
	assert.Equal(t, "req_123", resp.RequestID)
	assert.Equal(t, providers.ProviderAnthropic, resp.Provider)

	assert.Equal(t, "claude-3-5-haiku-latest", gotBody["model"])
	assert.EqualValues(t, 256, gotBody["max_tokens"])
	msgs, ok := gotBody["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	assert.Equal(t, map[string]any{"role": "user", "content": "Grade this"}, msgs[0])
}

func TestGoogleAdapterRoundTrip(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Empty(t, r.URL.Query().Get("key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_, _ = io.WriteString(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "hello"}]}}],
			"usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 3},
			"modelVersion": "gemini-2.0-flash-001"
		}`)
	}))
	defer srv.Close()

	adapter := providers.NewGoogleAdapter(configuration.ProviderConfig{APIKey: "g-key", Endpoint: srv.URL})
	h := transport.NewHTTPHandler(srv.Client(), mustRouter(t, providers.ProviderGoogle, adapter))

	resp, err := h.Handle(context.Background(), newRequest(providers.ProviderGoogle, "gemini-2.0-flash"))
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, int64(12), resp.InputTokens)
	assert.Equal(t, int64(3), resp.OutputTokens)
	assert.Equal(t, "gemini-2.0-flash-001", resp.Model)

	contents, ok := gotBody["contents"].([]any)
	require.True(t, ok)
	require.Len(t, contents, 1)
	first, ok := contents[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, []any{map[string]any{"text": "Grade this"}}, first["parts"])
}

func TestGoogleAdapterFallsBackToRequestedModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"x"}]}}]}`)
	}))
	defer srv.Close()

	adapter := providers.NewGoogleAdapter(configuration.ProviderConfig{Endpoint: srv.URL})
	h := transport.NewHTTPHandler(srv.Client(), mustRouter(t, providers.ProviderGoogle, adapter))

	resp, err := h.Handle(context.Background(), newRequest(providers.ProviderGoogle, "gemini-1.5-pro"))
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-pro", resp.Model)
}

func TestProviderErrorClassification(t *testing.T) {
	tests := []struct {
		name       string
		provider   string
		status     int
		body       string
		retryAfter string
		wantType   llmerrors.ErrorType
		wantRetry  bool
	}{
		{
			name: "anthropic rate limit", provider: providers.ProviderAnthropic, status: 429, retryAfter: "7",
			body:     `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`,
			wantType: llmerrors.ErrorTypeRateLimit, wantRetry: true,
		},
		{
			name: "anthropic overloaded", provider: providers.ProviderAnthropic, status: 529,
			body:     `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`,
			wantType: llmerrors.ErrorTypeServiceUnavailable, wantRetry: true,
		},
		{
			name: "anthropic bad key", provider: providers.ProviderAnthropic, status: 401,
			body:     `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`,
			wantType: llmerrors.ErrorTypeAuth,
		},
		{
			name: "anthropic invalid request", provider: providers.ProviderAnthropic, status: 400,
			body:     `{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens too large"}}`,
			wantType: llmerrors.ErrorTypeValidation,
		},
		{
			name: "google quota", provider: providers.ProviderGoogle, status: 429,
			body:     `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`,
			wantType: llmerrors.ErrorTypeRateLimit, wantRetry: true,
		},
		{
			name: "google unavailable", provider: providers.ProviderGoogle, status: 503,
			body:     `{"error":{"code":503,"message":"try later","status":"UNAVAILABLE"}}`,
			wantType: llmerrors.ErrorTypeServiceUnavailable, wantRetry: true,
		},
		{
			name: "google bad gateway without body", provider: providers.ProviderGoogle, status: 502,
			wantType: llmerrors.ErrorTypeServiceUnavailable, wantRetry: true,
		},
		{
			name: "google permission", provider: providers.ProviderGoogle, status: 403,
			body:     `{"error":{"code":403,"message":"denied","status":"PERMISSION_DENIED"}}`,
			wantType: llmerrors.ErrorTypeAuth,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			router, err := providers.NewRouter(map[string]configuration.ProviderConfig{
				tt.provider: {Endpoint: srv.URL},
			})
			require.NoError(t, err)

			h := transport.NewHTTPHandler(srv.Client(), router)
			_, err = h.Handle(context.Background(), newRequest(tt.provider, "some-model"))
			require.Error(t, err)

			var provErr *llmerrors.ProviderError
			require.ErrorAs(t, err, &provErr)
			assert.Equal(t, tt.status, provErr.StatusCode)
			assert.Equal(t, tt.wantType, provErr.Type)
			assert.Equal(t, tt.wantRetry, llmerrors.IsRetryable(err))
			assert.NotEmpty(t, provErr.Message)
			if tt.retryAfter != "" {
				assert.Equal(t, 7, provErr.RetryAfter)
			}
		})
	}
}

func TestAnthropicEmptyContentIsInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"content":[],"model":"m","usage":{"input_tokens":1,"output_tokens":0}}`)
	}))
	defer srv.Close()

	router, err := providers.NewRouter(map[string]configuration.ProviderConfig{providers.ProviderAnthropic: {Endpoint: srv.URL}})
	require.NoError(t, err)

	_, err = transport.NewHTTPHandler(srv.Client(), router).Handle(context.Background(), newRequest(providers.ProviderAnthropic, "m"))
	assert.ErrorIs(t, err, llmerrors.ErrInvalidResponse)
	assert.False(t, llmerrors.IsRetryable(err))
}

func TestNewRouterRejectsUnknownProvider(t *testing.T) {
	_, err := providers.NewRouter(map[string]configuration.ProviderConfig{"openai": {}})
	assert.ErrorIs(t, err, llmerrors.ErrUnknownProvider)
}

type singleRouter struct {
	name    string
	adapter transport.ProviderAdapter
}

func (r singleRouter) Pick(provider string) (transport.ProviderAdapter, error) {
	if provider != r.name {
		return nil, llmerrors.ErrUnknownProvider
	}
	return r.adapter, nil
}

func mustRouter(t *testing.T, name string, adapter transport.ProviderAdapter) transport.Router {
	t.Helper()
	return singleRouter{name: name, adapter: adapter}
}

func TestProviderErrorKeepsNonJSONBody(t *testing.T) {
	for _, provider := range []string{providers.ProviderAnthropic, providers.ProviderGoogle} {
		t.Run(provider, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = io.WriteString(w, "<html>upstream connect error</html>\n")
			}))
			defer srv.Close()

			router, err := providers.NewRouter(map[string]configuration.ProviderConfig{
				provider: {Endpoint: srv.URL},
			})
			require.NoError(t, err)

			_, err = transport.NewHTTPHandler(srv.Client(), router).
				Handle(context.Background(), newRequest(provider, "some-model"))

			var provErr *llmerrors.ProviderError
			require.ErrorAs(t, err, &provErr)
			assert.Equal(t, "<html>upstream connect error</html>", provErr.Message)
			assert.Empty(t, provErr.Code)
			assert.Equal(t, llmerrors.ErrorTypeServiceUnavailable, provErr.Type)
		})
	}
}
