// Package transport defines the normalized LLM request/response types and the
// composable Handler/Middleware pipeline every provider call flows through.
package transport

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRequest is returned when a request fails local validation.
var ErrInvalidRequest = errors.New("invalid LLM request")

// Request is a normalized single-turn text generation request.
type Request struct {
	Provider    string        `json:"provider"`
	Model       string        `json:"model"`
	Prompt      string        `json:"prompt"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Timeout     time.Duration `json:"timeout"`

	// RequestType labels the call for logs and metrics (e.g. "generate_rubric").
	RequestType string `json:"request_type,omitempty"`
	// TraceID correlates log lines across middleware.
	TraceID string `json:"trace_id,omitempty"`
}

// Validate checks the fields every adapter relies on.
func (r *Request) Validate() error {
	switch {
	case r.Provider == "":
		return fmt.Errorf("%w: provider is required", ErrInvalidRequest)
	case r.Model == "":
		return fmt.Errorf("%w: model is required", ErrInvalidRequest)
	case r.Prompt == "":
		return fmt.Errorf("%w: prompt is required", ErrInvalidRequest)
	case r.MaxTokens <= 0:
		return fmt.Errorf("%w: max_tokens must be positive, got %d", ErrInvalidRequest, r.MaxTokens)
	}
	return nil
}

// Response is the provider-independent result of a generation call.
type Response struct {
	Text         string `json:"text"`
	InputTokens  int64  `json:"input_tokens"`
	OutputTokens int64  `json:"output_tokens"`
	// Model is the model id reported by the provider, which may be more
	// specific than the requested one.
	Model     string `json:"model"`
	Provider  string `json:"provider"`
	RequestID string `json:"request_id,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// TotalTokens returns input plus output tokens.
func (r *Response) TotalTokens() int64 {
	return r.InputTokens + r.OutputTokens
}
