// Package providers adapts the normalized transport request to each LLM
// provider's HTTP API and classifies provider failures.
package providers

import (
	"fmt"

	"github.com/ahrav/go-grader/internal/configuration"
	llmerrors "github.com/ahrav/go-grader/internal/llm/errors"
	"github.com/ahrav/go-grader/internal/llm/transport"
)

// Supported LLM provider identifiers.
const (
	ProviderAnthropic = configuration.ProviderAnthropic
	ProviderGoogle    = configuration.ProviderGoogle
)

// NewRouter creates a router with one adapter per configured provider.
func NewRouter(configs map[string]configuration.ProviderConfig) (transport.Router, error) {
	adapters := make(map[string]transport.ProviderAdapter, len(configs))

	for name, cfg := range configs {
		var adapter transport.ProviderAdapter
		switch name {
		case ProviderAnthropic:
			adapter = NewAnthropicAdapter(cfg)
		case ProviderGoogle:
			adapter = NewGoogleAdapter(cfg)
		default:
			return nil, fmt.Errorf("%w: %s", llmerrors.ErrUnknownProvider, name)
		}
		adapters[name] = adapter
	}

	return &router{adapters: adapters}, nil
}

type router struct {
	adapters map[string]transport.ProviderAdapter
}

// Pick returns the adapter for provider.
func (r *router) Pick(provider string) (transport.ProviderAdapter, error) {
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", llmerrors.ErrUnknownProvider, provider)
	}
	return adapter, nil
}
