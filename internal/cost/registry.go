// Package cost prices LLM responses from a static model registry and writes
// one usage record per successful call.
package cost

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ahrav/go-grader/internal/configuration"
	llmerrors "github.com/ahrav/go-grader/internal/llm/errors"
)

var (
	// ErrNoDefaultModel indicates a provider without a default model.
	ErrNoDefaultModel = errors.New("provider has no default model")
	// ErrMultipleDefaultModels indicates a provider with more than one default model.
	ErrMultipleDefaultModels = errors.New("provider has more than one default model")
	// ErrInvalidEntry indicates a malformed registry entry.
	ErrInvalidEntry = errors.New("invalid model cost entry")
)

// ModelCostEntry prices one model. Prices are integer micro-USD per million
// tokens, so $0.80 per million tokens is stored as 800_000.
type ModelCostEntry struct {
	Model                  string `json:"model"`
	Provider               string `json:"provider"`
	InputMicrosPerMillion  int64  `json:"input_micros_per_million"`
	OutputMicrosPerMillion int64  `json:"output_micros_per_million"`
	ContextWindow          int    `json:"context_window"`
	DefaultForProvider     bool   `json:"default_for_provider"`
}

// USDPerMillionToMicros converts a decimal USD price to integer micro-USD.
func USDPerMillionToMicros(usd float64) int64 {
	return int64(math.Round(usd * 1_000_000))
}

// ModelRegistry is a read-mostly table of model prices.
type ModelRegistry struct {
	mu      sync.RWMutex
	entries map[string]ModelCostEntry
}

// NewModelRegistry builds a registry from entries and validates that every
// provider has exactly one default model.
func NewModelRegistry(entries []ModelCostEntry) (*ModelRegistry, error) {
	r := &ModelRegistry{entries: make(map[string]ModelCostEntry, len(entries))}
	for _, e := range entries {
		if e.Model == "" || e.Provider == "" || e.InputMicrosPerMillion < 0 || e.OutputMicrosPerMillion < 0 {
			return nil, fmt.Errorf("%w: %+v", ErrInvalidEntry, e)
		}
		r.entries[e.Model] = e
	}
	if err := r.validateDefaults(); err != nil {
		return nil, err
	}
	return r, nil
}

// NewDefaultRegistry returns the built-in registry with overrides applied.
// An override replaces the built-in entry for the same model; an override
// marked default demotes the provider's built-in default.
func NewDefaultRegistry(overrides []configuration.ModelConfig) (*ModelRegistry, error) {
	entries := make(map[string]ModelCostEntry)
	for _, e := range defaultEntries() {
		entries[e.Model] = e
	}

	for _, o := range overrides {
		if o.Default {
			for name, e := range entries {
				if e.Provider == o.Provider && e.DefaultForProvider {
					e.DefaultForProvider = false
					entries[name] = e
				}
			}
		}
		entries[o.Model] = ModelCostEntry{
			Model:                  o.Model,
			Provider:               o.Provider,
			InputMicrosPerMillion:  USDPerMillionToMicros(o.InputUSDPerMillion),
			OutputMicrosPerMillion: USDPerMillionToMicros(o.OutputUSDPerMillion),
			ContextWindow:          o.ContextWindow,
			DefaultForProvider:     o.Default,
		}
	}

	list := make([]ModelCostEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	return NewModelRegistry(list)
}

func (r *ModelRegistry) validateDefaults() error {
	defaults := make(map[string]int)
	for _, e := range r.entries {
		if _, ok := defaults[e.Provider]; !ok {
			defaults[e.Provider] = 0
		}
		if e.DefaultForProvider {
			defaults[e.Provider]++
		}
	}
	for provider, n := range defaults {
		switch {
		case n == 0:
			return fmt.Errorf("%w: %s", ErrNoDefaultModel, provider)
		case n > 1:
			return fmt.Errorf("%w: %s", ErrMultipleDefaultModels, provider)
		}
	}
	return nil
}

// Lookup returns the entry for model.
func (r *ModelRegistry) Lookup(model string) (ModelCostEntry, error) {
	if model == "" {
		return ModelCostEntry{}, &llmerrors.UnknownModelError{}
	}
	r.mu.RLock()
	e, ok := r.entries[model]
	r.mu.RUnlock()
	if !ok {
		return ModelCostEntry{}, &llmerrors.UnknownModelError{Model: model}
	}
	return e, nil
}

// ProviderFor returns the provider that serves model.
func (r *ModelRegistry) ProviderFor(model string) (string, error) {
	e, err := r.Lookup(model)
	if err != nil {
		return "", err
	}
	return e.Provider, nil
}

// DefaultModel returns the default model for provider.
func (r *ModelRegistry) DefaultModel(provider string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Provider == provider && e.DefaultForProvider {
			return e.Model, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoDefaultModel, provider)
}

// Entries returns all entries sorted by provider then model.
func (r *ModelRegistry) Entries() []ModelCostEntry {
	r.mu.RLock()
	out := make([]ModelCostEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Model < out[j].Model
	})
	return out
}
