// Package configuration holds the runtime settings of the grader: provider
// credentials, resilience policies, storage, broadcasting and the Temporal
// worker. Settings load from YAML with environment overrides for secrets.
package configuration

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is the root configuration document.
type Config struct {
	LLM            LLMConfig            `yaml:"llm"             json:"llm"`
	Retry          RetryConfig          `yaml:"retry"           json:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"      json:"rate_limit"`
	Storage        StorageConfig        `yaml:"storage"         json:"storage"`
	Broadcast      BroadcastConfig      `yaml:"broadcast"       json:"broadcast"`
	Observability  ObservabilityConfig  `yaml:"observability"   json:"observability"`
	Temporal       TemporalConfig       `yaml:"temporal"        json:"temporal"`

	// Models overrides or extends the built-in model cost registry.
	Models []ModelConfig `yaml:"models" json:"models" validate:"dive"`
}

// LLMConfig selects the provider and generation parameters used by every pipeline.
type LLMConfig struct {
	Provider string `yaml:"provider" json:"provider" validate:"required,oneof=anthropic google"`
	// Model is optional; the registry's default model for Provider is used when empty.
	Model       string                    `yaml:"model"        json:"model"`
	MaxTokens   int                       `yaml:"max_tokens"   json:"max_tokens"   validate:"gt=0"`
	Temperature float64                   `yaml:"temperature"  json:"temperature"  validate:"gte=0,lte=2"`
	HTTPTimeout time.Duration             `yaml:"http_timeout" json:"http_timeout" validate:"gt=0"`
	Providers   map[string]ProviderConfig `yaml:"providers"    json:"providers"    validate:"dive"`
}

// ProviderConfig holds connection settings for one provider.
type ProviderConfig struct {
	APIKey   string            `yaml:"api_key"  json:"-"`
	Endpoint string            `yaml:"endpoint" json:"endpoint" validate:"omitempty,url"`
	Headers  map[string]string `yaml:"headers"  json:"headers,omitempty"`
}

// RetryConfig configures retries of transient provider errors.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries" json:"max_retries" validate:"gte=0,lte=10"`
	BaseDelay  time.Duration `yaml:"base_delay"  json:"base_delay"  validate:"gt=0"`
	MaxDelay   time.Duration `yaml:"max_delay"   json:"max_delay"   validate:"gtefield=BaseDelay"`
}

// CircuitBreakerConfig configures the per-provider breakers.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" json:"failure_threshold" validate:"gt=0"`
	ResetTimeout     time.Duration `yaml:"reset_timeout"     json:"reset_timeout"     validate:"gt=0"`
}

// RateLimitConfig configures the local token bucket applied to each attempt.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"             json:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second" validate:"gte=0"`
	Burst             int     `yaml:"burst"               json:"burst"               validate:"gte=0"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver string `yaml:"driver" json:"driver" validate:"required,oneof=sqlite postgres memory"`
	DSN    string `yaml:"dsn"    json:"-"      validate:"required_unless=Driver memory"`
}

// BroadcastConfig configures progress publication.
type BroadcastConfig struct {
	Enabled       bool   `yaml:"enabled"        json:"enabled"`
	RedisAddr     string `yaml:"redis_addr"     json:"redis_addr"     validate:"required_if=Enabled true"`
	RedisDB       int    `yaml:"redis_db"       json:"redis_db"       validate:"gte=0"`
	ChannelPrefix string `yaml:"channel_prefix" json:"channel_prefix"`
}

// ObservabilityConfig configures logging and the metrics endpoint.
type ObservabilityConfig struct {
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	LogLevel    string `yaml:"log_level"    json:"log_level"  validate:"omitempty,oneof=debug info warn error"`
	LogFormat   string `yaml:"log_format"   json:"log_format" validate:"omitempty,oneof=json text"`
}

// TemporalConfig configures the optional Temporal worker.
type TemporalConfig struct {
	HostPort        string        `yaml:"host_port"        json:"host_port"`
	Namespace       string        `yaml:"namespace"        json:"namespace"`
	TaskQueue       string        `yaml:"task_queue"       json:"task_queue"`
	ActivityTimeout time.Duration `yaml:"activity_timeout" json:"activity_timeout" validate:"gte=0"`
}

// ModelConfig describes a model's pricing in USD per million tokens.
type ModelConfig struct {
	Model               string  `yaml:"model"                  json:"model"                  validate:"required"`
	Provider            string  `yaml:"provider"               json:"provider"               validate:"required"`
	InputUSDPerMillion  float64 `yaml:"input_usd_per_million"  json:"input_usd_per_million"  validate:"gte=0"`
	OutputUSDPerMillion float64 `yaml:"output_usd_per_million" json:"output_usd_per_million" validate:"gte=0"`
	ContextWindow       int     `yaml:"context_window"         json:"context_window"         validate:"gte=0"`
	Default             bool    `yaml:"default"                json:"default"`
}

// Validate checks the configuration document.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// ProviderSettings returns the settings for name, or a zero value.
func (c *Config) ProviderSettings(name string) ProviderConfig {
	return c.LLM.Providers[name]
}
