package configuration

import "time"

// Provider identifiers.
const (
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// HTTP and generation defaults.
const (
	DefaultHTTPTimeout = 120 * time.Second
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7
)

// Retry and circuit breaker defaults.
const (
	DefaultMaxRetries       = 3
	DefaultBaseDelay        = 1 * time.Second
	DefaultMaxDelay         = 30 * time.Second
	DefaultFailureThreshold = 5
	DefaultResetTimeout     = 30 * time.Second
)

// Rate limiting defaults.
const (
	DefaultRequestsPerSecond = 5
	DefaultBurst             = 10
)

// Infrastructure defaults.
const (
	DefaultStorageDriver   = "sqlite"
	DefaultSQLiteDSN       = "file:grader.db?_pragma=foreign_keys(1)"
	DefaultChannelPrefix   = "grader"
	DefaultMetricsAddr     = ":9090"
	DefaultTemporalHost    = "localhost:7233"
	DefaultNamespace       = "default"
	DefaultTaskQueue       = "grader"
	DefaultActivityTimeout = 30 * time.Minute
)

// DefaultConfig returns a configuration that runs locally against SQLite
// with broadcasting disabled. API keys still have to be supplied.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderAnthropic,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
			HTTPTimeout: DefaultHTTPTimeout,
			Providers: map[string]ProviderConfig{
				ProviderAnthropic: {},
				ProviderGoogle:    {},
			},
		},
		Retry: RetryConfig{
			MaxRetries: DefaultMaxRetries,
			BaseDelay:  DefaultBaseDelay,
			MaxDelay:   DefaultMaxDelay,
		},
		CircuitBreaker: CircuitBreakerConfig{
			FailureThreshold: DefaultFailureThreshold,
			ResetTimeout:     DefaultResetTimeout,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultBurst,
		},
		Storage: StorageConfig{
			Driver: DefaultStorageDriver,
			DSN:    DefaultSQLiteDSN,
		},
		Broadcast: BroadcastConfig{
			ChannelPrefix: DefaultChannelPrefix,
		},
		Observability: ObservabilityConfig{
			MetricsAddr: DefaultMetricsAddr,
			LogLevel:    "info",
			LogFormat:   "json",
		},
		Temporal: TemporalConfig{
			HostPort:        DefaultTemporalHost,
			Namespace:       DefaultNamespace,
			TaskQueue:       DefaultTaskQueue,
			ActivityTimeout: DefaultActivityTimeout,
		},
	}
}
