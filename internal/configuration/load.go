package configuration

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvAnthropicAPIKey = "ANTHROPIC_API_KEY"
	EnvGoogleAPIKey    = "GOOGLE_API_KEY"
	EnvDatabaseURL     = "GRADER_DATABASE_URL"
	EnvRedisAddr       = "GRADER_REDIS_ADDR"
	EnvTemporalHost    = "TEMPORAL_HOSTPORT"
)

// Load reads the YAML file at path on top of DefaultConfig, applies
// environment overrides and validates the result. An empty path loads the
// defaults only.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	ApplyEnv(cfg, os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays secrets and endpoints from the environment.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if cfg.LLM.Providers == nil {
		cfg.LLM.Providers = make(map[string]ProviderConfig)
	}
	setKey := func(provider, env string) {
		if v, ok := lookup(env); ok && v != "" {
			pc := cfg.LLM.Providers[provider]
			pc.APIKey = v
			cfg.LLM.Providers[provider] = pc
		}
	}
	setKey(ProviderAnthropic, EnvAnthropicAPIKey)
	setKey(ProviderGoogle, EnvGoogleAPIKey)

	if v, ok := lookup(EnvDatabaseURL); ok && v != "" {
		cfg.Storage.DSN = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		cfg.Broadcast.RedisAddr = v
		cfg.Broadcast.Enabled = true
	}
	if v, ok := lookup(EnvTemporalHost); ok && v != "" {
		cfg.Temporal.HostPort = v
	}
}
