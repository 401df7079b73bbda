package cost

import "github.com/ahrav/go-grader/internal/configuration"

// defaultEntries is the built-in price list in micro-USD per million tokens.
func defaultEntries() []ModelCostEntry {
	return []ModelCostEntry{
		{
			Model: "claude-3-5-haiku-latest", Provider: configuration.ProviderAnthropic,
			InputMicrosPerMillion: 800_000, OutputMicrosPerMillion: 4_000_000,
			ContextWindow: 200_000, DefaultForProvider: true,
		},
		{
			Model: "claude-3-5-haiku-20241022", Provider: configuration.ProviderAnthropic,
			InputMicrosPerMillion: 800_000, OutputMicrosPerMillion: 4_000_000,
			ContextWindow: 200_000,
		},
		{
			Model: "claude-3-7-sonnet-latest", Provider: configuration.ProviderAnthropic,
			InputMicrosPerMillion: 3_000_000, OutputMicrosPerMillion: 15_000_000,
			ContextWindow: 200_000,
		},
		{
			Model: "claude-3-7-sonnet-20250219", Provider: configuration.ProviderAnthropic,
			InputMicrosPerMillion: 3_000_000, OutputMicrosPerMillion: 15_000_000,
			ContextWindow: 200_000,
		},
		{
			Model: "gemini-2.0-flash", Provider: configuration.ProviderGoogle,
			InputMicrosPerMillion: 100_000, OutputMicrosPerMillion: 400_000,
			ContextWindow: 1_048_576, DefaultForProvider: true,
		},
		{
			Model: "gemini-2.0-flash-001", Provider: configuration.ProviderGoogle,
			InputMicrosPerMillion: 100_000, OutputMicrosPerMillion: 400_000,
			ContextWindow: 1_048_576,
		},
		{
			Model: "gemini-2.0-flash-lite", Provider: configuration.ProviderGoogle,
			InputMicrosPerMillion: 75_000, OutputMicrosPerMillion: 300_000,
			ContextWindow: 1_048_576,
		},
	}
}
