package cost

import (
	"github.com/ahrav/go-grader/internal/domain"
	"github.com/ahrav/go-grader/internal/llm/transport"
)

const tokensPerMillion = 1_000_000

// Calculator prices responses. It is stateless apart from the registry.
type Calculator struct {
	registry *ModelRegistry
}

// NewCalculator returns a calculator backed by registry.
func NewCalculator(registry *ModelRegistry) *Calculator {
	return &Calculator{registry: registry}
}

// GetCost returns the response's cost, rounded half up to a whole micro-USD.
// Unknown or missing models fail with UnknownModelError even when the token
// counts are zero.
func (c *Calculator) GetCost(resp *transport.Response) (domain.MicroUSD, error) {
	model := ""
	if resp != nil {
		model = resp.Model
	}
	entry, err := c.registry.Lookup(model)
	if err != nil {
		return 0, err
	}
	return Price(entry, resp.InputTokens, resp.OutputTokens), nil
}

// Price computes round((in*inPrice + out*outPrice) / 1e6) in integer math.
// Negative token counts are treated as zero.
func Price(entry ModelCostEntry, inputTokens, outputTokens int64) domain.MicroUSD {
	inputTokens = max(inputTokens, 0)
	outputTokens = max(outputTokens, 0)
	if inputTokens == 0 && outputTokens == 0 {
		return 0
	}
	numerator := inputTokens*entry.InputMicrosPerMillion + outputTokens*entry.OutputMicrosPerMillion
	return domain.MicroUSD((numerator + tokensPerMillion/2) / tokensPerMillion)
}
