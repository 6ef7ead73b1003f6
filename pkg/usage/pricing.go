package usage

// ModelPricing is the price in USD per million tokens.
type ModelPricing struct {
	Input      float64 `json:"input"`
	Output     float64 `json:"output"`
	CacheRead  float64 `json:"cacheRead"`
	CacheWrite float64 `json:"cacheWrite"`
}

var pricing = map[string]ModelPricing{
	"claude-opus-4-5-20251101":   {Input: 15.0, Output: 75.0, CacheRead: 1.5, CacheWrite: 18.75},
	"claude-sonnet-4-20250514":   {Input: 3.0, Output: 15.0, CacheRead: 0.3, CacheWrite: 3.75},
	"claude-3-5-sonnet-20241022": {Input: 3.0, Output: 15.0, CacheRead: 0.3, CacheWrite: 3.75},
	"claude-3-5-haiku-20241022":  {Input: 0.8, Output: 4.0, CacheRead: 0.08, CacheWrite: 1.0},
}

// DefaultPricing applies to models missing from the table.
var DefaultPricing = ModelPricing{Input: 3.0, Output: 15.0, CacheRead: 0.3, CacheWrite: 3.75}

func PricingFor(model string) ModelPricing {
	if p, ok := pricing[model]; ok {
		return p
	}
	return DefaultPricing
}

// ModelUsage mirrors one entry of statsCache.json "modelUsage".
type ModelUsage struct {
	InputTokens              int64 `json:"inputTokens"`
	OutputTokens             int64 `json:"outputTokens"`
	CacheReadInputTokens     int64 `json:"cacheReadInputTokens"`
	CacheCreationInputTokens int64 `json:"cacheCreationInputTokens"`
}

func CalculateCost(model string, u ModelUsage) float64 {
	p := PricingFor(model)
	const perMillion = 1_000_000.0
	return float64(u.InputTokens)/perMillion*p.Input +
		float64(u.OutputTokens)/perMillion*p.Output +
		float64(u.CacheReadInputTokens)/perMillion*p.CacheRead +
		float64(u.CacheCreationInputTokens)/perMillion*p.CacheWrite
}

type ModelCost struct {
	Cost             float64 `json:"cost"`
	InputTokens      int64   `json:"inputTokens"`
	OutputTokens     int64   `json:"outputTokens"`
	CacheReadTokens  int64   `json:"cacheReadTokens"`
	CacheWriteTokens int64   `json:"cacheWriteTokens"`
}

type CostSummary struct {
	Total   float64              `json:"total"`
	ByModel map[string]ModelCost `json:"byModel"`
}

func CalculateModelCosts(byModel map[string]ModelUsage) CostSummary {
	summary := CostSummary{ByModel: make(map[string]ModelCost, len(byModel))}
	for model, u := range byModel {
		cost := CalculateCost(model, u)
		summary.ByModel[model] = ModelCost{
			Cost:             cost,
			InputTokens:      u.InputTokens,
			OutputTokens:     u.OutputTokens,
			CacheReadTokens:  u.CacheReadInputTokens,
			CacheWriteTokens: u.CacheCreationInputTokens,
		}
		summary.Total += cost
	}
	return summary
}
