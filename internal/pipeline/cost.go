package pipeline

import "fmt"

// CostParams are per-article token averages and per-million-token prices.
type CostParams struct {
	InputTokensPerArticle  int
	OutputTokensPerArticle int
	InputCostPerMillion    float64
	OutputCostPerMillion   float64
}

func DefaultCostParams() CostParams {
	return CostParams{
		InputTokensPerArticle:  900,
		OutputTokensPerArticle: 140,
		InputCostPerMillion:    6.0,
		OutputCostPerMillion:   30.0,
	}
}

// EstimateInferenceCostUSD estimates what judging count articles costs.
func EstimateInferenceCostUSD(count int, p CostParams) (float64, error) {
	switch {
	case count < 0:
		return 0, fmt.Errorf("article count must be >= 0, got %d", count)
	case p.InputTokensPerArticle < 0 || p.OutputTokensPerArticle < 0:
		return 0, fmt.Errorf("token averages must be >= 0")
	case p.InputCostPerMillion < 0 || p.OutputCostPerMillion < 0:
		return 0, fmt.Errorf("token prices must be >= 0")
	}

	input := float64(count*p.InputTokensPerArticle) * p.InputCostPerMillion / 1_000_000
	output := float64(count*p.OutputTokensPerArticle) * p.OutputCostPerMillion / 1_000_000
	return input + output, nil
}
