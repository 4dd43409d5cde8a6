// Package cost turns token counts and a per-million pricing pair into a USD
// estimate.
package cost

import (
	"fmt"

	"github.com/maximbilan/hivecouncil/internal/catalog"
	"github.com/maximbilan/hivecouncil/internal/provider"
)

const perMillion = 1_000_000

// Estimate is the estimated cost of one prompt/response exchange.
type Estimate struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	InputCost    float64 `json:"input_cost"`
	OutputCost   float64 `json:"output_cost"`
	Total        float64 `json:"total"`
}

// For estimates the cost of sending prompt to p and receiving output, using
// the provider's own token counter and pricing for its current model.
func For(p provider.Provider, prompt, output string) Estimate {
	return Compute(p.CountTokens(prompt), p.CountTokens(output), p.Pricing())
}

// Compute prices the given token counts. Negative counts are treated as zero.
func Compute(inputTokens, outputTokens int, pricing catalog.Pricing) Estimate {
	inputTokens = max(inputTokens, 0)
	outputTokens = max(outputTokens, 0)

	inputCost := float64(inputTokens) / perMillion * pricing.Input
	outputCost := float64(outputTokens) / perMillion * pricing.Output
	return Estimate{
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		InputCost:    inputCost,
		OutputCost:   outputCost,
		Total:        inputCost + outputCost,
	}
}

// String formats the estimate for terminal output.
func (e Estimate) String() string {
	return fmt.Sprintf("%d in / %d out tokens, $%.6f", e.InputTokens, e.OutputTokens, e.Total)
}
