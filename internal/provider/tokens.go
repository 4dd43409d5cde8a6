package provider

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// genericEncoding is used when tiktoken does not know the model.
const genericEncoding = "cl100k_base"

func init() {
	// Serve BPE ranks from the embedded loader so counting never downloads.
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// EstimateTokens is the universal heuristic: one token per four characters,
// rounded down.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// countTokens runs primary and falls back to EstimateTokens when primary is
// nil, fails, or returns a negative count.
func countTokens(primary func(string) (int, error), text string) int {
	if primary == nil {
		return EstimateTokens(text)
	}
	n, err := primary(text)
	if err != nil || n < 0 {
		return EstimateTokens(text)
	}
	return n
}

// encodingName returns the tiktoken encoding for model: an exact match, then
// the longest known prefix (dated snapshots such as gpt-4o-2024-05-13), then
// the generic encoding.
func encodingName(model string) string {
	if name, ok := tiktoken.MODEL_TO_ENCODING[model]; ok {
		return name
	}
	best := ""
	for prefix := range tiktoken.MODEL_PREFIX_TO_ENCODING {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best != "" {
		return tiktoken.MODEL_PREFIX_TO_ENCODING[best]
	}
	return genericEncoding
}

// newEncoding loads the encoding chosen by encodingName. A load failure is
// returned rather than papered over with another encoding; callers fall back
// to the heuristic.
func newEncoding(model string) (*tiktoken.Tiktoken, string, error) {
	name := encodingName(model)
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, name, fmt.Errorf("failed to load %s encoding: %w", name, err)
	}
	return enc, name, nil
}
