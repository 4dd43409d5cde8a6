package provider

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/maximbilan/hivecouncil/internal/catalog"
	"github.com/maximbilan/hivecouncil/internal/validation"
	"github.com/sashabaranov/go-openai"
)

// localPlaceholderKey is sent to local servers that ignore authentication.
const localPlaceholderKey = "ollama"

var (
	compatibleFallbackPricing = catalog.Pricing{Input: 5.0, Output: 15.0}
	localFallbackPricing      = catalog.Pricing{}
)

// CompatibleProvider implements Provider for third-party backends that speak
// the OpenAI chat completions protocol under their own base URL (xAI Grok,
// Google Gemini, a local Ollama server).
type CompatibleProvider struct {
	name   string
	client *openai.Client
	model  string
	local  bool
	logger *slog.Logger
}

// NewCompatibleProvider creates a provider for the catalog backend name.
// The API key may be empty only for backends that do not require one.
func NewCompatibleProvider(name, apiKey string, opts ...Option) (*CompatibleProvider, error) {
	entry, ok := catalog.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%s: unknown backend", name)
	}

	if apiKey == "" && !entry.RequiresKey {
		apiKey = localPlaceholderKey
	}
	if err := validation.ValidateAPIKey(apiKey); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	o := buildOptions(name, opts)
	if o.baseURL == "" {
		o.baseURL = entry.BaseURL
	}
	if o.baseURL == "" {
		return nil, fmt.Errorf("%s: no base URL configured", name)
	}

	return &CompatibleProvider{
		name:   name,
		client: newOpenAIClient(apiKey, o),
		model:  o.model,
		local:  !entry.RequiresKey,
		logger: o.logger,
	}, nil
}

func (p *CompatibleProvider) Name() string         { return p.name }
func (p *CompatibleProvider) Model() string        { return p.model }
func (p *CompatibleProvider) DefaultModel() string { return catalog.DefaultModel(p.name) }

// StreamCompletion streams a chat completion. ImageData, when set, is sent
// as an extra image part of the user message.
func (p *CompatibleProvider) StreamCompletion(ctx context.Context, req Request) iter.Seq2[string, error] {
	return runStream(ctx, p.name, p.model, p.logger, req, func(ctx context.Context, emit emitFunc) error {
		return streamChat(ctx, p.client, p.model, chatMessages(req, true), req, emit)
	})
}

// CountTokens estimates tokens with the character heuristic.
func (p *CompatibleProvider) CountTokens(text string) int {
	return countTokens(nil, text)
}

// Pricing returns the per-million token pricing for the current model.
// Local backends fall back to zero cost.
func (p *CompatibleProvider) Pricing() catalog.Pricing {
	if p.local {
		return pricingFor(p.name, p.model, localFallbackPricing)
	}
	return pricingFor(p.name, p.model, compatibleFallbackPricing)
}

// imageURL turns raw base64 image data into a data URL; URLs pass through.
func imageURL(data string) string {
	if strings.HasPrefix(data, "data:") || strings.HasPrefix(data, "http://") || strings.HasPrefix(data, "https://") {
		return data
	}
	return "data:image/jpeg;base64," + data
}
