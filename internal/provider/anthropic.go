package provider

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/maximbilan/hivecouncil/internal/catalog"
	"github.com/maximbilan/hivecouncil/internal/validation"
)

// anthropicDefaultMaxTokens is sent when the request leaves MaxTokens unset;
// the Messages API requires the field.
const anthropicDefaultMaxTokens = 2000

// anthropicFallbackPricing is used for models missing from the pricing table
// (Sonnet list price).
var anthropicFallbackPricing = catalog.Pricing{Input: 3.0, Output: 15.0}

// AnthropicProvider implements Provider using Anthropic's API
type AnthropicProvider struct {
	client anthropic.Client
	model  string
	logger *slog.Logger
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(apiKey string, opts ...Option) (*AnthropicProvider, error) {
	if err := validation.ValidateAPIKey(apiKey); err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	o := buildOptions("anthropic", opts)

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries belong to the caller.
		option.WithMaxRetries(0),
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(o.httpClient))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(clientOpts...),
		model:  o.model,
		logger: o.logger,
	}, nil
}

func (p *AnthropicProvider) Name() string         { return "anthropic" }
func (p *AnthropicProvider) Model() string        { return p.model }
func (p *AnthropicProvider) DefaultModel() string { return catalog.DefaultModel("anthropic") }

// StreamCompletion streams a message response. The system prompt travels in
// the top-level system field; only the user turn is sent as a message.
func (p *AnthropicProvider) StreamCompletion(ctx context.Context, req Request) iter.Seq2[string, error] {
	return runStream(ctx, p.Name(), p.model, p.logger, req, func(ctx context.Context, emit emitFunc) error {
		return p.stream(ctx, req, emit)
	})
}

func (p *AnthropicProvider) newParams(req Request) anthropic.MessageNewParams {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	// The API rejects empty text blocks, so no system prompt means no field.
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	return params
}

func (p *AnthropicProvider) stream(ctx context.Context, req Request, emit emitFunc) error {
	stream := p.client.Messages.NewStreaming(ctx, p.newParams(req))
	defer stream.Close()

	for stream.Next() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		event := stream.Current()
		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if !emit(deltaVariant.Text) {
					return nil
				}
			}
		}
	}

	if ctx.Err() != nil {
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("stream error: %w", err)
	}
	return nil
}

// CountTokens estimates tokens with the character heuristic; no native
// tokenizer is wired for Anthropic models.
func (p *AnthropicProvider) CountTokens(text string) int {
	return countTokens(nil, text)
}

// Pricing returns the per-million token pricing for the current model.
func (p *AnthropicProvider) Pricing() catalog.Pricing {
	return pricingFor(p.Name(), p.model, anthropicFallbackPricing)
}
