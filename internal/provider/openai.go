package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math"
	"sync"

	"github.com/maximbilan/hivecouncil/internal/catalog"
	"github.com/maximbilan/hivecouncil/internal/validation"
	"github.com/pkoukk/tiktoken-go"
	"github.com/sashabaranov/go-openai"
)

// openAIFallbackPricing is used for models missing from the pricing table
// (gpt-4o list price).
var openAIFallbackPricing = catalog.Pricing{Input: 5.0, Output: 15.0}

// OpenAIProvider implements Provider using OpenAI's API
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	logger  *slog.Logger
	encoder func() (*tiktoken.Tiktoken, error)
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(apiKey string, opts ...Option) (*OpenAIProvider, error) {
	if err := validation.ValidateAPIKey(apiKey); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	o := buildOptions("openai", opts)

	p := &OpenAIProvider{
		client: newOpenAIClient(apiKey, o),
		model:  o.model,
		logger: o.logger,
	}
	p.encoder = sync.OnceValues(func() (*tiktoken.Tiktoken, error) {
		enc, name, err := newEncoding(p.model)
		if err != nil {
			p.logger.Warn("tokenizer unavailable, estimating tokens", "model", p.model, "encoding", name, "error", err)
		}
		return enc, err
	})
	return p, nil
}

func newOpenAIClient(apiKey string, o options) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.httpClient != nil {
		cfg.HTTPClient = o.httpClient
	}
	return openai.NewClientWithConfig(cfg)
}

func (p *OpenAIProvider) Name() string         { return "openai" }
func (p *OpenAIProvider) Model() string        { return p.model }
func (p *OpenAIProvider) DefaultModel() string { return catalog.DefaultModel("openai") }

// StreamCompletion streams a chat completion response
func (p *OpenAIProvider) StreamCompletion(ctx context.Context, req Request) iter.Seq2[string, error] {
	return runStream(ctx, p.Name(), p.model, p.logger, req, func(ctx context.Context, emit emitFunc) error {
		return streamChat(ctx, p.client, p.model, chatMessages(req, false), req, emit)
	})
}

// CountTokens counts tokens with the model's tiktoken encoding.
func (p *OpenAIProvider) CountTokens(text string) int {
	return countTokens(p.encode, text)
}

func (p *OpenAIProvider) encode(text string) (n int, err error) {
	enc, err := p.encoder()
	if err != nil {
		return 0, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tokenizer panic: %v", r)
		}
	}()
	return len(enc.Encode(text, nil, nil)), nil
}

// Pricing returns the per-million token pricing for the current model.
func (p *OpenAIProvider) Pricing() catalog.Pricing {
	return pricingFor(p.Name(), p.model, openAIFallbackPricing)
}

// chatMessages builds the role-tagged message list shared by OpenAI and
// OpenAI-compatible backends.
func chatMessages(req Request, withImage bool) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}

	if withImage && req.ImageData != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    imageURL(req.ImageData),
						Detail: openai.ImageURLDetailAuto,
					},
				},
			},
		})
		return messages
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})
	return messages
}

// wireTemperature converts t for the request. go-openai omits a zero
// temperature, so 0 is sent as the smallest positive float32.
func wireTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// streamChat runs a streaming chat completion and emits each non-empty
// content delta. The stream is closed on every return path.
func streamChat(ctx context.Context, client *openai.Client, model string, messages []openai.ChatCompletionMessage, req Request, emit emitFunc) error {
	stream, err := client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: wireTemperature(req.Temperature),
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}
	defer stream.Close()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		response, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("context cancelled: %w", ctx.Err())
			}
			return fmt.Errorf("stream receive error: %w", err)
		}

		if len(response.Choices) == 0 {
			continue
		}
		if !emit(response.Choices[0].Delta.Content) {
			return nil
		}
	}
}
