package provider

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"

	"github.com/maximbilan/hivecouncil/internal/catalog"
)

// Provider is a single LLM backend behind a uniform streaming interface.
// Implementations are safe for concurrent use; each StreamCompletion call is
// independent.
type Provider interface {
	// Name returns the backend identifier (e.g. "openai").
	Name() string

	// Model returns the model this instance sends requests to.
	Model() string

	// DefaultModel returns the catalog default model for the backend,
	// independent of Model.
	DefaultModel() string

	// StreamCompletion returns a lazy, single-use sequence of text fragments.
	// Nothing is sent until the sequence is ranged over. A failure is yielded
	// once as a non-nil error and ends the sequence. Breaking out of the loop
	// releases the underlying connection.
	StreamCompletion(ctx context.Context, req Request) iter.Seq2[string, error]

	// CountTokens estimates the number of tokens in text. It never fails.
	CountTokens(text string) int

	// Pricing returns the USD price per million input/output tokens for Model.
	Pricing() catalog.Pricing
}

// Request is a single completion request.
type Request struct {
	Prompt       string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int

	// ImageData is an optional image (base64 payload, data URL or http URL).
	// Only OpenAI-compatible third-party backends forward it.
	ImageData string
}

var (
	// ErrNotConfigured is returned by the registry for a backend that has no
	// provider instance.
	ErrNotConfigured = errors.New("provider not found or not configured")
)

// StreamError is a transport or backend failure during a streaming call.
type StreamError struct {
	Provider string
	Err      error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s API error: %v", e.Provider, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// Option configures a provider at construction time.
type Option func(*options)

type options struct {
	model      string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// WithModel selects a model other than the catalog default.
func WithModel(model string) Option {
	return func(o *options) {
		if model != "" {
			o.model = model
		}
	}
}

// WithBaseURL overrides the backend endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) {
		if url != "" {
			o.baseURL = url
		}
	}
}

// WithHTTPClient sets the HTTP client used for backend calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger sets the logger used for stream lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(name string, opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.model == "" {
		o.model = catalog.DefaultModel(name)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// pricingFor looks up name/model in the catalog and falls back to the
// backend's documented default pair on a miss.
func pricingFor(name, model string, fallback catalog.Pricing) catalog.Pricing {
	if p, ok := catalog.Price(name, model); ok {
		return p
	}
	return fallback
}
