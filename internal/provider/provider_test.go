package provider

import (
	"errors"
	"strings"
	"testing"

	"github.com/maximbilan/hivecouncil/internal/catalog"
	"github.com/maximbilan/hivecouncil/internal/validation"
)

func TestProviderInterface(t *testing.T) {
	t.Run("OpenAIProvider implements Provider", func(t *testing.T) {
		var _ Provider = (*OpenAIProvider)(nil)
	})

	t.Run("AnthropicProvider implements Provider", func(t *testing.T) {
		var _ Provider = (*AnthropicProvider)(nil)
	})

	t.Run("CompatibleProvider implements Provider", func(t *testing.T) {
		var _ Provider = (*CompatibleProvider)(nil)
	})

	t.Run("MockProvider implements Provider", func(t *testing.T) {
		var _ Provider = (*MockProvider)(nil)
	})
}

func TestNewOpenAIProvider(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		wantErr bool
	}{
		{
			name:    "valid API key",
			apiKey:  "sk-test1234567890123456789012345678901234567890",
			wantErr: false,
		},
		{
			name:    "empty API key",
			apiKey:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewOpenAIProvider(tt.apiKey)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewOpenAIProvider() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && !errors.Is(err, validation.ErrMissingAPIKey) {
				t.Errorf("NewOpenAIProvider() error = %v, want ErrMissingAPIKey", err)
			}
			if !tt.wantErr && provider == nil {
				t.Error("NewOpenAIProvider() returned nil provider without error")
			}
		})
	}
}

func TestNewAnthropicProvider(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		wantErr bool
	}{
		{
			name:    "valid API key",
			apiKey:  "sk-ant-REDACTED",
			wantErr: false,
		},
		{
			name:    "empty API key",
			apiKey:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewAnthropicProvider(tt.apiKey)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewAnthropicProvider() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && provider == nil {
				t.Error("NewAnthropicProvider() returned nil provider without error")
			}
		})
	}
}

func TestNewCompatibleProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		apiKey   string
		opts     []Option
		wantErr  bool
	}{
		{name: "grok with key", provider: "grok", apiKey: "xai-test"},
		{name: "google with key", provider: "google", apiKey: "g-test"},
		{name: "grok without key", provider: "grok", apiKey: "", wantErr: true},
		{name: "ollama without key", provider: "ollama", apiKey: ""},
		{name: "unknown backend", provider: "nope", apiKey: "k", wantErr: true},
		{name: "base url override", provider: "grok", apiKey: "k", opts: []Option{WithBaseURL("http://127.0.0.1:1/v1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewCompatibleProvider(tt.provider, tt.apiKey, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewCompatibleProvider(%q) error = %v, wantErr %v", tt.provider, err, tt.wantErr)
			}
			if !tt.wantErr && p.Name() != tt.provider {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.provider)
			}
		})
	}
}

func newAll(t *testing.T, opts ...Option) []Provider {
	t.Helper()
	openaiP, err := NewOpenAIProvider("sk-test", opts...)
	if err != nil {
		t.Fatal(err)
	}
	anthropicP, err := NewAnthropicProvider("sk-ant-test", opts...)
	if err != nil {
		t.Fatal(err)
	}
	out := []Provider{openaiP, anthropicP}
	for _, name := range []string{"google", "grok", "ollama"} {
		p, err := NewCompatibleProvider(name, "key", opts...)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, p)
	}
	return out
}

func TestDefaultModelMatchesCatalog(t *testing.T) {
	for _, p := range newAll(t) {
		entry, ok := catalog.Lookup(p.Name())
		if !ok {
			t.Fatalf("%s missing from catalog", p.Name())
		}
		if p.DefaultModel() != entry.DefaultModel {
			t.Errorf("%s: DefaultModel() = %q, want %q", p.Name(), p.DefaultModel(), entry.DefaultModel)
		}
		if p.Model() != entry.DefaultModel {
			t.Errorf("%s: Model() = %q, want catalog default %q", p.Name(), p.Model(), entry.DefaultModel)
		}
	}
}

func TestDefaultModelIgnoresOverride(t *testing.T) {
	for _, p := range newAll(t, WithModel("custom-model")) {
		if p.Model() != "custom-model" {
			t.Errorf("%s: Model() = %q, want custom-model", p.Name(), p.Model())
		}
		if p.DefaultModel() != catalog.DefaultModel(p.Name()) {
			t.Errorf("%s: DefaultModel() = %q, want catalog default", p.Name(), p.DefaultModel())
		}
	}
}

func TestPricing(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     catalog.Pricing
	}{
		{name: "openai known", provider: "openai", model: "gpt-4o-mini", want: catalog.Pricing{Input: 0.15, Output: 0.60}},
		{name: "openai unknown", provider: "openai", model: "gpt-unknown", want: catalog.Pricing{Input: 5.0, Output: 15.0}},
		{name: "anthropic known", provider: "anthropic", model: "claude-3-5-haiku-20241022", want: catalog.Pricing{Input: 0.80, Output: 4.0}},
		{name: "anthropic unknown", provider: "anthropic", model: "claude-unknown", want: catalog.Pricing{Input: 3.0, Output: 15.0}},
		{name: "grok known", provider: "grok", model: "grok-3", want: catalog.Pricing{Input: 3.0, Output: 15.0}},
		{name: "grok unknown", provider: "grok", model: "grok-unknown", want: catalog.Pricing{Input: 5.0, Output: 15.0}},
		{name: "google unknown", provider: "google", model: "gemini-unknown", want: catalog.Pricing{Input: 5.0, Output: 15.0}},
		{name: "ollama unknown is free", provider: "ollama", model: "phi3", want: catalog.Pricing{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newProvider(tt.provider, "key", []Option{WithModel(tt.model)})
			if err != nil {
				t.Fatalf("newProvider() error = %v", err)
			}
			if got := p.Pricing(); got != tt.want {
				t.Errorf("Pricing() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPricingMatchesTableForEveryCatalogModel(t *testing.T) {
	for _, entry := range catalog.All() {
		for _, model := range entry.AvailableModels {
			want, ok := catalog.Price(entry.Name, model)
			if !ok {
				continue
			}
			p, err := newProvider(entry.Name, "key", []Option{WithModel(model)})
			if err != nil {
				t.Fatalf("newProvider(%s) error = %v", entry.Name, err)
			}
			if got := p.Pricing(); got != want {
				t.Errorf("%s/%s: Pricing() = %+v, want %+v", entry.Name, model, got, want)
			}
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{text: "", want: 0},
		{text: "abc", want: 0},
		{text: "abcd", want: 1},
		{text: "hello world", want: 2},
		{text: strings.Repeat("x", 4001), want: 1000},
		{text: "héllo wörld!", want: 3},
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestCountTokensFallback(t *testing.T) {
	text := "the quick brown fox jumps"

	tests := []struct {
		name    string
		primary func(string) (int, error)
		want    int
	}{
		{name: "no primary", primary: nil, want: EstimateTokens(text)},
		{name: "primary succeeds", primary: func(string) (int, error) { return 42, nil }, want: 42},
		{name: "primary fails", primary: func(string) (int, error) { return 0, errors.New("boom") }, want: EstimateTokens(text)},
		{name: "primary negative", primary: func(string) (int, error) { return -1, nil }, want: EstimateTokens(text)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := countTokens(tt.primary, text); got != tt.want {
				t.Errorf("countTokens() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHeuristicBackendsCountTokens(t *testing.T) {
	text := "Count me with the character heuristic, please."
	for _, p := range newAll(t) {
		if p.Name() == "openai" {
			continue
		}
		if got, want := p.CountTokens(text), len(text)/4; got != want {
			t.Errorf("%s: CountTokens() = %d, want %d", p.Name(), got, want)
		}
	}
}
