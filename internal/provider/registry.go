package provider

import (
	"fmt"
	"log/slog"

	"github.com/maximbilan/hivecouncil/internal/catalog"
	"github.com/maximbilan/hivecouncil/internal/config"
)

// Registry holds one initialized Provider per configured backend. It is
// built once at startup and is read-only afterwards.
type Registry struct {
	providers map[string]Provider
	names     []string
}

// Info describes a catalog backend and whether it is configured.
type Info struct {
	Name            string   `json:"name"`
	DisplayName     string   `json:"display_name"`
	Configured      bool     `json:"configured"`
	CurrentModel    string   `json:"current_model,omitempty"`
	DefaultModel    string   `json:"default_model"`
	AvailableModels []string `json:"available_models"`
}

// RegistryOption configures NewRegistry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	perName map[string][]Option
	logger  *slog.Logger
}

// WithProviderOptions applies opts to the named provider only. They take
// precedence over configuration.
func WithProviderOptions(name string, opts ...Option) RegistryOption {
	return func(r *registryOptions) { r.perName[name] = append(r.perName[name], opts...) }
}

// WithRegistryLogger sets the logger for registry construction and for every
// provider it builds.
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *registryOptions) { r.logger = l }
}

// NewRegistry builds a provider for every catalog backend that has a
// credential in cfg. Backends without a credential are skipped; backends
// that need none are always built.
func NewRegistry(cfg *config.Config, opts ...RegistryOption) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	ro := registryOptions{perName: make(map[string][]Option), logger: slog.Default()}
	for _, opt := range opts {
		opt(&ro)
	}

	r := &Registry{providers: make(map[string]Provider)}
	for _, entry := range catalog.All() {
		apiKey := cfg.APIKey(entry.Name)
		if entry.RequiresKey && apiKey == "" {
			ro.logger.Debug("provider skipped, no API key", "provider", entry.Name)
			continue
		}

		popts := []Option{WithLogger(ro.logger), WithModel(cfg.Model(entry.Name))}
		if entry.Name == "ollama" {
			popts = append(popts, WithBaseURL(cfg.OllamaBaseURL))
		}
		popts = append(popts, ro.perName[entry.Name]...)

		p, err := newProvider(entry.Name, apiKey, popts)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize provider %s: %w", entry.Name, err)
		}

		r.providers[entry.Name] = p
		r.names = append(r.names, entry.Name)
		ro.logger.Info("provider configured", "provider", entry.Name, "model", p.Model())
	}

	return r, nil
}

func newProvider(name, apiKey string, opts []Option) (Provider, error) {
	switch name {
	case "openai":
		return NewOpenAIProvider(apiKey, opts...)
	case "anthropic":
		return NewAnthropicProvider(apiKey, opts...)
	default:
		return NewCompatibleProvider(name, apiKey, opts...)
	}
}

// Get returns the provider registered under name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotConfigured, name)
	}
	return p, nil
}

// All returns every configured provider in catalog order.
func (r *Registry) All() []Provider {
	out := make([]Provider, len(r.names))
	for i, name := range r.names {
		out[i] = r.providers[name]
	}
	return out
}

// Names returns the configured backend names in catalog order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// IsConfigured reports whether name has a provider instance.
func (r *Registry) IsConfigured(name string) bool {
	_, ok := r.providers[name]
	return ok
}

// Describe lists every catalog backend, configured ones first in catalog
// order, followed by the unconfigured ones.
func (r *Registry) Describe() []Info {
	var configured, unconfigured []Info
	for _, entry := range catalog.All() {
		info := Info{
			Name:            entry.Name,
			DisplayName:     entry.DisplayName,
			DefaultModel:    entry.DefaultModel,
			AvailableModels: entry.AvailableModels,
		}
		if p, ok := r.providers[entry.Name]; ok {
			info.Configured = true
			info.CurrentModel = p.Model()
			configured = append(configured, info)
			continue
		}
		unconfigured = append(unconfigured, info)
	}
	return append(configured, unconfigured...)
}
