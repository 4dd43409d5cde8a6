// Package catalog holds the built-in table of known LLM backends: their
// default and available models, optional endpoint overrides and per-model
// token pricing. It is loaded once and never mutated.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embedded []byte

// Entry describes one known backend.
type Entry struct {
	Name            string   `yaml:"name"`
	DisplayName     string   `yaml:"display_name"`
	DefaultModel    string   `yaml:"default_model"`
	AvailableModels []string `yaml:"available_models"`
	BaseURL         string   `yaml:"base_url"`
	RequiresKey     bool     `yaml:"requires_key"`
}

// Pricing is a USD price per million input and output tokens.
type Pricing struct {
	Input  float64
	Output float64
}

// Catalog is an immutable set of backend entries and their pricing.
type Catalog struct {
	entries []Entry
	index   map[string]int
	pricing map[string]map[string]Pricing
}

type document struct {
	Providers []Entry                         `yaml:"providers"`
	Pricing   map[string]map[string][]float64 `yaml:"pricing"`
}

// Parse decodes a catalog document and checks that entries and pricing are
// keyed consistently.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		entries: make([]Entry, 0, len(doc.Providers)),
		index:   make(map[string]int, len(doc.Providers)),
		pricing: make(map[string]map[string]Pricing, len(doc.Pricing)),
	}

	for _, e := range doc.Providers {
		if e.Name == "" {
			return nil, fmt.Errorf("catalog entry without a name")
		}
		if _, dup := c.index[e.Name]; dup {
			return nil, fmt.Errorf("duplicate catalog entry %q", e.Name)
		}
		if e.DefaultModel == "" {
			return nil, fmt.Errorf("catalog entry %q has no default model", e.Name)
		}
		c.index[e.Name] = len(c.entries)
		c.entries = append(c.entries, e)
	}

	for name, models := range doc.Pricing {
		if _, ok := c.index[name]; !ok {
			return nil, fmt.Errorf("pricing for unknown provider %q", name)
		}
		table := make(map[string]Pricing, len(models))
		for model, pair := range models {
			if len(pair) != 2 {
				return nil, fmt.Errorf("pricing %s:%s must be [input, output], got %d values", name, model, len(pair))
			}
			if pair[0] < 0 || pair[1] < 0 {
				return nil, fmt.Errorf("pricing %s:%s must be non-negative", name, model)
			}
			table[model] = Pricing{Input: pair[0], Output: pair[1]}
		}
		c.pricing[name] = table
	}

	return c, nil
}

// All returns every entry in catalog order.
func (c *Catalog) All() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Names returns the backend names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

// Lookup returns the entry for name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	i, ok := c.index[name]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i], true
}

// Price returns the pricing for a provider/model pair. A miss is reported
// with ok == false; callers decide on their own fallback pair.
func (c *Catalog) Price(provider, model string) (Pricing, bool) {
	p, ok := c.pricing[provider][model]
	return p, ok
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embedded)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// All returns every entry of the built-in catalog.
func All() []Entry { return Default().All() }

// Names returns the names of the built-in catalog.
func Names() []string { return Default().Names() }

// Lookup finds name in the built-in catalog.
func Lookup(name string) (Entry, bool) { return Default().Lookup(name) }

// Price looks up a pair in the built-in pricing table.
func Price(provider, model string) (Pricing, bool) { return Default().Price(provider, model) }

// DefaultModel returns the catalog default model for name, or "" if unknown.
func DefaultModel(name string) string {
	e, _ := Default().Lookup(name)
	return e.DefaultModel
}
