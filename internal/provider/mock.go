package provider

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/maximbilan/hivecouncil/internal/catalog"
)

// MockProvider is an in-memory Provider for tests. Responses are streamed
// word by word.
type MockProvider struct {
	name    string
	model   string
	pricing catalog.Pricing
	logger  *slog.Logger

	mu        sync.RWMutex
	responses map[string]string
	failAfter int
	failErr   error

	released atomic.Int64
}

// NewMockProvider creates a new mock provider
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		name:      name,
		model:     "mock-model",
		logger:    slog.Default(),
		responses: make(map[string]string),
		failAfter: -1,
	}
}

// SetResponse sets a mock response for a given prompt
func (m *MockProvider) SetResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// SetPricing sets the pricing pair returned by Pricing.
func (m *MockProvider) SetPricing(p catalog.Pricing) {
	m.pricing = p
}

// FailAfter makes streams fail with err after n fragments.
func (m *MockProvider) FailAfter(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	m.failErr = err
}

// Released returns how many streams have been closed.
func (m *MockProvider) Released() int64 {
	return m.released.Load()
}

func (m *MockProvider) Name() string         { return m.name }
func (m *MockProvider) Model() string        { return m.model }
func (m *MockProvider) DefaultModel() string { return m.model }

// StreamCompletion streams the configured response for req.Prompt, or
// "Mock response for: <prompt>" when none is set.
func (m *MockProvider) StreamCompletion(ctx context.Context, req Request) iter.Seq2[string, error] {
	return runStream(ctx, m.name, m.model, m.logger, req, func(ctx context.Context, emit emitFunc) error {
		defer m.released.Add(1)

		m.mu.RLock()
		response, ok := m.responses[req.Prompt]
		failAfter, failErr := m.failAfter, m.failErr
		m.mu.RUnlock()
		if !ok {
			response = "Mock response for: " + req.Prompt
		}

		for i, fragment := range strings.SplitAfter(response, " ") {
			if i == failAfter {
				return failErr
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if !emit(fragment) {
				return nil
			}
		}
		return nil
	})
}

// CountTokens uses the character heuristic.
func (m *MockProvider) CountTokens(text string) int {
	return countTokens(nil, text)
}

func (m *MockProvider) Pricing() catalog.Pricing {
	return m.pricing
}
