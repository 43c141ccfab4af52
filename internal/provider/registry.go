// internal/provider/registry.go
package provider

import (
	"conduit/internal/config"
)

// Registry holds all configured providers.
type Registry struct {
	providers map[string]Provider
	models    map[string]string // provider id -> default model
	order     []string          // preserve order for consistent display
}

// NewRegistry creates a registry from config.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		models:    make(map[string]string),
		order:     []string{},
	}

	if c := cfg.Providers.OpenAI; c.Enabled && c.APIKey != "" {
		r.add("openai", NewOpenAI(c.APIKey, c.BaseURL), c.DefaultModel)
	}
	if c := cfg.Providers.Anthropic; c.Enabled && c.APIKey != "" {
		r.add("anthropic", NewAnthropic(c.APIKey, c.BaseURL), c.DefaultModel)
	}
	if c := cfg.Providers.Gemini; c.Enabled && c.APIKey != "" {
		r.add("gemini", NewGemini(c.APIKey, c.BaseURL), c.DefaultModel)
	}

	return r
}

func (r *Registry) add(id string, p Provider, defaultModel string) {
	r.providers[id] = p
	r.models[id] = defaultModel
	r.order = append(r.order, id)
}

// Get returns a provider by ID.
func (r *Registry) Get(id string) Provider {
	return r.providers[id]
}

// DefaultModel returns the configured default model for a provider.
func (r *Registry) DefaultModel(id string) string {
	return r.models[id]
}

// Enabled returns IDs of all configured providers in order.
func (r *Registry) Enabled() []string {
	return r.order
}

// Count returns the number of configured providers.
func (r *Registry) Count() int {
	return len(r.order)
}
