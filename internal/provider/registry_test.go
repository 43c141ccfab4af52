// internal/provider/registry_test.go
package provider

import (
	"reflect"
	"testing"

	"conduit/internal/config"
)

func TestNewRegistrySkipsUnconfiguredProviders(t *testing.T) {
	cfg := &config.Config{}
	cfg.Providers.OpenAI = config.ProviderConfig{Enabled: true, APIKey: "sk-1", DefaultModel: "gpt-4o-mini"}
	cfg.Providers.Anthropic = config.ProviderConfig{Enabled: true} // no key
	cfg.Providers.Gemini = config.ProviderConfig{APIKey: "g-1"}    // not enabled

	r := NewRegistry(cfg)

	if r.Count() != 1 {
		t.Fatalf("Expected 1 provider, got %d", r.Count())
	}
	if !reflect.DeepEqual(r.Enabled(), []string{"openai"}) {
		t.Errorf("Unexpected enabled list %v", r.Enabled())
	}
	if r.Get("openai") == nil {
		t.Error("Expected openai provider registered")
	}
	if r.Get("anthropic") != nil {
		t.Error("Keyless provider should not be registered")
	}
	if r.DefaultModel("openai") != "gpt-4o-mini" {
		t.Errorf("Unexpected default model %q", r.DefaultModel("openai"))
	}
}

func TestNewRegistryPreservesOrder(t *testing.T) {
	cfg := &config.Config{}
	cfg.Providers.OpenAI = config.ProviderConfig{Enabled: true, APIKey: "a"}
	cfg.Providers.Anthropic = config.ProviderConfig{Enabled: true, APIKey: "b"}
	cfg.Providers.Gemini = config.ProviderConfig{Enabled: true, APIKey: "c"}

	r := NewRegistry(cfg)

	want := []string{"openai", "anthropic", "gemini"}
	if !reflect.DeepEqual(r.Enabled(), want) {
		t.Errorf("Expected order %v, got %v", want, r.Enabled())
	}
}
