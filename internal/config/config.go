// internal/config/config.go
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type ProviderConfig struct {
	Enabled      bool   `yaml:"enabled"`
	APIKey       string `yaml:"api_key,omitempty"`
	BaseURL      string `yaml:"base_url,omitempty"`
	DefaultModel string `yaml:"default_model,omitempty"`
}

type Config struct {
	Providers struct {
		OpenAI    ProviderConfig `yaml:"openai"`
		Anthropic ProviderConfig `yaml:"anthropic"`
		Gemini    ProviderConfig `yaml:"gemini"`
	} `yaml:"providers"`
	Defaults struct {
		MaxToolRounds  int    `yaml:"max_tool_rounds"`
		RequestTimeout int    `yaml:"request_timeout"` // seconds
		RetryAttempts  int    `yaml:"retry_attempts"`
		RetryDelay     int    `yaml:"retry_delay"` // milliseconds
		KnowledgeDB    string `yaml:"knowledge_db,omitempty"`
		ExportDir      string `yaml:"export_dir,omitempty"`
		LogLevel       string `yaml:"log_level,omitempty"`
	} `yaml:"defaults"`
}

func Load() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.ExpandEnv("$HOME/.config")
	}

	path := filepath.Join(configDir, "conduit", "config.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		// Return defaults if no config file
		return defaultConfig(), nil
	}

	// Expand environment variables in config
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Providers.OpenAI.Enabled = true
	cfg.Providers.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Providers.OpenAI.DefaultModel = "gpt-4o-mini"
	cfg.Providers.Anthropic.Enabled = true
	cfg.Providers.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.Providers.Anthropic.DefaultModel = "claude-sonnet-4-20250514"
	cfg.Providers.Gemini.Enabled = false
	cfg.Providers.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	cfg.Providers.Gemini.DefaultModel = "gemini-2.0-flash"
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Defaults.MaxToolRounds == 0 {
		cfg.Defaults.MaxToolRounds = 5
	}
	if cfg.Defaults.RequestTimeout == 0 {
		cfg.Defaults.RequestTimeout = 120
	}
	if cfg.Defaults.RetryAttempts == 0 {
		cfg.Defaults.RetryAttempts = 3
	}
	if cfg.Defaults.RetryDelay == 0 {
		cfg.Defaults.RetryDelay = 1000 // 1 second
	}
	if cfg.Defaults.LogLevel == "" {
		cfg.Defaults.LogLevel = "info"
	}
}

func ConfigPath() string {
	configDir, _ := os.UserConfigDir()
	if configDir == "" {
		configDir = os.ExpandEnv("$HOME/.config")
	}
	return filepath.Join(configDir, "conduit", "config.yaml")
}
