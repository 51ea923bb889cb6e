package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the top-level application configuration.
type Config struct {
	Provider   ProviderConfig   `toml:"provider"`
	Generation GenerationConfig `toml:"generation"`
	Output     OutputConfig     `toml:"output"`
	Taxonomy   TaxonomyConfig   `toml:"taxonomy"`
	Sources    SourcesConfig    `toml:"sources"`
	Store      StoreConfig      `toml:"store"`
}

// ProviderConfig holds settings for AI provider selection and configuration.
type ProviderConfig struct {
	Default     string                   `toml:"default"`
	Model       string                   `toml:"model"`
	MaxTokens   int                      `toml:"max_tokens"`
	Temperature *float64                 `toml:"temperature"`
	Anthropic   AnthropicProviderConfig  `toml:"anthropic"`
	OpenAI      []OpenAICompatibleConfig `toml:"openai_compatible"`
}

// AnthropicProviderConfig holds Anthropic-specific provider settings.
type AnthropicProviderConfig struct {
	APIKeySource string `toml:"api_key_source"`
	APIKey       string `toml:"api_key"`
	BaseURL      string `toml:"base_url"`
}

// OpenAICompatibleConfig holds settings for an OpenAI-compatible provider.
// Local servers such as Ollama are configured here via their /v1 endpoint.
type OpenAICompatibleConfig struct {
	Name         string            `toml:"name"`
	BaseURL      string            `toml:"base_url"`
	APIKeySource string            `toml:"api_key_source"`
	APIKey       string            `toml:"api_key"`
	ExtraHeaders map[string]string `toml:"extra_headers"`
}

// GenerationConfig controls the content generation phase.
type GenerationConfig struct {
	Concurrency int `toml:"concurrency"`
	MaxAttempts int `toml:"max_attempts"`
	// BaseBackoff doubles on every retry up to MaxBackoff.
	BaseBackoff time.Duration `toml:"base_backoff"`
	MaxBackoff  time.Duration `toml:"max_backoff"`
	Timeout     time.Duration `toml:"timeout"`
	// RatePerSecond limits generation calls; zero means unlimited.
	RatePerSecond float64 `toml:"rate_per_second"`
	Burst         int     `toml:"burst"`
}

// OutputConfig controls where bundles are written.
type OutputConfig struct {
	Dir       string `toml:"dir"`
	Versioned bool   `toml:"versioned"`
	// Format is markdown, hugo or docusaurus.
	Format string `toml:"format"`
}

// TaxonomyConfig selects the topic catalog.
type TaxonomyConfig struct {
	Path       string `toml:"path"`
	Overlay    string `toml:"overlay"`
	Constraint string `toml:"constraint"`
}

// SourcesConfig holds credentials for hosted repository sources.
type SourcesConfig struct {
	GitHub HostConfig `toml:"github"`
	GitLab HostConfig `toml:"gitlab"`
}

// HostConfig configures one code hosting API.
type HostConfig struct {
	TokenSource string `toml:"token_source"`
	Token       string `toml:"token"`
	BaseURL     string `toml:"base_url"`
}

// StoreConfig locates the run ledger. An empty path uses the default location.
type StoreConfig struct {
	Path string `toml:"path"`
}

// DefaultConfig returns a Config populated with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Default:   "anthropic",
			Model:     "claude-sonnet-4-5",
			MaxTokens: 4096,
			Anthropic: AnthropicProviderConfig{
				APIKeySource: "env",
			},
		},
		Generation: GenerationConfig{
			Concurrency: 5,
			MaxAttempts: 3,
			BaseBackoff: 500 * time.Millisecond,
			MaxBackoff:  8 * time.Second,
			Timeout:     90 * time.Second,
			Burst:       1,
		},
		Output: OutputConfig{
			Dir:       "docs",
			Versioned: true,
			Format:    "markdown",
		},
		Taxonomy: TaxonomyConfig{
			Constraint: "^1",
		},
		Sources: SourcesConfig{
			GitHub: HostConfig{TokenSource: "env"},
			GitLab: HostConfig{TokenSource: "env", BaseURL: "https://gitlab.com/api/v4"},
		},
	}
}

// Load reads a TOML config file on top of the defaults. A missing file is not
// an error and yields DefaultConfig.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}
