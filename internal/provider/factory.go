package provider

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/julianshen/docweave/internal/config"
)

const anthropicBaseURL = "https://api.anthropic.com"

// ProviderConstructor is a function that creates a new LLMProvider.
type ProviderConstructor func(baseURL, apiKey string, extraHeaders map[string]string) LLMProvider

var (
	registryMu sync.RWMutex
	registry   = map[string]ProviderConstructor{}
)

// RegisterProvider registers a provider constructor for a wire protocol,
// "anthropic" or "openai".
func RegisterProvider(protocol string, constructor ProviderConstructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[protocol] = constructor
}

// Endpoint is a provider selection resolved from config.
type Endpoint struct {
	Name     string
	Protocol string
	BaseURL  string
	APIKey   string
	Headers  map[string]string
}

// Resolve picks the endpoint named by [provider].default. "anthropic" uses
// the Anthropic API; any other name must match an OpenAI-compatible entry.
// The API key of the selected endpoint is resolved here, so a missing key
// fails before generation starts.
func Resolve(cfg *config.Config) (Endpoint, error) {
	name := cfg.Provider.Default
	if name == "anthropic" {
		ac := cfg.Provider.Anthropic
		key, err := config.ResolveAPIKey(ac.APIKeySource, ac.APIKey, "ANTHROPIC_API_KEY")
		if err != nil {
			return Endpoint{}, fmt.Errorf("resolving Anthropic API key: %w", err)
		}
		base := ac.BaseURL
		if base == "" {
			base = anthropicBaseURL
		}
		return Endpoint{Name: name, Protocol: "anthropic", BaseURL: strings.TrimRight(base, "/"), APIKey: key}, nil
	}

	names := []string{"anthropic"}
	for _, oc := range cfg.Provider.OpenAI {
		if oc.Name != name {
			names = append(names, oc.Name)
			continue
		}
		envVar := strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_API_KEY"
		key, err := config.ResolveAPIKey(oc.APIKeySource, oc.APIKey, envVar)
		if err != nil {
			return Endpoint{}, fmt.Errorf("resolving %s API key: %w", name, err)
		}
		return Endpoint{
			Name:     name,
			Protocol: "openai",
			BaseURL:  strings.TrimRight(oc.BaseURL, "/"),
			APIKey:   key,
			Headers:  oc.ExtraHeaders,
		}, nil
	}
	sort.Strings(names[1:])
	return Endpoint{}, fmt.Errorf("unknown provider: %q (configured: %s)", name, strings.Join(names, ", "))
}

// NewProvider creates the LLMProvider selected by cfg.
func NewProvider(cfg *config.Config) (LLMProvider, error) {
	ep, err := Resolve(cfg)
	if err != nil {
		return nil, err
	}
	registryMu.RLock()
	constructor, ok := registry[ep.Protocol]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s provider not registered", ep.Protocol)
	}
	return constructor(ep.BaseURL, ep.APIKey, ep.Headers), nil
}
