// cmd/docweave/synth.go
package main

import (
	"fmt"

	"github.com/julianshen/docweave/internal/config"
	"github.com/julianshen/docweave/internal/integrations"
	"github.com/julianshen/docweave/internal/provider"
	"github.com/julianshen/docweave/internal/synth"
	"github.com/julianshen/docweave/internal/taxonomy"
)

// systemPrompt is sent with every completion.
const systemPrompt = "You write accurate, well-structured Markdown documentation for software projects. " +
	"Answer with the page content only."

// newSynthesizer builds the content generator. With --offline it is the
// template synthesizer; otherwise an LLM synthesizer wrapped in retry and
// rate-limit middleware. The completer is returned for token accounting and
// is nil offline.
func newSynthesizer(cfg *config.Config, guide string) (synth.Synthesizer, *integrations.LLMCompleter, error) {
	if offlineFlag {
		return synth.Offline{}, nil, nil
	}

	p, err := provider.NewProvider(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating provider: %w", err)
	}
	completer := integrations.NewLLMCompleter(p, integrations.CompleterConfig{
		Model:       cfg.Provider.Model,
		System:      systemPrompt,
		MaxTokens:   cfg.Provider.MaxTokens,
		Temperature: cfg.Provider.Temperature,
	})

	gen := cfg.Generation
	llm := synth.NewLLM(completer, synth.LLMConfig{Timeout: gen.Timeout, Guide: guide})
	s := synth.Chain(llm,
		synth.WithRetry(synth.RetryPolicy{
			MaxAttempts: gen.MaxAttempts,
			BaseDelay:   gen.BaseBackoff,
			MaxDelay:    gen.MaxBackoff,
		}),
		synth.WithRateLimit(synth.NewLimiter(gen.RatePerSecond, gen.Burst)),
	)
	return s, completer, nil
}

// loadTaxonomy loads the topic catalog from --taxonomy, [taxonomy].path or
// the built-in catalog, applies the configured overlay and checks the
// version constraint.
func loadTaxonomy(cfg *config.Config) (*taxonomy.Taxonomy, error) {
	path := taxonomyFlag
	if path == "" {
		path = cfg.Taxonomy.Path
	}

	var (
		tax *taxonomy.Taxonomy
		err error
	)
	if path != "" {
		tax, err = taxonomy.Load(path)
	} else {
		tax, err = taxonomy.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("taxonomy: %w", err)
	}

	if cfg.Taxonomy.Overlay != "" {
		o, err := taxonomy.LoadOverlay(cfg.Taxonomy.Overlay)
		if err != nil {
			return nil, fmt.Errorf("taxonomy overlay: %w", err)
		}
		if tax, err = tax.WithOverlay(o); err != nil {
			return nil, fmt.Errorf("taxonomy overlay: %w", err)
		}
	}

	if err := tax.Require(cfg.Taxonomy.Constraint); err != nil {
		return nil, fmt.Errorf("taxonomy: %w", err)
	}
	return tax, nil
}
