package integrations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/julianshen/docweave/internal/provider"
)

// errTruncated is returned when a stream closes without a stop event.
var errTruncated = errors.New("llm stream ended before completion")

// CompleterConfig holds per-request settings applied to every completion.
type CompleterConfig struct {
	Model       string
	System      string
	MaxTokens   int
	Temperature *float64
}

// LLMCompleter wraps an LLMProvider to collect streamed text into a single string.
// It is safe for concurrent use.
type LLMCompleter struct {
	provider provider.LLMProvider
	cfg      CompleterConfig

	inputTokens  atomic.Int64
	outputTokens atomic.Int64
}

// NewLLMCompleter creates a new LLMCompleter.
func NewLLMCompleter(p provider.LLMProvider, cfg CompleterConfig) *LLMCompleter {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	return &LLMCompleter{provider: p, cfg: cfg}
}

// Complete sends a prompt to the LLM and returns the full response text.
// Provider errors are wrapped, so *provider.APIError stays reachable via errors.As.
func (c *LLMCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	req := provider.CompletionRequest{
		Model:       c.cfg.Model,
		System:      c.cfg.System,
		Messages:    []provider.Message{provider.NewUserMessage(prompt)},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	ch, err := c.provider.Stream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}

	var (
		b       strings.Builder
		stopped bool
	)
	for evt := range ch {
		switch evt.Type {
		case provider.EventTextDelta:
			b.WriteString(evt.Text)
		case provider.EventStop:
			stopped = true
			c.inputTokens.Add(int64(evt.InputTokens))
			c.outputTokens.Add(int64(evt.OutputTokens))
		case provider.EventError:
			return "", fmt.Errorf("llm stream error: %w", evt.Error)
		}
	}
	if !stopped {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("llm complete: %w", err)
		}
		return "", errTruncated
	}

	return b.String(), nil
}

// Usage returns the token totals of every completed request so far.
func (c *LLMCompleter) Usage() (input, output int64) {
	return c.inputTokens.Load(), c.outputTokens.Load()
}
