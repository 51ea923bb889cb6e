package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/julianshen/docweave/internal/provider"
)

func init() {
	provider.RegisterProvider("anthropic", func(baseURL, apiKey string, _ map[string]string) provider.LLMProvider {
		return New(baseURL, apiKey)
	})
}

// statusOverloaded is the status Anthropic uses for overloaded_error, also
// delivered mid-stream as an SSE error event.
const statusOverloaded = 529

// Provider implements the LLMProvider interface for the Anthropic API.
type Provider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates a new Anthropic provider.
func New(baseURL, apiKey string) *Provider {
	return &Provider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{},
	}
}

// apiRequest is the request body sent to the Anthropic API.
type apiRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Stream      bool               `json:"stream"`
	System      string             `json:"system,omitempty"`
	Messages    []provider.Message `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
}

// Stream sends a completion request to the Anthropic API and returns a channel
// of StreamEvents parsed from the SSE response.
func (p *Provider) Stream(ctx context.Context, req provider.CompletionRequest) (<-chan provider.StreamEvent, error) {
	body, err := json.Marshal(apiRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
		System:      req.System,
		Messages:    req.Messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("building request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, provider.NewAPIError(resp)
	}

	ch := make(chan provider.StreamEvent)
	go p.processStream(ctx, resp.Body, ch)

	return ch, nil
}

// processStream reads SSE events from the response body and sends StreamEvents
// to the channel as they arrive. It closes both the body and the channel when done.
func (p *Provider) processStream(ctx context.Context, body io.ReadCloser, ch chan<- provider.StreamEvent) {
	defer close(ch)
	defer body.Close()

	send := func(evt provider.StreamEvent) bool {
		select {
		case ch <- evt:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var usage usageCounter
	scanner := provider.NewSSEScanner(body)
	for scanner.Next() {
		if ctx.Err() != nil {
			send(provider.StreamEvent{Type: provider.EventError, Error: ctx.Err()})
			return
		}

		evt := usage.convert(scanner.Event())
		if evt == nil {
			continue
		}
		if !send(*evt) || evt.Type == provider.EventError {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		send(provider.StreamEvent{Type: provider.EventError, Error: err})
	}
}

// usageCounter accumulates token usage across message_start and message_delta.
type usageCounter struct {
	input, output int
}

func (u *usageCounter) convert(evt provider.SSEEvent) *provider.StreamEvent {
	switch evt.Event {
	case "message_start":
		var parsed struct {
			Message struct {
				Usage struct {
					InputTokens int `json:"input_tokens"`
				} `json:"usage"`
			} `json:"message"`
		}
		if err := json.Unmarshal([]byte(evt.Data), &parsed); err == nil {
			u.input = parsed.Message.Usage.InputTokens
		}
		return nil
	case "content_block_delta":
		var parsed struct {
			Delta struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"delta"`
		}
		if err := json.Unmarshal([]byte(evt.Data), &parsed); err != nil {
			return &provider.StreamEvent{Type: provider.EventError, Error: fmt.Errorf("parsing content_block_delta: %w", err)}
		}
		if parsed.Delta.Type != "text_delta" {
			return nil
		}
		return &provider.StreamEvent{Type: provider.EventTextDelta, Text: parsed.Delta.Text}
	case "message_delta":
		var parsed struct {
			Usage struct {
				OutputTokens int `json:"output_tokens"`
			} `json:"usage"`
		}
		if err := json.Unmarshal([]byte(evt.Data), &parsed); err == nil {
			u.output = parsed.Usage.OutputTokens
		}
		return nil
	case "message_stop":
		return &provider.StreamEvent{Type: provider.EventStop, InputTokens: u.input, OutputTokens: u.output}
	case "error":
		var parsed struct {
			Error struct {
				Type    string `json:"type"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal([]byte(evt.Data), &parsed)
		status := http.StatusInternalServerError
		if parsed.Error.Type == "overloaded_error" {
			status = statusOverloaded
		}
		if parsed.Error.Type == "rate_limit_error" {
			status = http.StatusTooManyRequests
		}
		return &provider.StreamEvent{Type: provider.EventError, Error: &provider.APIError{StatusCode: status, Body: evt.Data}}
	default:
		return nil
	}
}
