package provider

import (
	"context"
)

// LLMProvider defines the interface for interacting with an LLM provider.
type LLMProvider interface {
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error)
}

// CompletionRequest represents a request to an LLM for completion.
type CompletionRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Message represents a single text message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Stream event types.
const (
	EventTextDelta = "text_delta"
	EventStop      = "stop"
	EventError     = "error"
)

// StreamEvent represents a single event in a streaming response.
type StreamEvent struct {
	Type         string
	Text         string
	Error        error
	InputTokens  int
	OutputTokens int
}

// NewUserMessage creates a new user message.
func NewUserMessage(text string) Message {
	return Message{Role: "user", Content: text}
}
