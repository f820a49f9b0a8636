package provider

import (
	"context"
	"net/http"
	"time"
)

// Message roles. RoleSystem is reserved for the composed system prompt.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged turn of a conversation. Order is significant.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider sends a conversation to an LLM backend and returns the reply text.
// Implementations are safe for concurrent use and hold no per-request state.
type Provider interface {
	// Send returns the assistant reply for messages. Any transport,
	// authentication or response-shape failure is reported as *UpstreamError.
	Send(ctx context.Context, messages []Message) (string, error)

	// Name is the configuration name of the backend ("openai", "anthropic").
	Name() string

	// Model is the backend-specific model identifier in use.
	Model() string
}

// Generation defaults shared by both backends.
const (
	DefaultMaxTokens   = 300
	DefaultTemperature = 0.7
	DefaultTimeout     = 60 * time.Second
)

// Settings selects and configures a backend. A zero MaxTokens or Timeout
// falls back to the package default; Temperature is sent as given, so callers
// wanting DefaultTemperature must set it.
type Settings struct {
	Name        string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	// HTTPClient overrides the transport (tests point it at a stub).
	HTTPClient *http.Client
}

// openAIRequest is the body of POST /chat/completions.
type openAIRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// anthropicRequest is the body of POST /messages. The system prompt travels
// in its own field; Messages holds only user and assistant turns.
type anthropicRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// apiErrorBody matches the error envelope both vendors return.
type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
