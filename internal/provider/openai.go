package provider

import (
	"context"
	"errors"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAI talks to the chat completions API. The system prompt travels inline
// as the first message.
type OpenAI struct {
	client
}

// NewOpenAI creates an OpenAI backend from s.
func NewOpenAI(s Settings) *OpenAI {
	headers := map[string]string{"Authorization": "Bearer " + s.APIKey}
	return &OpenAI{client: newClient(s, "openai", "OpenAI", openAIBaseURL, headers)}
}

// Send posts messages as-is and returns the first choice's content.
func (o *OpenAI) Send(ctx context.Context, messages []Message) (string, error) {
	req := openAIRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	}

	var resp openAIResponse
	if err := o.post(ctx, "/chat/completions", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", o.fail(0, "malformed response", errors.New("no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}
