package provider

import (
	"context"
	"errors"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// Anthropic talks to the messages API, which takes the system prompt as a
// top-level field rather than as a conversation turn. Temperature is not sent.
type Anthropic struct {
	client
}

// NewAnthropic creates an Anthropic backend from s.
func NewAnthropic(s Settings) *Anthropic {
	headers := map[string]string{
		"x-api-key":         s.APIKey,
		"anthropic-version": anthropicVersion,
	}
	return &Anthropic{client: newClient(s, "anthropic", "Anthropic", anthropicBaseURL, headers)}
}

// Send lifts the first system message into the system field, forwards the
// remaining turns in order and returns the text of the first content block.
func (a *Anthropic) Send(ctx context.Context, messages []Message) (string, error) {
	system, conversation := splitSystem(messages)
	req := anthropicRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    system,
		Messages:  conversation,
	}

	var resp anthropicResponse
	if err := a.post(ctx, "/messages", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", a.fail(0, "malformed response", errors.New("no content blocks returned"))
	}
	return resp.Content[0].Text, nil
}

// splitSystem returns the content of the first system message and every
// non-system message in original order.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	found := false
	conversation := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if !found {
				system = m.Content
				found = true
			}
			continue
		}
		conversation = append(conversation, m)
	}
	return system, conversation
}
