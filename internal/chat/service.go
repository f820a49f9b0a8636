// Package chat assembles each conversation turn around the cached system
// prompt and forwards it to the configured provider.
package chat

import (
	"context"
	"time"

	"github.com/kalambet/persona/internal/provider"
)

// HistoryWindow is how many trailing history entries accompany a message.
const HistoryWindow = 10

// TimestampLayout renders reply times as UTC ISO-8601 with microseconds.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Exchange is the reply to one user message.
type Exchange struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

// Service owns the composed system prompt and the selected provider. Both are
// fixed at construction, so Handle is safe for concurrent use.
type Service struct {
	prompt   string
	provider provider.Provider
	now      func() time.Time
}

// NewService returns a Service that prefixes every conversation with prompt.
func NewService(prompt string, p provider.Provider) *Service {
	return &Service{prompt: prompt, provider: p, now: time.Now}
}

// Provider returns the backend replies come from.
func (s *Service) Provider() provider.Provider { return s.provider }

// Handle sends message, preceded by the system prompt and the last
// HistoryWindow entries of history, and stamps the reply. Provider errors are
// returned unchanged.
func (s *Service) Handle(ctx context.Context, message string, history []provider.Message) (Exchange, error) {
	reply, err := s.provider.Send(ctx, s.Messages(message, history))
	if err != nil {
		return Exchange{}, err
	}
	return Exchange{
		Response:  reply,
		Timestamp: s.now().UTC().Format(TimestampLayout),
	}, nil
}

// Messages builds the outbound conversation for message.
func (s *Service) Messages(message string, history []provider.Message) []provider.Message {
	history = Trim(history)
	msgs := make([]provider.Message, 0, len(history)+2)
	msgs = append(msgs, provider.Message{Role: provider.RoleSystem, Content: s.prompt})
	msgs = append(msgs, history...)
	msgs = append(msgs, provider.Message{Role: provider.RoleUser, Content: message})
	return msgs
}

// Trim returns the last HistoryWindow entries of history in original order.
func Trim(history []provider.Message) []provider.Message {
	if len(history) > HistoryWindow {
		return history[len(history)-HistoryWindow:]
	}
	return history
}
