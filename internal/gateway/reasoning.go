package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/voiceagent/voiceagent/internal/domain"
	"github.com/voiceagent/voiceagent/internal/store"
)

// ReasoningGateway produces agent replies, optionally with conversation
// memory held in the shared store.
type ReasoningGateway struct {
	provider Reasoner
	store    store.Store
	timeout  time.Duration
}

// NewReasoningGateway creates a gateway backed by the given provider and
// conversation store.
func NewReasoningGateway(provider Reasoner, st store.Store, timeout time.Duration) *ReasoningGateway {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &ReasoningGateway{
		provider: provider,
		store:    st,
		timeout:  timeout,
	}
}

// Respond generates a reply for userText. With a non-empty sessionID the
// prior history is sent along with the new turn, and the exchange is
// recorded in the store afterwards. The store is never mutated when the
// provider call fails. With an empty sessionID the exchange is stateless.
func (g *ReasoningGateway) Respond(ctx context.Context, userText, sessionID string) (string, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return "", ErrEmptyInput
	}

	var history []domain.Turn
	if sessionID != "" {
		history = g.store.Read(sessionID)
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	reply, err := g.provider.Reason(callCtx, userText, history)
	if err != nil {
		return "", &ProviderError{Stage: StageReasoning, Primary: err}
	}
	reply = strings.TrimSpace(reply)

	if sessionID != "" {
		g.store.AppendExchange(sessionID,
			domain.Turn{Role: domain.RoleUser, Text: userText},
			domain.Turn{Role: domain.RoleAgent, Text: reply},
		)
	}
	return reply, nil
}
