// Package store provides the conversation history store shared by all
// connection handlers.
package store

import (
	"github.com/voiceagent/voiceagent/internal/domain"
)

// Store maps session identifiers to ordered conversation histories.
// Implementations must serialize operations on the same session while
// leaving unrelated sessions free to proceed concurrently.
type Store interface {
	// GetOrCreate ensures a history exists for the session.
	GetOrCreate(sessionID string)

	// Append adds a single turn to the session's history, creating the
	// history if needed.
	Append(sessionID string, turn domain.Turn)

	// AppendExchange adds a user turn and the agent's reply as one atomic
	// operation, so no reader observes the history between the two writes.
	AppendExchange(sessionID string, user, agent domain.Turn)

	// Read returns a copy of the session's history, oldest turn first.
	// An unknown session reads as empty.
	Read(sessionID string) []domain.Turn

	// Clear removes the session's history atomically. It reports whether
	// a history existed.
	Clear(sessionID string) bool

	// Sessions returns the identifiers of all live sessions.
	Sessions() []string
}
