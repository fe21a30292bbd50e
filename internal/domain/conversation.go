// Package domain contains core domain types for the voice agent.
package domain

// Role identifies the author of a conversation turn.
type Role string

const (
	// RoleUser marks a turn spoken (or typed) by the human.
	RoleUser Role = "user"
	// RoleAgent marks a turn produced by the reasoning model.
	RoleAgent Role = "agent"
)

// Turn is a single utterance in a conversation. Histories hold turns in
// strict user/agent alternation, starting with a user turn.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}
