// Package gateway wraps the remote transcription, synthesis and reasoning
// providers behind narrow interfaces. Every remote failure is caught here
// and converted to a typed error; no raw provider error crosses into the
// orchestrator.
package gateway

import (
	"context"

	"github.com/voiceagent/voiceagent/internal/domain"
)

// Transcriber converts one full utterance of audio into text. An empty
// string with a nil error means the provider heard no speech.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Synthesizer renders text as audio using the given voice profile.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, profile domain.VoiceProfile) ([]byte, error)
}

// Reasoner produces the agent's reply to a user message, given any prior
// conversation turns.
type Reasoner interface {
	Reason(ctx context.Context, userText string, history []domain.Turn) (string, error)
}
