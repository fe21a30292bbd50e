package gateway

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/voiceagent/voiceagent/internal/domain"
)

// defaultCallTimeout bounds a single remote provider call when no timeout
// is configured.
const defaultCallTimeout = 60 * time.Second

// TranscriptionGateway invokes the primary transcription provider and, on
// any failure, retries once against the secondary provider. There is no
// retry beyond that single fallback hop.
type TranscriptionGateway struct {
	primary   Transcriber
	secondary Transcriber
	timeout   time.Duration
}

// NewTranscriptionGateway creates a gateway over the two providers.
// secondary may be nil, which disables the fallback hop.
func NewTranscriptionGateway(primary, secondary Transcriber, timeout time.Duration) *TranscriptionGateway {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &TranscriptionGateway{
		primary:   primary,
		secondary: secondary,
		timeout:   timeout,
	}
}

// Transcribe converts audio to text. format is the container extension hint
// (e.g. "webm"). An empty transcript with a nil error means the provider
// succeeded but found no speech; callers must treat that as distinct from a
// provider failure.
func (g *TranscriptionGateway) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyInput
	}
	mimeType := domain.AudioMIMEType(format)

	text, primaryErr := g.call(ctx, g.primary, audio, mimeType)
	if primaryErr == nil {
		return strings.TrimSpace(text), nil
	}
	if g.secondary == nil {
		return "", &ProviderError{Stage: StageTranscription, Primary: primaryErr}
	}

	slog.Warn("Primary transcription failed, trying fallback", "error", primaryErr)
	text, secondaryErr := g.call(ctx, g.secondary, audio, mimeType)
	if secondaryErr != nil {
		return "", &ProviderError{Stage: StageTranscription, Primary: primaryErr, Secondary: secondaryErr}
	}
	return strings.TrimSpace(text), nil
}

func (g *TranscriptionGateway) call(ctx context.Context, t Transcriber, audio []byte, mimeType string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return t.Transcribe(callCtx, audio, mimeType)
}
