package gateway

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/voiceagent/voiceagent/internal/domain"
)

// SynthesisGateway invokes the speech-synthesis provider with a fixed voice
// profile. Single provider, no fallback.
type SynthesisGateway struct {
	provider Synthesizer
	profile  domain.VoiceProfile
	maxChars int
	timeout  time.Duration
}

// NewSynthesisGateway creates a gateway with the given voice profile.
// maxChars caps the text length accepted for one synthesis call.
func NewSynthesisGateway(provider Synthesizer, profile domain.VoiceProfile, maxChars int, timeout time.Duration) *SynthesisGateway {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &SynthesisGateway{
		provider: provider,
		profile:  profile,
		maxChars: maxChars,
		timeout:  timeout,
	}
}

// Synthesize converts text into audio bytes. Oversized text is rejected
// before any remote call is attempted.
func (g *SynthesisGateway) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	if n := utf8.RuneCountInString(text); g.maxChars > 0 && n > g.maxChars {
		return nil, &PayloadTooLargeError{Size: n, Limit: g.maxChars}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	audio, err := g.provider.Synthesize(callCtx, text, g.profile)
	if err != nil {
		return nil, &ProviderError{Stage: StageSynthesis, Primary: err}
	}
	if len(audio) == 0 {
		return nil, &ProviderError{Stage: StageSynthesis, Primary: errors.New("provider returned no audio")}
	}
	return audio, nil
}
