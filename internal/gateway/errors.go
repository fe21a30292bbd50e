package gateway

import (
	"errors"
	"fmt"
)

// Stage identifies the pipeline stage a failure belongs to.
type Stage string

const (
	// StageTranscription covers speech-to-text failures.
	StageTranscription Stage = "transcription"
	// StageReasoning covers language-model failures.
	StageReasoning Stage = "reasoning"
	// StageSynthesis covers text-to-speech failures.
	StageSynthesis Stage = "synthesis"
)

var (
	// ErrEmptyInput is returned when no audio or text was supplied.
	ErrEmptyInput = errors.New("empty input")

	// ErrNoSpeechDetected is returned when transcription succeeded but the
	// audio contained no speech. Distinct from a provider failure.
	ErrNoSpeechDetected = errors.New("no speech detected")
)

// ProviderError reports a failed remote provider call, possibly after the
// fallback hop was exhausted.
type ProviderError struct {
	Stage     Stage
	Primary   error
	Secondary error // set only when a fallback provider was also attempted
}

func (e *ProviderError) Error() string {
	if e.Secondary != nil {
		return fmt.Sprintf("%s failed: primary: %v; fallback: %v", e.Stage, e.Primary, e.Secondary)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Primary)
}

func (e *ProviderError) Unwrap() error {
	return e.Primary
}

// UnsupportedFormatError reports an audio format outside the accepted set.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported audio format %q", e.Format)
}

// PayloadTooLargeError reports input above a fixed ceiling.
type PayloadTooLargeError struct {
	Size  int
	Limit int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload too large: %d exceeds limit %d", e.Size, e.Limit)
}
