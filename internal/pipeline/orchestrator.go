// Package pipeline composes the transcription, reasoning and synthesis
// gateways into complete conversational turns.
package pipeline

import (
	"context"
	"time"

	"github.com/voiceagent/voiceagent/internal/audit"
	"github.com/voiceagent/voiceagent/internal/gateway"
)

// Transcriber converts one utterance of audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// Responder produces the agent's reply, stateful when a session id is given.
type Responder interface {
	Respond(ctx context.Context, userText, sessionID string) (string, error)
}

// Synthesizer renders reply text as audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// TurnRecorder receives a record of every finished turn. Implemented by
// audit.TurnLogger.
type TurnRecorder interface {
	Record(rec audit.TurnRecord)
}

// TurnResult is the transient outcome of one orchestration pass.
type TurnResult struct {
	Transcript string
	ReplyText  string
	ReplyAudio []byte

	// FailedStage names the stage that failed, if any. A synthesis failure
	// still carries the transcript and reply text (partial success).
	FailedStage gateway.Stage
	Err         error
}

// Failed reports whether any stage failed.
func (r TurnResult) Failed() bool {
	return r.Err != nil
}

// Orchestrator runs the audio → text → reply → audio pipeline. Each stage
// runs strictly after the previous one succeeds; it never retries beyond
// the transcription gateway's single fallback hop.
type Orchestrator struct {
	transcription Transcriber
	reasoning     Responder
	synthesis     Synthesizer
	turnLog       TurnRecorder
}

// NewOrchestrator composes the three gateways. turnLog may be nil.
func NewOrchestrator(transcription Transcriber, reasoning Responder, synthesis Synthesizer, turnLog TurnRecorder) *Orchestrator {
	return &Orchestrator{
		transcription: transcription,
		reasoning:     reasoning,
		synthesis:     synthesis,
		turnLog:       turnLog,
	}
}

// RunTurn executes one full voice turn for the session. Transcription and
// reasoning failures short-circuit the pipeline; a synthesis failure does
// not discard the transcript and reply text, because text-only output is
// still useful to the caller.
func (o *Orchestrator) RunTurn(ctx context.Context, audio []byte, format, sessionID string) TurnResult {
	start := time.Now()
	res := o.runTurn(ctx, audio, format, sessionID)
	o.record(sessionID, "voice", res, time.Since(start))
	return res
}

func (o *Orchestrator) runTurn(ctx context.Context, audio []byte, format, sessionID string) TurnResult {
	if len(audio) == 0 {
		return TurnResult{FailedStage: gateway.StageTranscription, Err: gateway.ErrEmptyInput}
	}

	transcript, err := o.transcription.Transcribe(ctx, audio, format)
	if err != nil {
		return TurnResult{FailedStage: gateway.StageTranscription, Err: err}
	}
	if transcript == "" {
		return TurnResult{FailedStage: gateway.StageTranscription, Err: gateway.ErrNoSpeechDetected}
	}

	reply, err := o.reasoning.Respond(ctx, transcript, sessionID)
	if err != nil {
		return TurnResult{Transcript: transcript, FailedStage: gateway.StageReasoning, Err: err}
	}

	replyAudio, err := o.synthesis.Synthesize(ctx, reply)
	if err != nil {
		return TurnResult{Transcript: transcript, ReplyText: reply, FailedStage: gateway.StageSynthesis, Err: err}
	}

	return TurnResult{Transcript: transcript, ReplyText: reply, ReplyAudio: replyAudio}
}

// RunTextTurn executes a text-only exchange for the session, skipping
// transcription and synthesis. Used for control-initiated text chat.
func (o *Orchestrator) RunTextTurn(ctx context.Context, text, sessionID string) TurnResult {
	start := time.Now()

	var res TurnResult
	reply, err := o.reasoning.Respond(ctx, text, sessionID)
	if err != nil {
		res = TurnResult{Transcript: text, FailedStage: gateway.StageReasoning, Err: err}
	} else {
		res = TurnResult{Transcript: text, ReplyText: reply}
	}

	o.record(sessionID, "text", res, time.Since(start))
	return res
}

func (o *Orchestrator) record(sessionID, channel string, res TurnResult, elapsed time.Duration) {
	if o.turnLog == nil {
		return
	}
	rec := audit.TurnRecord{
		SessionID:   sessionID,
		Channel:     channel,
		Transcript:  res.Transcript,
		ReplyText:   res.ReplyText,
		FailedStage: string(res.FailedStage),
		AudioBytes:  len(res.ReplyAudio),
		DurationMs:  elapsed.Milliseconds(),
	}
	if res.Err != nil {
		rec.Error = res.Err.Error()
	}
	o.turnLog.Record(rec)
}
