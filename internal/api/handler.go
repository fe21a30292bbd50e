// Package api provides the REST handlers for the voice agent.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voiceagent/voiceagent/internal/gateway"
	"github.com/voiceagent/voiceagent/internal/pipeline"
	"github.com/voiceagent/voiceagent/internal/provider"
	"github.com/voiceagent/voiceagent/internal/store"
)

// Transcriber converts one audio upload into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// Synthesizer renders text as audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Responder produces the agent's reply, stateful when a session id is given.
type Responder interface {
	Respond(ctx context.Context, userText, sessionID string) (string, error)
}

// TurnRunner runs full voice turns. Implemented by pipeline.Orchestrator.
type TurnRunner interface {
	RunTurn(ctx context.Context, audio []byte, format, sessionID string) pipeline.TurnResult
}

// VoiceCatalog lists the synthesis voices available upstream.
type VoiceCatalog interface {
	Voices(ctx context.Context) ([]provider.Voice, error)
}

// Handler carries the dependencies shared by all REST endpoints.
type Handler struct {
	transcriber   Transcriber
	synthesizer   Synthesizer
	responder     Responder
	turns         TurnRunner
	catalog       VoiceCatalog
	store         store.Store
	agentName     string
	maxAudioBytes int64
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(transcriber Transcriber, synthesizer Synthesizer, responder Responder,
	turns TurnRunner, catalog VoiceCatalog, st store.Store, agentName string, maxAudioBytes int64) *Handler {
	return &Handler{
		transcriber:   transcriber,
		synthesizer:   synthesizer,
		responder:     responder,
		turns:         turns,
		catalog:       catalog,
		store:         st,
		agentName:     agentName,
		maxAudioBytes: maxAudioBytes,
	}
}

// RegisterRoutes registers all REST routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Route("/tts", func(r chi.Router) {
		r.Post("/generate", h.GenerateSpeech)
		r.Post("/generate/json", h.GenerateSpeechJSON)
	})
	r.Post("/stt/transcribe", h.TranscribeUpload)

	r.Route("/chat", func(r chi.Router) {
		r.Post("/message", h.ChatMessage)
		r.Post("/session/new", h.NewChatSession)
		r.Get("/session/{sessionID}", h.ChatHistory)
		r.Delete("/session/{sessionID}", h.ClearChatSession)
		r.Get("/sessions", h.ListChatSessions)
	})

	r.Route("/voice", func(r chi.Router) {
		r.Post("/talk", h.VoiceTalk)
		r.Post("/talk/json", h.VoiceTalkJSON)
		r.Get("/voices", h.ListVoices)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// writeGatewayError maps a pipeline/gateway error onto an HTTP status:
// invalid input is the caller's fault, provider trouble is a bad gateway.
func writeGatewayError(w http.ResponseWriter, err error) {
	var formatErr *gateway.UnsupportedFormatError
	var sizeErr *gateway.PayloadTooLargeError
	var providerErr *gateway.ProviderError

	switch {
	case errors.Is(err, gateway.ErrEmptyInput):
		Error(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &formatErr):
		Error(w, http.StatusBadRequest, formatErr.Error())
	case errors.As(err, &sizeErr):
		Error(w, http.StatusRequestEntityTooLarge, sizeErr.Error())
	case errors.Is(err, gateway.ErrNoSpeechDetected):
		Error(w, http.StatusUnprocessableEntity, "no speech detected in audio")
	case errors.As(err, &providerErr):
		Error(w, http.StatusBadGateway, providerErr.Error())
	default:
		slog.Error("Unhandled request error", "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}
