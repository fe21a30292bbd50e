package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/voiceagent/voiceagent/internal/domain"
	"github.com/voiceagent/voiceagent/internal/gateway"
	"github.com/voiceagent/voiceagent/internal/pipeline"
	"github.com/voiceagent/voiceagent/internal/store"
)

// Orchestrator runs conversational turns. Implemented by
// pipeline.Orchestrator.
type Orchestrator interface {
	RunTurn(ctx context.Context, audio []byte, format, sessionID string) pipeline.TurnResult
	RunTextTurn(ctx context.Context, text, sessionID string) pipeline.TurnResult
}

// eventSink abstracts the connection so the turn protocol can be tested
// without a live socket.
type eventSink interface {
	WriteEvent(ctx context.Context, ev Event) error
	WriteBinary(ctx context.Context, data []byte) error
}

// wsSink adapts websocket.Conn to eventSink.
type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) WriteEvent(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *wsSink) WriteBinary(ctx context.Context, data []byte) error {
	return s.conn.Write(ctx, websocket.MessageBinary, data)
}

// Handler handles WebSocket voice conversation sessions.
type Handler struct {
	orch      Orchestrator
	store     store.Store
	sm        *SessionManager
	agentName string
}

// NewHandler creates a new voice session handler.
func NewHandler(orch Orchestrator, st store.Store, sm *SessionManager, agentName string) *Handler {
	return &Handler{
		orch:      orch,
		store:     st,
		sm:        sm,
		agentName: agentName,
	}
}

// ServeHTTP upgrades the connection and runs the session loop. The client
// may pass ?session_id= to resume an existing conversation; otherwise a
// fresh session id is issued.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	slog.Info("Voice connection request", "session_id", sessionID, "ip", r.RemoteAddr)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	h.sm.Register(sessionID, ws)
	defer h.sm.Unregister(sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Warm the history slot so a reconnect resumes the same conversation.
	h.store.GetOrCreate(sessionID)

	sink := &wsSink{conn: ws}
	if err := sink.WriteEvent(ctx, Event{
		Type:      EventConnected,
		SessionID: sessionID,
		Message:   fmt.Sprintf("Connected to %s. Session: %s", h.agentName, sessionID),
	}); err != nil {
		slog.Warn("Failed to send connected event", "error", err, "session_id", sessionID)
		return
	}

	h.readLoop(ctx, ws, sink, sessionID)
	slog.Info("Voice session ended", "session_id", sessionID)
}

// readLoop processes frames one at a time, so turns within a session are
// strictly sequential.
func (h *Handler) readLoop(ctx context.Context, ws *websocket.Conn, sink eventSink, sessionID string) {
	for {
		msgType, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "session_id", sessionID)
			} else if !errors.Is(err, context.Canceled) {
				slog.Warn("WebSocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		switch msgType {
		case websocket.MessageBinary:
			h.handleAudio(ctx, sink, sessionID, message)
		case websocket.MessageText:
			h.handleControl(ctx, sink, sessionID, message)
		}
	}
}

// handleAudio runs one full voice turn for an uploaded utterance.
func (h *Handler) handleAudio(ctx context.Context, sink eventSink, sessionID string, audio []byte) {
	if len(audio) == 0 {
		h.writeError(ctx, sink, "Empty audio received.")
		return
	}

	res := h.orch.RunTurn(ctx, audio, domain.DefaultAudioFormat, sessionID)
	h.emitTurn(ctx, sink, res)
}

// emitTurn translates a turn result into the event sequence the client
// expects: transcript, reply_text, binary audio, done. A synthesis failure
// still delivers the text results before the error; earlier failures send
// only an error.
func (h *Handler) emitTurn(ctx context.Context, sink eventSink, res pipeline.TurnResult) {
	if res.Failed() && res.FailedStage == gateway.StageTranscription {
		h.writeError(ctx, sink, failureMessage(res))
		return
	}

	if err := sink.WriteEvent(ctx, Event{Type: EventTranscript, Text: res.Transcript}); err != nil {
		slog.Debug("Failed to send transcript", "error", err)
		return
	}

	if res.Failed() && res.FailedStage == gateway.StageReasoning {
		h.writeError(ctx, sink, failureMessage(res))
		return
	}

	if err := sink.WriteEvent(ctx, Event{Type: EventReplyText, Text: res.ReplyText}); err != nil {
		slog.Debug("Failed to send reply text", "error", err)
		return
	}

	if res.Failed() {
		// Synthesis failed; the transcript and reply text above are still
		// a usable partial result.
		h.writeError(ctx, sink, failureMessage(res))
		return
	}

	if err := sink.WriteBinary(ctx, res.ReplyAudio); err != nil {
		slog.Debug("Failed to send reply audio", "error", err)
		return
	}
	if err := sink.WriteEvent(ctx, Event{Type: EventDone}); err != nil {
		slog.Debug("Failed to send done event", "error", err)
	}
}

// handleControl dispatches a client text frame. Frames that are not valid
// JSON or name an unknown action are ignored; closing the connection over
// a bad frame would kill an otherwise healthy session.
func (h *Handler) handleControl(ctx context.Context, sink eventSink, sessionID string, message []byte) {
	var frame ControlFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		slog.Debug("Ignoring malformed control frame", "session_id", sessionID, "error", err)
		return
	}

	switch frame.Action {
	case ActionPing:
		if err := sink.WriteEvent(ctx, Event{Type: EventPong}); err != nil {
			slog.Debug("Failed to send pong", "error", err)
		}
	case ActionClearMemory:
		h.store.Clear(sessionID)
		if err := sink.WriteEvent(ctx, Event{Type: EventMemoryCleared, SessionID: sessionID, Message: "Conversation memory cleared."}); err != nil {
			slog.Debug("Failed to send memory_cleared", "error", err)
		}
	case ActionChatText:
		h.handleChatText(ctx, sink, sessionID, frame.Message)
	default:
		slog.Debug("Ignoring unknown control action", "session_id", sessionID, "action", frame.Action)
	}
}

// handleChatText runs a text-only turn, skipping the speech stages.
func (h *Handler) handleChatText(ctx context.Context, sink eventSink, sessionID, text string) {
	if strings.TrimSpace(text) == "" {
		h.writeError(ctx, sink, "Empty message received.")
		return
	}

	res := h.orch.RunTextTurn(ctx, text, sessionID)
	if res.Failed() {
		h.writeError(ctx, sink, failureMessage(res))
		return
	}
	// Text turns emit only the reply; there is no audio and no done marker.
	if err := sink.WriteEvent(ctx, Event{Type: EventReplyText, Text: res.ReplyText}); err != nil {
		slog.Debug("Failed to send reply text", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, sink eventSink, message string) {
	if err := sink.WriteEvent(ctx, Event{Type: EventError, Message: message}); err != nil {
		slog.Debug("Failed to send error event", "error", err)
	}
}

// failureMessage produces the client-facing message for a failed turn.
func failureMessage(res pipeline.TurnResult) string {
	switch {
	case errors.Is(res.Err, gateway.ErrNoSpeechDetected):
		return "No speech detected."
	case errors.Is(res.Err, gateway.ErrEmptyInput):
		return "Empty audio received."
	}
	switch res.FailedStage {
	case gateway.StageTranscription:
		return "Transcription failed."
	case gateway.StageReasoning:
		return "Reasoning failed."
	case gateway.StageSynthesis:
		return "Speech synthesis failed."
	default:
		return "Turn failed."
	}
}
