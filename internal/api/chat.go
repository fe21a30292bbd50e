package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type chatMessageRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatMessage runs one text exchange. Without a session id the exchange is
// stateless and leaves no history behind.
func (h *Handler) ChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	reply, err := h.responder.Respond(r.Context(), req.Message, req.SessionID)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"reply":      reply,
		"session_id": req.SessionID,
	})
}

// NewChatSession issues a fresh session id with an empty history.
func (h *Handler) NewChatSession(w http.ResponseWriter, r *http.Request) {
	sessionID := uuid.NewString()
	h.store.GetOrCreate(sessionID)
	JSON(w, http.StatusOK, map[string]string{"session_id": sessionID})
}

// ChatHistory returns the ordered history for a session. Unknown sessions
// read as empty rather than missing.
func (h *Handler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	history := h.store.Read(sessionID)

	JSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"history":    history,
		"turn_count": len(history),
	})
}

// ClearChatSession wipes a session's history. Clearing an unknown session
// is not an error; cleared reports whether anything existed.
func (h *Handler) ClearChatSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	cleared := h.store.Clear(sessionID)

	JSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"cleared":    cleared,
	})
}

// ListChatSessions returns the ids of all live sessions.
func (h *Handler) ListChatSessions(w http.ResponseWriter, r *http.Request) {
	sessions := h.store.Sessions()
	JSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"total":    len(sessions),
	})
}
