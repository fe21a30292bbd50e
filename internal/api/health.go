package api

import "net/http"

// Root returns the service descriptor.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"service": "voice agent",
		"agent":   h.agentName,
		"endpoints": map[string]string{
			"tts":    "/tts/generate",
			"stt":    "/stt/transcribe",
			"chat":   "/chat/message",
			"voice":  "/voice/talk",
			"ws":     "/ws/voice",
			"health": "/health",
		},
	})
}

// Health returns the health status of the API.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"status":          "ok",
		"agent":           h.agentName,
		"active_sessions": len(h.store.Sessions()),
	})
}
