package api

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/voiceagent/voiceagent/internal/gateway"
)

// headerValueLimit bounds transcript/reply header values on /voice/talk.
const headerValueLimit = 200

// VoiceTalk runs one full voice turn over REST: upload audio, get the
// reply audio back, with the transcript and reply text in headers.
func (h *Handler) VoiceTalk(w http.ResponseWriter, r *http.Request) {
	audio, format, ok := h.readAudioUpload(w, r)
	if !ok {
		return
	}
	sessionID := strings.TrimSpace(r.FormValue("session_id"))

	res := h.turns.RunTurn(r.Context(), audio, format, sessionID)
	if res.Failed() {
		writeGatewayError(w, res.Err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("X-Transcript", headerValue(res.Transcript))
	w.Header().Set("X-Reply-Text", headerValue(res.ReplyText))
	w.Header().Set("X-Session-Id", sessionID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.ReplyAudio)
}

// VoiceTalkJSON runs one full voice turn and returns everything in one
// JSON body, audio base64-encoded.
func (h *Handler) VoiceTalkJSON(w http.ResponseWriter, r *http.Request) {
	audio, format, ok := h.readAudioUpload(w, r)
	if !ok {
		return
	}
	sessionID := strings.TrimSpace(r.FormValue("session_id"))

	res := h.turns.RunTurn(r.Context(), audio, format, sessionID)
	if res.Failed() {
		if res.FailedStage == gateway.StageSynthesis {
			// The turn text survived; hand it back alongside the error.
			JSON(w, http.StatusBadGateway, map[string]interface{}{
				"transcript": res.Transcript,
				"reply_text": res.ReplyText,
				"session_id": sessionID,
				"error":      res.Err.Error(),
			})
			return
		}
		writeGatewayError(w, res.Err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"transcript":   res.Transcript,
		"reply_text":   res.ReplyText,
		"audio_base64": base64.StdEncoding.EncodeToString(res.ReplyAudio),
		"content_type": "audio/mpeg",
		"session_id":   sessionID,
	})
}

// ListVoices returns the upstream voice catalog.
func (h *Handler) ListVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := h.catalog.Voices(r.Context())
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"voices": voices,
		"total":  len(voices),
	})
}

// headerValue makes a string safe and bounded for a response header.
func headerValue(s string) string {
	s = strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
	runes := []rune(s)
	if len(runes) > headerValueLimit {
		return string(runes[:headerValueLimit])
	}
	return s
}
