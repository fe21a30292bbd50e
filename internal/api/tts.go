package api

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"unicode/utf8"
)

type ttsGenerateRequest struct {
	Text string `json:"text"`
}

// GenerateSpeech synthesizes the given text and streams back MP3 bytes.
func (h *Handler) GenerateSpeech(w http.ResponseWriter, r *http.Request) {
	var req ttsGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	audio, err := h.synthesizer.Synthesize(r.Context(), req.Text)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Content-Disposition", `attachment; filename="speech.mp3"`)
	w.Header().Set("X-Characters-Used", fmt.Sprintf("%d", utf8.RuneCountInString(req.Text)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

// GenerateSpeechJSON synthesizes the given text and returns the audio
// base64-encoded, for clients that cannot consume a binary body.
func (h *Handler) GenerateSpeechJSON(w http.ResponseWriter, r *http.Request) {
	var req ttsGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	audio, err := h.synthesizer.Synthesize(r.Context(), req.Text)
	if err != nil {
		writeGatewayError(w, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"audio_base64":    base64.StdEncoding.EncodeToString(audio),
		"content_type":    "audio/mpeg",
		"characters_used": utf8.RuneCountInString(req.Text),
	})
}
