package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/voiceagent/voiceagent/internal/domain"
	"github.com/voiceagent/voiceagent/internal/gateway"
)

// readAudioUpload extracts the "file" part of a multipart upload, enforcing
// the size cap and the audio format allow-list. It returns the audio bytes
// and the format extension.
func (h *Handler) readAudioUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxAudioBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(w, http.StatusRequestEntityTooLarge, (&gateway.PayloadTooLargeError{
				Size:  int(r.ContentLength),
				Limit: int(h.maxAudioBytes),
			}).Error())
			return nil, "", false
		}
		Error(w, http.StatusBadRequest, "missing audio file upload")
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	format := domain.AudioFormatFromFilename(header.Filename)
	if !domain.SupportedAudioFormat(format) {
		Error(w, http.StatusBadRequest, (&gateway.UnsupportedFormatError{Format: format}).Error())
		return nil, "", false
	}

	audio, err := io.ReadAll(file)
	if err != nil {
		slog.Warn("Failed to read audio upload", "error", err)
		Error(w, http.StatusBadRequest, "failed to read audio upload")
		return nil, "", false
	}
	return audio, format, true
}

// TranscribeUpload transcribes one uploaded audio file.
func (h *Handler) TranscribeUpload(w http.ResponseWriter, r *http.Request) {
	audio, format, ok := h.readAudioUpload(w, r)
	if !ok {
		return
	}

	text, err := h.transcriber.Transcribe(r.Context(), audio, format)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	if text == "" {
		Error(w, http.StatusUnprocessableEntity, "no speech detected in audio")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"text":   text,
		"format": format,
	})
}
