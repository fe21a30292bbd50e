package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/voiceagent/voiceagent/internal/gateway"
	"github.com/voiceagent/voiceagent/internal/pipeline"
	"github.com/voiceagent/voiceagent/internal/provider"
	"github.com/voiceagent/voiceagent/internal/store"
)

type stubBackend struct {
	transcript    string
	transcribeErr error

	audio         []byte
	synthesizeErr error

	reply      string
	respondErr error

	turnResult pipeline.TurnResult

	voices    []provider.Voice
	voicesErr error
}

func (s *stubBackend) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	return s.transcript, s.transcribeErr
}

func (s *stubBackend) Synthesize(_ context.Context, _ string) ([]byte, error) {
	return s.audio, s.synthesizeErr
}

func (s *stubBackend) Respond(_ context.Context, _, _ string) (string, error) {
	return s.reply, s.respondErr
}

func (s *stubBackend) RunTurn(_ context.Context, _ []byte, _, _ string) pipeline.TurnResult {
	return s.turnResult
}

func (s *stubBackend) Voices(_ context.Context) ([]provider.Voice, error) {
	return s.voices, s.voicesErr
}

func newTestRouter(backend *stubBackend, st *store.MemoryStore) http.Handler {
	if st == nil {
		st = store.NewMemoryStore()
	}
	h := NewHandler(backend, backend, backend, backend, backend, st, "TestAgent", 1<<20)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func multipartAudio(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	return body
}

func TestGenerateSpeech(t *testing.T) {
	router := newTestRouter(&stubBackend{audio: []byte("mp3-bytes")}, nil)

	req := httptest.NewRequest(http.MethodPost, "/tts/generate", strings.NewReader(`{"text":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("Unexpected content type: %q", ct)
	}
	if used := rec.Header().Get("X-Characters-Used"); used != "5" {
		t.Errorf("Unexpected X-Characters-Used: %q", used)
	}
	if rec.Body.String() != "mp3-bytes" {
		t.Errorf("Unexpected body: %q", rec.Body.String())
	}
}

func TestGenerateSpeech_TooLong(t *testing.T) {
	backend := &stubBackend{synthesizeErr: &gateway.PayloadTooLargeError{Size: 6000, Limit: 5000}}
	router := newTestRouter(backend, nil)

	req := httptest.NewRequest(http.MethodPost, "/tts/generate", strings.NewReader(`{"text":"hello"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", rec.Code)
	}
}

func TestGenerateSpeech_EmptyText(t *testing.T) {
	backend := &stubBackend{synthesizeErr: gateway.ErrEmptyInput}
	router := newTestRouter(backend, nil)

	req := httptest.NewRequest(http.MethodPost, "/tts/generate", strings.NewReader(`{"text":""}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestGenerateSpeechJSON(t *testing.T) {
	router := newTestRouter(&stubBackend{audio: []byte("mp3")}, nil)

	req := httptest.NewRequest(http.MethodPost, "/tts/generate/json", strings.NewReader(`{"text":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["audio_base64"] != "bXAz" {
		t.Errorf("Unexpected base64 audio: %v", body["audio_base64"])
	}
}

func TestTranscribeUpload(t *testing.T) {
	router := newTestRouter(&stubBackend{transcript: "hello there"}, nil)

	buf, contentType := multipartAudio(t, "clip.wav", []byte("fake-audio"))
	req := httptest.NewRequest(http.MethodPost, "/stt/transcribe", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["text"] != "hello there" || body["format"] != "wav" {
		t.Errorf("Unexpected body: %v", body)
	}
}

func TestTranscribeUpload_UnsupportedFormat(t *testing.T) {
	router := newTestRouter(&stubBackend{}, nil)

	buf, contentType := multipartAudio(t, "notes.txt", []byte("hi"))
	req := httptest.NewRequest(http.MethodPost, "/stt/transcribe", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestTranscribeUpload_NoSpeech(t *testing.T) {
	router := newTestRouter(&stubBackend{transcript: ""}, nil)

	buf, contentType := multipartAudio(t, "clip.webm", []byte("silence"))
	req := httptest.NewRequest(http.MethodPost, "/stt/transcribe", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", rec.Code)
	}
}

func TestTranscribeUpload_ProviderFailure(t *testing.T) {
	backend := &stubBackend{transcribeErr: &gateway.ProviderError{
		Stage:     gateway.StageTranscription,
		Primary:   errors.New("primary down"),
		Secondary: errors.New("secondary down"),
	}}
	router := newTestRouter(backend, nil)

	buf, contentType := multipartAudio(t, "clip.webm", []byte("audio"))
	req := httptest.NewRequest(http.MethodPost, "/stt/transcribe", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502, got %d", rec.Code)
	}
}

func TestChatSessionLifecycle(t *testing.T) {
	st := store.NewMemoryStore()
	router := newTestRouter(&stubBackend{reply: "hi!"}, st)

	// Issue a session.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat/session/new", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	sessionID, _ := decodeBody(t, rec)["session_id"].(string)
	if sessionID == "" {
		t.Fatal("Expected a session id")
	}

	// Exchange a message against it. History bookkeeping belongs to the
	// responder, so the stub leaves the store empty.
	body := strings.NewReader(`{"message":"hello","session_id":"` + sessionID + `"}`)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat/message", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["reply"]; got != "hi!" {
		t.Errorf("Unexpected reply: %v", got)
	}

	// History of the fresh session is empty but present.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/session/"+sessionID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["turn_count"].(float64); got != 0 {
		t.Errorf("Expected empty history, got %v turns", got)
	}

	// Clear reports whether anything existed.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/chat/session/"+sessionID, nil))
	if got := decodeBody(t, rec)["cleared"]; got != true {
		t.Errorf("Expected cleared=true, got %v", got)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/chat/session/"+sessionID, nil))
	if got := decodeBody(t, rec)["cleared"]; got != false {
		t.Errorf("Expected cleared=false on second delete, got %v", got)
	}
}

func TestVoiceTalk(t *testing.T) {
	backend := &stubBackend{turnResult: pipeline.TurnResult{
		Transcript: "hello",
		ReplyText:  "hi!",
		ReplyAudio: []byte("mp3-reply"),
	}}
	router := newTestRouter(backend, nil)

	buf, contentType := multipartAudio(t, "clip.webm", []byte("audio"))
	req := httptest.NewRequest(http.MethodPost, "/voice/talk?session_id=sess-1", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Transcript"); got != "hello" {
		t.Errorf("Unexpected X-Transcript: %q", got)
	}
	if got := rec.Header().Get("X-Reply-Text"); got != "hi!" {
		t.Errorf("Unexpected X-Reply-Text: %q", got)
	}
	if rec.Body.String() != "mp3-reply" {
		t.Errorf("Unexpected body: %q", rec.Body.String())
	}
}

func TestVoiceTalkJSON_SynthesisFailureKeepsText(t *testing.T) {
	backend := &stubBackend{turnResult: pipeline.TurnResult{
		Transcript:  "hello",
		ReplyText:   "hi!",
		FailedStage: gateway.StageSynthesis,
		Err:         &gateway.ProviderError{Stage: gateway.StageSynthesis, Primary: errors.New("tts down")},
	}}
	router := newTestRouter(backend, nil)

	buf, contentType := multipartAudio(t, "clip.webm", []byte("audio"))
	req := httptest.NewRequest(http.MethodPost, "/voice/talk/json", buf)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["transcript"] != "hello" || body["reply_text"] != "hi!" {
		t.Errorf("Text results must survive synthesis failure: %v", body)
	}
}

func TestListVoices(t *testing.T) {
	backend := &stubBackend{voices: []provider.Voice{
		{VoiceID: "v1", Name: "Liam"},
	}}
	router := newTestRouter(backend, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/voice/voices", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["total"].(float64); got != 1 {
		t.Errorf("Expected 1 voice, got %v", got)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubBackend{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := decodeBody(t, rec)["status"]; got != "ok" {
		t.Errorf("Unexpected status: %v", got)
	}
}
