package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/voiceagent/voiceagent/internal/domain"
)

func testProfile() domain.VoiceProfile {
	return domain.VoiceProfile{
		VoiceID:         "voice-123",
		ModelID:         "eleven_v3",
		Stability:       0.5,
		SimilarityBoost: 0.8,
		Style:           0.4,
		Speed:           1.0,
	}
}

func TestElevenLabs_Synthesize(t *testing.T) {
	var gotPath, gotKey, gotQuery string
	var gotBody ttsRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("xi-api-key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	c := NewElevenLabs("test-key", "scribe_v1").WithBaseURL(srv.URL)
	audio, err := c.Synthesize(context.Background(), "hello world", testProfile())
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if string(audio) != "mp3-bytes" {
		t.Errorf("Unexpected audio payload: %q", audio)
	}
	if gotPath != "/text-to-speech/voice-123" {
		t.Errorf("Unexpected path: %q", gotPath)
	}
	if gotQuery != "output_format=mp3_44100_128" {
		t.Errorf("Unexpected query: %q", gotQuery)
	}
	if gotKey != "test-key" {
		t.Errorf("Unexpected api key header: %q", gotKey)
	}
	if gotBody.Text != "hello world" || gotBody.ModelID != "eleven_v3" {
		t.Errorf("Unexpected request body: %+v", gotBody)
	}
	if gotBody.VoiceSettings.SimilarityBoost != 0.8 {
		t.Errorf("Voice settings not forwarded: %+v", gotBody.VoiceSettings)
	}
}

func TestElevenLabs_SynthesizeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid key"}`))
	}))
	defer srv.Close()

	c := NewElevenLabs("bad-key", "scribe_v1").WithBaseURL(srv.URL)
	_, err := c.Synthesize(context.Background(), "hello", testProfile())
	if err == nil {
		t.Fatal("Expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "invalid key") {
		t.Errorf("Error should carry status and body snippet, got %q", err)
	}
}

func TestElevenLabs_Transcribe(t *testing.T) {
	var gotModelID, gotFilename string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/speech-to-text" {
			t.Errorf("Unexpected path: %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
		}
		gotModelID = r.FormValue("model_id")
		if _, hdr, err := r.FormFile("file"); err == nil {
			gotFilename = hdr.Filename
		}
		_ = json.NewEncoder(w).Encode(sttResponse{Text: "  hello there  "})
	}))
	defer srv.Close()

	c := NewElevenLabs("test-key", "scribe_v1").WithBaseURL(srv.URL)
	text, err := c.Transcribe(context.Background(), []byte("fake-audio"), "audio/wav")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	if text != "hello there" {
		t.Errorf("Expected trimmed transcript, got %q", text)
	}
	if gotModelID != "scribe_v1" {
		t.Errorf("Unexpected model_id: %q", gotModelID)
	}
	if gotFilename != "audio.wav" {
		t.Errorf("Unexpected upload filename: %q", gotFilename)
	}
}

func TestElevenLabs_Voices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voices" {
			t.Errorf("Unexpected path: %q", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(voicesResponse{Voices: []Voice{
			{VoiceID: "v1", Name: "Liam", Category: "premade"},
			{VoiceID: "v2", Name: "Rachel", Category: "premade"},
		}})
	}))
	defer srv.Close()

	c := NewElevenLabs("test-key", "scribe_v1").WithBaseURL(srv.URL)
	voices, err := c.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices failed: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("Expected 2 voices, got %d", len(voices))
	}
	if voices[0].Name != "Liam" {
		t.Errorf("Unexpected first voice: %+v", voices[0])
	}
}
