// Package provider implements clients for the remote speech and reasoning
// services consumed through the gateway interfaces.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/voiceagent/voiceagent/internal/domain"
)

const elevenLabsDefaultBaseURL = "https://api.elevenlabs.io/v1"

// errorBodyLimit caps how much of a provider error body is kept for the
// error message.
const errorBodyLimit = 512

// ElevenLabsClient talks to the ElevenLabs speech APIs: text-to-speech,
// speech-to-text and the voice catalog.
type ElevenLabsClient struct {
	apiKey     string
	baseURL    string
	sttModelID string
	httpClient *http.Client
}

// NewElevenLabs creates a client with the default HTTP transport.
// sttModelID selects the transcription model (e.g. "scribe_v1").
func NewElevenLabs(apiKey, sttModelID string) *ElevenLabsClient {
	return NewElevenLabsWithClient(apiKey, sttModelID, nil)
}

// NewElevenLabsWithClient creates a client using a caller-supplied HTTP
// client, mainly for tests.
func NewElevenLabsWithClient(apiKey, sttModelID string, client *http.Client) *ElevenLabsClient {
	if client == nil {
		client = &http.Client{}
	}
	return &ElevenLabsClient{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    elevenLabsDefaultBaseURL,
		sttModelID: sttModelID,
		httpClient: client,
	}
}

// WithBaseURL overrides the API base URL. Used by tests.
func (c *ElevenLabsClient) WithBaseURL(base string) *ElevenLabsClient {
	base = strings.TrimSuffix(strings.TrimSpace(base), "/")
	if base != "" {
		c.baseURL = base
	}
	return c
}

type ttsRequest struct {
	Text          string           `json:"text"`
	ModelID       string           `json:"model_id"`
	VoiceSettings ttsVoiceSettings `json:"voice_settings"`
}

type ttsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	Speed           float64 `json:"speed,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Synthesize converts text to MP3 bytes. Implements gateway.Synthesizer.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, text string, profile domain.VoiceProfile) ([]byte, error) {
	payload, err := json.Marshal(ttsRequest{
		Text:    text,
		ModelID: profile.ModelID,
		VoiceSettings: ttsVoiceSettings{
			Stability:       profile.Stability,
			SimilarityBoost: profile.SimilarityBoost,
			Style:           profile.Style,
			Speed:           profile.Speed,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=mp3_44100_128", c.baseURL, profile.VoiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create synthesis request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("text-to-speech", resp)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read synthesis response: %w", err)
	}
	return audio, nil
}

type sttResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads one utterance for transcription. Implements
// gateway.Transcriber as the primary provider.
func (c *ElevenLabsClient) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", "audio"+extensionForMIME(mimeType))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}
	if err := mw.WriteField("model_id", c.sttModelID); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speech-to-text", &buf)
	if err != nil {
		return "", fmt.Errorf("create transcription request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", apiError("speech-to-text", resp)
	}

	var result sttResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}
	return strings.TrimSpace(result.Text), nil
}

// Voice is one entry of the provider's voice catalog.
type Voice struct {
	VoiceID     string `json:"voice_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	PreviewURL  string `json:"preview_url"`
}

type voicesResponse struct {
	Voices []Voice `json:"voices"`
}

// Voices fetches the available voices.
func (c *ElevenLabsClient) Voices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("create voices request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voices request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("voices", resp)
	}

	var result voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode voices response: %w", err)
	}
	return result.Voices, nil
}

// apiError builds an error from a non-2xx provider response, keeping a
// bounded snippet of the body.
func apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	snippet := strings.TrimSpace(string(body))
	if snippet == "" {
		return fmt.Errorf("elevenlabs %s: status %d", op, resp.StatusCode)
	}
	return fmt.Errorf("elevenlabs %s: status %d: %s", op, resp.StatusCode, snippet)
}

// extensionForMIME picks a filename extension for the multipart upload.
func extensionForMIME(mimeType string) string {
	switch mimeType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	case "audio/mp4":
		return ".m4a"
	case "audio/flac":
		return ".flac"
	default:
		return ".webm"
	}
}
