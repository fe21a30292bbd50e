package provider

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/voiceagent/voiceagent/internal/domain"
)

// transcribePrompt steers the model into transcription-only mode when it is
// used as the fallback speech-to-text provider.
const transcribePrompt = "Transcribe this audio recording verbatim. " +
	"Return only the spoken words, with no commentary. " +
	"If there is no intelligible speech, return an empty response."

// GeminiClient produces agent replies and doubles as the fallback
// transcription provider via multimodal input.
type GeminiClient struct {
	client *genai.Client
	model  string
	system string
}

// NewGemini dials the Gemini API. systemPrompt sets the agent persona used
// for every reply.
func NewGemini(ctx context.Context, apiKey, model, systemPrompt string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model, system: systemPrompt}, nil
}

// Reason generates the agent's reply to userText given the prior turns.
// Implements gateway.Reasoner.
func (g *GeminiClient) Reason(ctx context.Context, userText string, history []domain.Turn) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.Role(genai.RoleUser)
		if turn.Role == domain.RoleAgent {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(userText, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{}
	if g.system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(g.system, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("model returned an empty reply")
	}
	return text, nil
}

// Transcribe asks the model to transcribe raw audio. An empty transcript is
// not an error: it means no speech was detected. Implements
// gateway.Transcriber as the secondary provider.
func (g *GeminiClient) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromText(transcribePrompt),
		genai.NewPartFromBytes(audio, mimeType),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("transcribe audio: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
