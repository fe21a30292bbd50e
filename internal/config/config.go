// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string

	ElevenLabs ElevenLabsConfig
	Gemini     GeminiConfig
	Agent      AgentConfig
	Voice      VoiceConfig
	Limits     LimitsConfig
	TurnLog    TurnLogConfig

	// ProviderTimeout bounds each outbound provider call, not the whole turn.
	ProviderTimeout time.Duration
}

// ElevenLabsConfig holds the speech provider settings.
type ElevenLabsConfig struct {
	APIKey     string
	VoiceID    string
	ModelID    string
	STTModelID string
}

// GeminiConfig holds the reasoning model settings.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// AgentConfig holds the agent's identity and persona.
type AgentConfig struct {
	Name         string
	SystemPrompt string
}

// VoiceConfig holds the synthesis voice tuning parameters.
type VoiceConfig struct {
	Stability       float64
	SimilarityBoost float64
	Style           float64
	Speed           float64
}

// LimitsConfig holds the request size limits.
type LimitsConfig struct {
	MaxAudioBytes int64
	MaxTTSChars   int
}

// TurnLogConfig controls the SQLite turn audit log.
type TurnLogConfig struct {
	Enabled   bool
	DBPath    string
	QueueSize int
}

const defaultSystemPrompt = "You are a friendly, concise voice assistant. " +
	"Answer naturally in a few sentences, as if speaking out loud. " +
	"Avoid lists, markdown and long monologues."

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("TURN_LOG_QUEUE_SIZE", 256)
	if queueSize <= 0 {
		queueSize = 256
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		ElevenLabs: ElevenLabsConfig{
			APIKey:     getEnv("ELEVENLABS_API_KEY", ""),
			VoiceID:    getEnv("ELEVENLABS_VOICE_ID", "TX3LPaxmHKxFdv7VOQHJ"),
			ModelID:    getEnv("ELEVENLABS_MODEL_ID", "eleven_v3"),
			STTModelID: getEnv("ELEVENLABS_STT_MODEL_ID", "scribe_v1"),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		Agent: AgentConfig{
			Name:         getEnv("AGENT_NAME", "Liam"),
			SystemPrompt: getEnv("AGENT_SYSTEM_PROMPT", defaultSystemPrompt),
		},
		Voice: VoiceConfig{
			Stability:       getEnvFloat("VOICE_STABILITY", 0.5),
			SimilarityBoost: getEnvFloat("VOICE_SIMILARITY_BOOST", 0.8),
			Style:           getEnvFloat("VOICE_STYLE", 0.4),
			Speed:           getEnvFloat("VOICE_SPEED", 1.0),
		},
		Limits: LimitsConfig{
			MaxAudioBytes: int64(getEnvInt("MAX_AUDIO_BYTES", 25<<20)),
			MaxTTSChars:   getEnvInt("MAX_TTS_CHARS", 5000),
		},
		TurnLog: TurnLogConfig{
			Enabled:   getEnvBool("TURN_LOG_ENABLED", true),
			DBPath:    getEnv("TURN_LOG_DB_PATH", "./data/turns.db"),
			QueueSize: queueSize,
		},
		ProviderTimeout: time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 60)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.ElevenLabs.APIKey == "" {
		return fmt.Errorf("ELEVENLABS_API_KEY is required")
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.ElevenLabs.VoiceID == "" {
		return fmt.Errorf("ELEVENLABS_VOICE_ID cannot be empty")
	}
	if c.Limits.MaxAudioBytes <= 0 {
		return fmt.Errorf("MAX_AUDIO_BYTES must be > 0")
	}
	if c.Limits.MaxTTSChars <= 0 {
		return fmt.Errorf("MAX_TTS_CHARS must be > 0")
	}
	if c.TurnLog.Enabled && c.TurnLog.DBPath == "" {
		return fmt.Errorf("TURN_LOG_DB_PATH cannot be empty")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT_SECONDS must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}
