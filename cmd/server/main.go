// Voice agent server: real-time voice conversations over WebSocket plus a
// REST surface for the individual speech and chat operations.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/voiceagent/voiceagent/internal/api"
	"github.com/voiceagent/voiceagent/internal/audit"
	"github.com/voiceagent/voiceagent/internal/config"
	"github.com/voiceagent/voiceagent/internal/domain"
	"github.com/voiceagent/voiceagent/internal/gateway"
	"github.com/voiceagent/voiceagent/internal/middleware"
	"github.com/voiceagent/voiceagent/internal/pipeline"
	"github.com/voiceagent/voiceagent/internal/provider"
	"github.com/voiceagent/voiceagent/internal/realtime"
	"github.com/voiceagent/voiceagent/internal/store"
	"github.com/voiceagent/voiceagent/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "agent", cfg.Agent.Name, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Turn audit log (optional).
	var turnLog pipeline.TurnRecorder
	if cfg.TurnLog.Enabled {
		tl, err := audit.NewTurnLogger(cfg.TurnLog.DBPath, cfg.TurnLog.QueueSize, logger)
		if err != nil {
			slog.Error("Failed to initialize turn log", "error", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := tl.Close(); closeErr != nil {
				slog.Error("Failed to close turn log", "error", closeErr)
			}
		}()
		turnLog = tl
		slog.Info("Turn log enabled", "path", cfg.TurnLog.DBPath)
	}

	// Providers.
	elevenlabs := provider.NewElevenLabs(cfg.ElevenLabs.APIKey, cfg.ElevenLabs.STTModelID)
	gemini, err := provider.NewGemini(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Agent.SystemPrompt)
	if err != nil {
		slog.Error("Failed to initialize reasoning provider", "error", err)
		os.Exit(1)
	}

	// Conversation state and gateways.
	conversations := store.NewMemoryStore()
	profile := domain.VoiceProfile{
		VoiceID:         cfg.ElevenLabs.VoiceID,
		ModelID:         cfg.ElevenLabs.ModelID,
		Stability:       cfg.Voice.Stability,
		SimilarityBoost: cfg.Voice.SimilarityBoost,
		Style:           cfg.Voice.Style,
		Speed:           cfg.Voice.Speed,
	}

	transcription := gateway.NewTranscriptionGateway(elevenlabs, gemini, cfg.ProviderTimeout)
	synthesis := gateway.NewSynthesisGateway(elevenlabs, profile, cfg.Limits.MaxTTSChars, cfg.ProviderTimeout)
	reasoning := gateway.NewReasoningGateway(gemini, conversations, cfg.ProviderTimeout)

	orchestrator := pipeline.NewOrchestrator(transcription, reasoning, synthesis, turnLog)

	// Handlers.
	sm := realtime.NewSessionManager()
	wsHandler := realtime.NewHandler(orchestrator, conversations, sm, cfg.Agent.Name)
	restHandler := api.NewHandler(transcription, synthesis, reasoning, orchestrator,
		elevenlabs, conversations, cfg.Agent.Name, cfg.Limits.MaxAudioBytes)

	// Setup router.
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	restHandler.RegisterRoutes(r)
	r.Get("/ws/voice", wsHandler.ServeHTTP)
	r.Handle("/app/*", http.StripPrefix("/app", web.Handler()))

	// WebSocket sessions need long-lived connections, so no write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	sm.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
