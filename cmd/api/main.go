package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nahida-ai/nahida/internal/api"
	"github.com/nahida-ai/nahida/internal/chat"
	"github.com/nahida-ai/nahida/internal/config"
	"github.com/nahida-ai/nahida/internal/database"
	"github.com/nahida-ai/nahida/internal/gateway"
	"github.com/nahida-ai/nahida/internal/journal"
	inats "github.com/nahida-ai/nahida/internal/nats"
	"github.com/nahida-ai/nahida/internal/orchestrator"
	"github.com/nahida-ai/nahida/internal/prompt"
	"github.com/nahida-ai/nahida/internal/server"
	"github.com/nahida-ai/nahida/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Reference voice
	voices, err := voice.Load(cfg.Voice.ReferencePath, cfg.Voice.Transcript)
	if err != nil {
		slog.Error("loading reference voice", "error", err)
		os.Exit(1)
	}

	// Persona
	persona := prompt.DefaultPersona()
	if cfg.Pipeline.PersonaFile != "" {
		persona, err = prompt.LoadPersona(cfg.Pipeline.PersonaFile)
		if err != nil {
			slog.Error("loading persona", "error", err)
			os.Exit(1)
		}
	}
	composer := prompt.NewComposer(persona, cfg.Pipeline.NegativePrompts)

	gen := gateway.NewClient(gateway.Config{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
	})

	// PostgreSQL (optional run journal)
	var pool *pgxpool.Pool
	if cfg.DB.Enabled() {
		if err := database.RunMigrations(cfg.DB.DSN(), cfg.DB.MigrationsPath); err != nil {
			slog.Error("running migrations", "error", err)
			os.Exit(1)
		}
		pool, err = database.NewPostgresPool(ctx, cfg.DB)
		if err != nil {
			slog.Error("connecting to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	}

	// NATS (optional run events)
	var natsClient *inats.Client
	if cfg.NATS.Enabled() {
		natsClient, err = inats.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
	}

	var recorder orchestrator.Recorder
	switch {
	case natsClient != nil:
		recorder = journal.NewPublishingRecorder(inats.NewPublisher(natsClient.JetStream()))
		if pool != nil {
			consumer := journal.NewConsumer(journal.NewRepository(pool), inats.NewConsumerManager(natsClient.JetStream()))
			go func() {
				if err := consumer.Start(ctx); err != nil {
					slog.Error("run journal consumer stopped", "error", err)
				}
			}()
		}
	case pool != nil:
		recorder = journal.NewStoreRecorder(journal.NewRepository(pool))
	}

	pipeline := orchestrator.New(gen, composer, voices, orchestrator.Options{
		ChatModel:           cfg.Models.Chat,
		PromptEngineerModel: cfg.Models.PromptEngineer,
		ImageModel:          cfg.Models.Image,
		SpeechModel:         cfg.Models.Speech,
		MaxTokens:           cfg.Generation.MaxTokens,
		Temperature:         cfg.Generation.Temperature,
		ArtMaxTokens:        cfg.Generation.ArtMaxTokens,
		ArtTemperature:      cfg.Generation.ArtTemperature,
		ImageSize:           cfg.Generation.ImageSize,
		SpeechFormat:        cfg.Generation.SpeechFormat,
	}, recorder)

	chatHandler := chat.NewHandler(pipeline, cfg.Server.CORSOrigins)

	handlers := api.HandlerSet{
		Chat:   chatHandler.Stream,
		Socket: chatHandler.Socket,
	}
	if pool != nil {
		handlers.RecentRuns = journal.NewHandler(journal.NewRepository(pool)).Recent
	}

	// Router
	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		IndexFile:          cfg.Server.IndexFile,
	}, handlers)

	slog.Info("nahida ready",
		"addr", cfg.Server.Addr(),
		"chat_model", cfg.Models.Chat,
		"image_model", cfg.Models.Image,
		"speech_model", cfg.Models.Speech,
		"negative_prompts", cfg.Pipeline.NegativePrompts,
		"journal", pool != nil || natsClient != nil,
	)

	// Start server
	srv := server.New(cfg.Server, router)
	srv.OnShutdown(chatHandler.Shutdown)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
