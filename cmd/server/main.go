// NUX - lead coaching chat server
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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/ashureev/nux-coach/internal/api"
	"github.com/ashureev/nux-coach/internal/chatws"
	"github.com/ashureev/nux-coach/internal/config"
	"github.com/ashureev/nux-coach/internal/conversation"
	"github.com/ashureev/nux-coach/internal/convlog"
	"github.com/ashureev/nux-coach/internal/identity"
	"github.com/ashureev/nux-coach/internal/llm"
	"github.com/ashureev/nux-coach/internal/metrics"
	"github.com/ashureev/nux-coach/internal/middleware"
	"github.com/ashureev/nux-coach/internal/store"
	"github.com/ashureev/nux-coach/internal/sweeper"
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

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "db_driver", cfg.DB.Driver)

	repo, err := store.Open(cfg.DB.Driver, cfg.DBTarget())
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	slog.Info("Database connected")

	m := metrics.NewMetrics()

	generator := newGenerator(cfg, logger)
	transcriber := newTranscriber(cfg, logger)

	convLogger, err := convlog.New(convlog.Config{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := convLogger.Close(); closeErr != nil {
			slog.Warn("Failed to close conversation logger", "error", closeErr)
		}
	}()

	engine := conversation.New(conversation.Options{
		Store:         repo,
		Generator:     generator,
		Transcriber:   transcriber,
		ConvLog:       convLogger,
		Metrics:       m,
		Logger:        logger,
		Generation:    cfg.LLM.Generation,
		HistoryLimit:  cfg.Session.HistoryLimit,
		ContextWindow: cfg.Session.ContextWindow,
	})

	apiHandler := api.NewHandler(engine, repo, cfg, m)
	defer apiHandler.Close()

	connections := chatws.NewManager()
	wsHandler := chatws.NewHandler(engine, repo, connections, cfg.FrontendURL, cfg.IsDevelopment())

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(middleware.AllowedOrigins(cfg.FrontendURL)))
	r.Use(middleware.Metrics(m))

	// Public routes.
	r.Get("/health", apiHandler.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment()))
		apiHandler.RegisterRoutes(r)
		r.Get("/ws/chat", wsHandler.ServeHTTP)
	})

	// Note: SSE connections require long timeouts (no WriteTimeout)
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweep := sweeper.New(sweeper.Config{
		Interval:  cfg.Session.SweepInterval,
		IdleTTL:   cfg.Session.IdleTTL,
		Retention: cfg.Retention(),
	}, engine, repo, m)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sweep.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")

		connections.CloseAll("server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// newGenerator returns nil when no model is configured; the engine then
// answers with scripted text only.
func newGenerator(cfg *config.Config, logger *slog.Logger) llm.Generator {
	gcfg := llm.DefaultGeneratorConfig()
	gcfg.BaseURL = cfg.LLM.BaseURL
	gcfg.APIKey = cfg.LLM.APIKey
	gcfg.Model = cfg.LLM.Model
	gcfg.Temperature = cfg.LLM.Temperature
	gcfg.MaxTokens = cfg.LLM.MaxTokens
	gcfg.PresencePenalty = cfg.LLM.PresencePenalty
	gcfg.FrequencyPenalty = cfg.LLM.FrequencyPenalty
	gcfg.Timeout = cfg.LLM.Timeout
	gcfg.RequestsPerSecond = cfg.LLM.RequestsPerSecond

	gen, err := llm.NewOpenAIGenerator(gcfg, logger)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			slog.Info("Text generation disabled (OPENAI_API_KEY not set)")
		} else {
			slog.Warn("Failed to initialize text generation, continuing scripted", "error", err)
		}
		return nil
	}
	slog.Info("Text generation enabled", "model", gcfg.Model, "generation", cfg.LLM.Generation)
	return gen
}

func newTranscriber(cfg *config.Config, logger *slog.Logger) llm.Transcriber {
	tcfg := llm.DefaultTranscriberConfig()
	tcfg.BaseURL = cfg.Transcription.BaseURL
	tcfg.APIKey = cfg.Transcription.APIKey
	tcfg.Model = cfg.Transcription.Model
	tcfg.Language = cfg.Transcription.Language
	tcfg.Timeout = cfg.Transcription.Timeout

	t, err := llm.NewWhisperTranscriber(tcfg, logger)
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			slog.Info("Transcription disabled (TRANSCRIPTION_API_KEY not set)")
		} else {
			slog.Warn("Failed to initialize transcription", "error", err)
		}
		return nil
	}
	return t
}
