// Artagent - multi-agent art appreciation debate server
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

	"github.com/CMSchuyler/Artagent-2.0-3/internal/agents"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/api"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/config"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/coze"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/debate"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/middleware"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/relevance"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/store"
	"github.com/CMSchuyler/Artagent-2.0-3/internal/stream"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
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

	slog.Info("Starting server", "port", cfg.Port, "api_base", cfg.CozeAPIBase)

	// Agent catalog.
	catalog := agents.Default()
	if cfg.AgentsConfig != "" {
		catalog, err = agents.LoadFile(cfg.AgentsConfig)
		if err != nil {
			slog.Error("Failed to load agent catalog", "path", cfg.AgentsConfig, "error", err)
			os.Exit(1)
		}
	}
	slog.Info("Agent catalog loaded", "agents", len(catalog.Titles()))

	// Session store: in-memory by default, SQLite when DB_PATH is set.
	var repo store.Repository
	if cfg.DBPath != "" {
		sqlRepo, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		if err := sqlRepo.Ping(context.Background()); err != nil {
			slog.Error("Database health check failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Database connected", "path", cfg.DBPath)
		repo = sqlRepo
	} else {
		repo = store.NewMemory()
		slog.Info("Using in-memory session store")
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()

	// Platform client, scorer, orchestrator, stream registry.
	platform := coze.NewClient(cfg.CozeAPIBase, cfg.CozeAPIToken,
		coze.WithPollInterval(cfg.PollInterval))
	scorer := relevance.NewScorer(catalog, nil)
	orch := debate.New(catalog, scorer, platform, repo, cfg.DebateMaxPolls)
	registry := stream.NewRegistry(cfg.StreamJobTTL)

	handler := api.NewHandler(repo, catalog, orch, registry, platform, cfg)

	// Setup router.
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	handler.RegisterRoutes(r)

	// Note: SSE connections require long timeouts (no WriteTimeout).
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry.StartSweeper(ctx, cfg.StreamSweepInterval)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
