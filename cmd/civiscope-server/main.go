// Package main provides the Civiscope research server.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/civiscope/civiscope-go/internal/archive"
	"github.com/civiscope/civiscope-go/internal/config"
	"github.com/civiscope/civiscope-go/internal/db"
	"github.com/civiscope/civiscope-go/internal/directory"
	"github.com/civiscope/civiscope-go/internal/llm"
	"github.com/civiscope/civiscope-go/internal/metrics"
	"github.com/civiscope/civiscope-go/internal/search"
	"github.com/civiscope/civiscope-go/internal/server"
	"github.com/civiscope/civiscope-go/internal/service"
	"github.com/civiscope/civiscope-go/internal/stream"
)

func main() {
	wipeDB := flag.Bool("wipe", false, "wipe all persisted tasks on startup (testing only)")
	flag.Parse()

	cfg := config.Load()

	logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer cleanup()
	slog.SetDefault(logger)

	port, err := strconv.Atoi(cfg.ServerPort)
	if err != nil {
		slog.Error("invalid server port", "port", cfg.ServerPort, "error", err)
		os.Exit(1)
	}

	if cfg.TavilyAPIKey == "" {
		slog.Warn("TAVILY_API_KEY not set, search requests will fail")
	}

	fileArchive, err := archive.NewFileArchive(cfg.ResultsDir)
	if err != nil {
		slog.Error("failed to create results archive", "dir", cfg.ResultsDir, "error", err)
		os.Exit(1)
	}

	// Optional SurrealDB persistence.
	var dbClient *db.Client
	if cfg.PersistenceEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		dbClient, err = db.NewClient(ctx, db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			cancel()
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		if err := dbClient.InitSchema(ctx); err != nil {
			cancel()
			slog.Error("failed to initialize schema", "error", err)
			os.Exit(1)
		}
		if *wipeDB || os.Getenv("CIVISCOPE_WIPE_DB") == "true" {
			if err := dbClient.WipeData(ctx); err != nil {
				cancel()
				slog.Error("failed to wipe database", "error", err)
				os.Exit(1)
			}
			slog.Info("wiped persisted tasks")
		}
		cancel()
		defer func() {
			if err := dbClient.Close(context.Background()); err != nil {
				slog.Error("failed to close database", "error", err)
			}
		}()
	} else {
		slog.Info("task persistence disabled, running in-memory only")
	}

	// Optional LLM-backed summarizer.
	var summarizer service.Summarizer
	if cfg.LLMProvider != config.ProviderNone {
		model, err := llm.NewModel(cfg)
		if err != nil {
			slog.Error("failed to init llm model", "provider", cfg.LLMProvider, "error", err)
			os.Exit(1)
		}
		summarizer = service.NewLLMSummarizer(model)
		slog.Info("llm summarizer enabled", "provider", cfg.LLMProvider, "model", cfg.LLMModel)
	}

	hub := stream.NewHub()
	collector := metrics.NewCollector()
	orchestrator := service.New(service.Deps{
		Store:      service.NewTaskStore(),
		Hub:        hub,
		Adapter:    search.NewTavilyClient(cfg.TavilyBaseURL, cfg.TavilyAPIKey, cfg.TavilyTimeout),
		Directory:  directory.Default(),
		Summarizer: summarizer,
		Archive:    fileArchive,
		DB:         dbClient,
		Metrics:    collector,
		Pacing:     cfg.QueryPacing,
	})

	// Tasks interrupted by the previous shutdown cannot be resumed.
	if dbClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := orchestrator.ReconcileInterrupted(ctx); err != nil {
			slog.Warn("failed to reconcile interrupted tasks", "error", err)
		}
		cancel()
	}

	srv := server.New(port, orchestrator, hub, collector, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
