package main

import (
	"context"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"grimoire-editor/internal/config"
	"grimoire-editor/internal/http"
	"grimoire-editor/internal/importer"
	"grimoire-editor/internal/retrieval"
	"grimoire-editor/internal/session"
	"grimoire-editor/internal/storage"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	noteRepo := storage.NewNoteRepo(db)

	// Bootstrap the note store from a directory of markdown files when one
	// is configured. Re-imports upsert by note id, so restarts are safe.
	if cfg.NotesDir != "" {
		ctx := context.Background()
		count, err := importer.New(cfg.NotesDir, noteRepo).Run(ctx)
		if err != nil {
			log.Fatalf("Failed to import notes: %v", err)
		}
		slog.Info("Notes imported", "dir", cfg.NotesDir, "count", count)
	}

	// The retrieval backend is optional; without it sessions simply issue no
	// context queries.
	deps := &http.Deps{
		DB:           db,
		Notes:        noteRepo,
		Registry:     session.NewRegistry(),
		ContextLimit: cfg.ContextLimit,
	}
	if cfg.RetrievalBaseURL != "" {
		client := retrieval.NewClient(cfg.RetrievalBaseURL)
		deps.Querier = client
		deps.Retrieval = client
		slog.Info("Retrieval backend configured", "base_url", cfg.RetrievalBaseURL, "context_limit", cfg.ContextLimit)
	}

	router := http.NewRouter(deps)

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
