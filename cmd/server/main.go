package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mafadubu/google-docs-resizer/internal/api"
	"github.com/mafadubu/google-docs-resizer/internal/config"
	"github.com/mafadubu/google-docs-resizer/internal/docs"
	"github.com/mafadubu/google-docs-resizer/internal/metrics"
	"github.com/mafadubu/google-docs-resizer/internal/pipeline"
	"github.com/mafadubu/google-docs-resizer/internal/relay"
	"github.com/mafadubu/google-docs-resizer/internal/resize"
	"github.com/mafadubu/google-docs-resizer/internal/store"
)

func main() {
	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	preset, _ := cfg.Batch()
	strategy, _ := resize.ParseStrategy(cfg.Strategy)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := store.New(cfg.DBPath)
	if err != nil {
		log.Error("open store", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer db.Close()

	m := metrics.New()
	batchStats := pipeline.NewBatchStats(15 * time.Minute)

	// Image relay: the planner swaps source URIs for ticketed proxy URLs.
	rewriter := relay.NewRewriter(db, cfg.PublicBaseURL, cfg.TicketTTL)
	go relay.RunPurger(ctx, db, time.Minute, log)

	planner := resize.NewPlanner(strategy, rewriter, log)
	executor := pipeline.NewExecutor(pipeline.PolicyFromPreset(preset), log, m, batchStats)
	resizer := pipeline.NewResizer(planner, executor, db, m, log)

	orch := pipeline.NewOrchestrator(cfg, resizer, log)
	orch.Start(ctx)

	srv := api.NewServer(api.Deps{
		Orchestrator: orch,
		Docs: func(ctx context.Context, token string) pipeline.DocsAPI {
			return docs.NewClient(ctx, cfg.DocsAPIURL, token, cfg.DocsRateLimit)
		},
		Usage:      db,
		BatchStats: batchStats,
		Metrics:    m,
		Proxy:      relay.NewHandler(db, log),
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		// Running jobs stop at their next chunk boundary.
		orch.Stop()
		cancel()
	}()

	log.Info("starting docresizer",
		"port", cfg.Port,
		"preset", cfg.ChunkPreset,
		"chunk_size", preset.ChunkSize,
		"max_retries", preset.MaxRetries,
		"strategy", strategy,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
