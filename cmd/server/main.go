package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyber-sensei/backend/internal/catalog"
	"github.com/cyber-sensei/backend/internal/engine"
	"github.com/cyber-sensei/backend/internal/httpapi"
	"github.com/cyber-sensei/backend/internal/learner"
	"github.com/cyber-sensei/backend/internal/platform/cache"
	"github.com/cyber-sensei/backend/internal/platform/config"
	"github.com/cyber-sensei/backend/internal/platform/database"
	"github.com/cyber-sensei/backend/internal/progress"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Seeds always load into memory first; a configured database catalog
	// is populated from them only when empty.
	seedCatalog := catalog.NewMemoryStore()
	if _, err := catalog.LoadSeedDir(cfg.SeedDir, seedCatalog); err != nil {
		slog.Warn("seed loading failed", "dir", cfg.SeedDir, "error", err)
	}

	var (
		catalogStore catalog.Store        = seedCatalog
		recordStore  progress.Store       = progress.NewMemoryStore()
		learnerStore learner.Store        = learner.NewMemoryStore()
		events       progress.EventLogger = progress.NopEventLogger{}
		ready        func(context.Context) error
	)

	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, database.Options{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		catalogPG, err := catalog.NewPostgresStore(ctx, db.Pool)
		if err != nil {
			slog.Error("catalog store init failed", "error", err)
			os.Exit(1)
		}
		if err := importSeeds(ctx, seedCatalog, catalogPG); err != nil {
			slog.Error("catalog seeding failed", "error", err)
			os.Exit(1)
		}
		catalogStore = catalogPG

		recordsPG, err := progress.NewPostgresStore(ctx, db.Pool)
		if err != nil {
			slog.Error("progress store init failed", "error", err)
			os.Exit(1)
		}
		recordStore = recordsPG

		learnersPG, err := learner.NewPostgresStore(ctx, db.Pool)
		if err != nil {
			slog.Error("learner store init failed", "error", err)
			os.Exit(1)
		}
		learnerStore = learnersPG

		eventsPG, err := progress.NewPostgresEventLogger(ctx, db.Pool)
		if err != nil {
			slog.Error("event logger init failed", "error", err)
			os.Exit(1)
		}
		events = eventsPG

		ready = db.HealthCheck
	}

	var dashCache *cache.Cache
	if cfg.Cache.URL != "" {
		dashCache, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			slog.Error("cache connection failed", "error", err)
			os.Exit(1)
		}
		defer dashCache.Close()
	}

	estimator := engine.NewEstimator(engine.EstimatorConfig{
		Records:  recordStore,
		Catalog:  catalogStore,
		Learners: learnerStore,
	})
	selector := engine.NewSelector(engine.SelectorConfig{
		Records:  recordStore,
		Catalog:  catalogStore,
		Learners: learnerStore,
		Ranker:   buildRanker(cfg.Engine.Ranker),
	})

	api := httpapi.NewServer(httpapi.ServerConfig{
		Grader:       engine.NewGrader(catalogStore),
		Estimator:    estimator,
		Selector:     selector,
		Catalog:      catalogStore,
		Learners:     learnerStore,
		Events:       events,
		Cache:        dashCache,
		DashboardTTL: time.Duration(cfg.Cache.DashboardTTL) * time.Second,
		Ready:        ready,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      api.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT.
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// importSeeds copies the file-based catalog into an empty database catalog.
func importSeeds(ctx context.Context, src *catalog.MemoryStore, dst *catalog.PostgresStore) error {
	empty, err := dst.Empty(ctx)
	if err != nil {
		return err
	}
	if !empty {
		return nil
	}

	topics, err := src.AllTopics(ctx)
	if err != nil {
		return err
	}
	for _, t := range topics {
		questions, err := src.Questions(ctx, t.ID)
		if err != nil {
			return err
		}
		if err := dst.ImportTopic(ctx, t, questions); err != nil {
			return fmt.Errorf("import topic %d: %w", t.ID, err)
		}
	}

	slog.Info("database catalog seeded", "topics", len(topics))
	return nil
}

func buildRanker(name string) engine.Ranker {
	if name == "catalog-order" {
		return engine.CatalogOrderRanker{}
	}
	return engine.OrderDifficultyRanker{}
}
