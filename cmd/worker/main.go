package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/mealsnap/mealsnap/internal/config"
	"github.com/mealsnap/mealsnap/internal/jobs"
	"github.com/mealsnap/mealsnap/internal/logger"
	"github.com/mealsnap/mealsnap/internal/meallog"
	"github.com/mealsnap/mealsnap/internal/metrics"
	"github.com/mealsnap/mealsnap/internal/sentry"
	"github.com/mealsnap/mealsnap/internal/services/analysis"
	"github.com/mealsnap/mealsnap/internal/services/analyzer"
	"github.com/mealsnap/mealsnap/internal/services/provider"
	"github.com/mealsnap/mealsnap/internal/telemetry"
	"github.com/mealsnap/mealsnap/internal/worker"
)

func main() {
	defer func() {
		sentry.Recover()
	}()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.RedisURL == "" {
		log.Fatal("REDIS_URL is required for the worker")
	}

	// Initialize telemetry
	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.ServiceName+"-worker", cfg.ServiceVersion, cfg.Env,
			cfg.OtelExporterOTLPEndpoint, telemetry.ParseHeaders(cfg.OtelExporterOTLPHeaders))
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			defer shutdown(ctx)
		}
	}

	if err := sentry.Init(cfg.SentryDSN, cfg.Env, cfg.ServiceName+"-worker", cfg.ServiceVersion); err != nil {
		slog.Warn("Failed to init Sentry", "error", err)
	} else if cfg.SentryDSN != "" {
		defer sentry.Flush(2 * time.Second)
	}

	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	slog.SetDefault(logger.New(cfg.Env, cfg.LogLevel))

	registry := provider.CreateAllProviders(&cfg.Providers)

	meals, err := meallog.Open(ctx, cfg.MealLogDriver, cfg.MealLogDSN)
	if err != nil {
		log.Fatalf("Failed to open meal log: %v", err)
	}
	defer meals.Close()

	rdb, err := worker.NewRedisClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Invalid REDIS_URL: %v", err)
	}
	defer rdb.Close()

	result := worker.RunParallel(ctx, []worker.ParallelFunc{
		func(ctx context.Context) error {
			slog.Info("Provider health", "results", registry.CheckHealth(ctx, cfg.HealthCheckTimeout))
			return nil
		},
		func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, cfg.HealthCheckTimeout)
			defer cancel()
			return rdb.Ping(pingCtx).Err()
		},
	})
	for _, err := range result.Errors {
		slog.Warn("Startup dependency check failed", "error", err)
	}

	processor := worker.NewMealProcessor(
		analyzer.NewSet(analysis.NewService(registry)),
		meals,
		jobs.NewRedisStore(rdb, jobs.DefaultTTL),
	)

	srv, err := worker.NewServer(cfg.RedisURL, cfg.WorkerConcurrency)
	if err != nil {
		log.Fatalf("Failed to create worker: %v", err)
	}

	if err := worker.Start(srv, processor.Handlers()); err != nil {
		log.Fatalf("Worker failed to start: %v", err)
	}

	slog.Info("Worker started",
		"concurrency", cfg.WorkerConcurrency,
		"providers", registry.Names())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down worker...")
	srv.Shutdown()
}
