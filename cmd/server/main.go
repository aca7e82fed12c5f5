package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	_ "github.com/joho/godotenv/autoload"
	"github.com/mealsnap/mealsnap/internal/api"
	"github.com/mealsnap/mealsnap/internal/config"
	"github.com/mealsnap/mealsnap/internal/jobs"
	"github.com/mealsnap/mealsnap/internal/logger"
	"github.com/mealsnap/mealsnap/internal/mcp"
	"github.com/mealsnap/mealsnap/internal/meallog"
	"github.com/mealsnap/mealsnap/internal/metrics"
	"github.com/mealsnap/mealsnap/internal/middleware"
	"github.com/mealsnap/mealsnap/internal/sentry"
	"github.com/mealsnap/mealsnap/internal/services/analysis"
	"github.com/mealsnap/mealsnap/internal/services/analyzer"
	"github.com/mealsnap/mealsnap/internal/services/provider"
	"github.com/mealsnap/mealsnap/internal/telemetry"
	"github.com/mealsnap/mealsnap/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/riandyrn/otelchi"
	otelchimetric "github.com/riandyrn/otelchi/metric"
	"go.opentelemetry.io/otel"
)

func main() {
	defer sentry.Recover()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize telemetry
	if cfg.OtelExporterOTLPEndpoint != "" {
		shutdown, err := telemetry.InitTelemetry(ctx, cfg.ServiceName, cfg.ServiceVersion, cfg.Env,
			cfg.OtelExporterOTLPEndpoint, telemetry.ParseHeaders(cfg.OtelExporterOTLPHeaders))
		if err != nil {
			slog.Warn("Failed to init telemetry", "error", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	metricsHandler, shutdownMetrics, err := telemetry.InitMetrics(ctx, cfg.ServiceName, cfg.ServiceVersion, cfg.Env)
	if err != nil {
		slog.Warn("Failed to init metrics exporter", "error", err)
	} else {
		defer shutdownMetrics(context.Background())
	}

	if err := sentry.Init(cfg.SentryDSN, cfg.Env, cfg.ServiceName, cfg.ServiceVersion); err != nil {
		slog.Warn("Failed to init Sentry", "error", err)
	} else if cfg.SentryDSN != "" {
		defer sentry.Flush(2 * time.Second)
	}

	// Instruments are bound to the meter provider installed above.
	if err := metrics.Init(); err != nil {
		slog.Warn("Failed to init business metrics", "error", err)
	}

	slog.SetDefault(logger.New(cfg.Env, cfg.LogLevel))

	registry := provider.CreateAllProviders(&cfg.Providers)
	if registry.Len() == 0 {
		slog.Warn("No AI providers configured; every analysis will fail")
	}

	meals, err := meallog.Open(ctx, cfg.MealLogDriver, cfg.MealLogDSN)
	if err != nil {
		log.Fatalf("Failed to open meal log: %v", err)
	}
	defer meals.Close()

	// Asynchronous jobs need Redis; without it the job endpoints answer 503.
	var (
		jobStore jobs.Store
		queue    worker.Enqueuer
		rdb      *redis.Client
	)
	if cfg.RedisURL != "" {
		rdb, err = worker.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		defer rdb.Close()
		jobStore = jobs.NewRedisStore(rdb, jobs.DefaultTTL)

		asynqClient, err := worker.NewClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to create task client: %v", err)
		}
		defer asynqClient.Close()
		queue = asynqClient
	}

	checkDependencies(ctx, cfg, registry, rdb)

	analyzers := analyzer.NewSet(analysis.NewService(registry))
	apiServer := api.NewServer(analyzers, registry, meals, jobStore, queue, cfg.AnalysisTimeout)

	// Router
	r := chi.NewRouter()

	r.Use(sentry.HTTPMiddleware)
	r.Use(otelchi.Middleware(cfg.ServiceName,
		otelchi.WithChiRoutes(r),
		otelchi.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	))

	// HTTP metrics
	metricCfg := otelchimetric.NewBaseConfig(cfg.ServiceName, otelchimetric.WithMeterProvider(otel.GetMeterProvider()))
	r.Use(otelchimetric.NewRequestDurationMillis(metricCfg))
	r.Use(otelchimetric.NewRequestInFlight(metricCfg))
	r.Use(otelchimetric.NewResponseSizeBytes(metricCfg))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	apiServer.Routes(r, middleware.AuthMiddleware(cfg), mcp.NewHandler(analyzers, meals), metricsHandler)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("Starting server",
		"port", cfg.Port,
		"providers", registry.Names(),
		"default_provider", registry.DefaultName(),
		"meal_log", cfg.MealLogDriver)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Server failed: %v", err)
	}
}

// checkDependencies checks providers and Redis concurrently. Failures are
// logged; the server starts regardless.
func checkDependencies(ctx context.Context, cfg *config.Config, registry *provider.Registry, rdb *redis.Client) {
	checks := []worker.ParallelFunc{
		func(ctx context.Context) error {
			health := registry.CheckHealth(ctx, cfg.HealthCheckTimeout)
			slog.Info("Provider health", "results", health)
			return nil
		},
	}
	if rdb != nil {
		checks = append(checks, func(ctx context.Context) error {
			pingCtx, cancel := context.WithTimeout(ctx, cfg.HealthCheckTimeout)
			defer cancel()
			return rdb.Ping(pingCtx).Err()
		})
	}

	for _, err := range worker.RunParallel(ctx, checks).Errors {
		slog.Warn("Startup dependency check failed", "error", err)
	}
}
