package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tensorline/tensorline-backend/internal/api"
	"github.com/tensorline/tensorline-backend/internal/cache"
	"github.com/tensorline/tensorline-backend/internal/config"
	"github.com/tensorline/tensorline-backend/internal/content"
	"github.com/tensorline/tensorline-backend/internal/db"
	dbmemory "github.com/tensorline/tensorline-backend/internal/db/memory"
	"github.com/tensorline/tensorline-backend/internal/db/postgres"
	"github.com/tensorline/tensorline-backend/internal/log"
	"github.com/tensorline/tensorline-backend/internal/metrics"
	"github.com/tensorline/tensorline-backend/internal/report"
	"github.com/tensorline/tensorline-backend/pkg/kv"

	_ "github.com/tensorline/tensorline-backend/pkg/kv/memory"
	_ "github.com/tensorline/tensorline-backend/pkg/kv/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewSugar(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infow("Starting content API server",
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"db_backend", cfg.Database.Backend,
	)

	// Setup metrics
	metricsObj, metricsHandler, err := metrics.Setup("tensorline-api")
	if err != nil {
		logger.Fatalw("Failed to setup metrics", "error", err)
	}

	// Initialize the database backend
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var store db.Store
	switch cfg.Database.Backend {
	case "postgres":
		store, err = postgres.New(ctx, cfg.Database.PostgresDSN)
		if err != nil {
			logger.Fatalw("Failed to connect to postgres", "error", err)
		}
	default:
		store = dbmemory.New()
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		logger.Fatalw("Database ping failed", "error", err)
	}
	logger.Infow("Database initialized")

	// Setup the distributed cache tier when enabled
	var remote kv.Store
	if cfg.Cache.Distributed {
		remote, err = kv.NewStoreFromConfig(kv.Config{
			Backend:         kv.BackendRedis,
			RedisAddr:       cfg.Cache.RedisAddr,
			ProbeInterval:   cfg.Cache.ProbeInterval,
			FailoverEnabled: true,
			Logger: func(msg string, fields ...any) {
				logger.Infow(msg, fields...)
			},
		})
		if err != nil {
			logger.Fatalw("Failed to setup distributed cache", "error", err)
		}
	}

	contentCache := cache.New(cache.Options{
		MaxEntries: cfg.Cache.MaxEntries,
		Remote:     remote,
		Logger:     logger,
		Metrics:    metricsObj,
	})
	defer contentCache.Close()

	// Setup engines
	fetcher := content.NewFetcher(store, logger)
	syncEngine := content.NewSyncEngine(store, logger, metricsObj)
	lifecycle := content.NewLifecycle(store, content.NewAuditLogger(store), report.NewLogSink(logger), logger, metricsObj)

	// Setup API handler and middleware
	handler := api.NewHandler(fetcher, syncEngine, lifecycle, contentCache, store, cfg, logger)
	middleware := api.NewMiddleware(logger, metricsObj)

	router := handler.Routes(middleware, cfg.Security.CORSAllowedOrigins, cfg.Security.RateLimitRPM)

	logger.Infow("CORS configured", "allowed_origins", cfg.Security.CORSAllowedOrigins)

	// Add metrics endpoint
	router.Handle("/metrics", metricsHandler)

	// Setup HTTP server
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	serverErrors := make(chan error, 1)
	go func() {
		logger.Infow("API server starting", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Fatalw("Server startup failed", "error", err)
	case sig := <-shutdown:
		logger.Infow("Shutdown signal received", "signal", sig.String())

		// Give outstanding requests 30 seconds to complete
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorw("Graceful shutdown failed", "error", err)
			server.Close()
		}

		logger.Infow("Server stopped")
	}
}
