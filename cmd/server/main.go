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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/neexbeast/itinera/internal/api"
	"github.com/neexbeast/itinera/internal/budget"
	"github.com/neexbeast/itinera/internal/cache"
	"github.com/neexbeast/itinera/internal/catalog"
	"github.com/neexbeast/itinera/internal/config"
	"github.com/neexbeast/itinera/internal/flights"
	"github.com/neexbeast/itinera/internal/planner"
	"github.com/neexbeast/itinera/internal/storage"
	"github.com/neexbeast/itinera/internal/summary"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	// Connect to PostgreSQL.
	pool, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := storage.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("migrations applied", "dir", cfg.MigrationsDir)

	// Connect to Redis.
	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	log.Info("catalog loaded", "destinations", cat.Len())

	opt, err := budget.SelectOptimizer(cfg.FitSolver, cfg.FitSolverTimeout)
	if err != nil {
		return fmt.Errorf("selecting fit solver: %w", err)
	}
	fitter := budget.NewFitter(opt, cfg.FitSolverTimeout)
	log.Info("budget fitter ready", "strategy", fitter.Strategy())

	// Wire dependencies.
	repo := storage.NewRepository(pool)
	cacheLayer := cache.NewCache(redisClient, cfg.PriceCacheDuration)

	var quotes planner.Quoter
	if cfg.FlightsEnabled() {
		amadeus := flights.NewAmadeusClient(cfg.AmadeusClientID, cfg.AmadeusClientSecret, cfg.AmadeusEnv)
		quotes = flights.NewQuoter(amadeus, cacheLayer, cfg.FlightOrigin, log)
		log.Info("live flight prices enabled", "env", cfg.AmadeusEnv, "origin", cfg.FlightOrigin)
	} else {
		log.Info("live flight prices disabled, using catalog prices")
	}

	var model summary.Model
	if cfg.GeminiAPIKey != "" {
		gemini, err := summary.NewGemini(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return fmt.Errorf("creating gemini client: %w", err)
		}
		defer func() { _ = gemini.Close() }()
		model = gemini
	}
	notes := summary.New(model, log)

	metrics := planner.NewMetrics(prometheus.DefaultRegisterer)
	svc := planner.NewService(cat, fitter, quotes, notes, repo, metrics, log)
	handlers := api.NewHandlers(svc, repo, log)

	router := api.NewRouter(handlers, api.RouterConfig{
		Token:              cfg.BearerToken,
		FreePlanLimit:      cfg.FreePlanLimit,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSOrigins:        cfg.CORSOrigins,
	}, pool, cache.Pinger{Client: redisClient}, cacheLayer, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}
