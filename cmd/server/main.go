// Package main is the entry point for the pharmaledger API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"pharmaledger/internal/app"
	"pharmaledger/internal/config"
	v1 "pharmaledger/internal/infrastructure/http/v1"
	"pharmaledger/internal/infrastructure/http/v1/handlers"
	"pharmaledger/internal/infrastructure/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Infow("starting pharmaledger server", "version", cfg.Version, "sequence_backend", cfg.SequenceBackend)

	infra, err := app.Connect(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to connect", "error", err)
	}
	defer infra.Close()

	services, err := infra.Services(cfg)
	if err != nil {
		log.Fatalw("failed to assemble services", "error", err)
	}

	checks := map[string]handlers.Check{
		"database": func(ctx context.Context) error { return infra.Pool.Ping(ctx) },
	}
	if infra.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return infra.Redis.Ping(ctx).Err() }
	}

	routerCfg := v1.RouterConfig{
		Services:     services,
		Logger:       log,
		HealthChecks: checks,
		Version:      cfg.Version,
	}
	if cfg.IdempotencyEnabled {
		routerCfg.Idempotency = postgres.NewIdempotencyStore(infra.TxManager, cfg.IdempotencyTTL)
	}

	if !cfg.Development() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := v1.NewRouter(routerCfg)

	server := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.AppPort, "idempotency", cfg.IdempotencyEnabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	postgres.LogPoolStats(shutdownCtx, infra.Pool)

	log.Info("server stopped")
}
