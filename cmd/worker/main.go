// Package main is the entry point for the pharmaledger background worker.
// It relays the transactional outbox to Redis pub/sub and prunes expired
// idempotency keys and delivered outbox rows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"pharmaledger/internal/app"
	"pharmaledger/internal/config"
	redisinfra "pharmaledger/internal/infrastructure/redis"
	"pharmaledger/internal/infrastructure/storage/postgres"
	"pharmaledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Require("DATABASE_URL", "REDIS_URL"); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	log, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting pharmaledger worker")

	infra, err := app.Connect(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to connect", "error", err)
	}
	defer infra.Close()

	worker := &Worker{
		relay:       postgres.NewOutboxRelay(infra.TxManager, cfg.OutboxBatchSize, redisinfra.NewPublisher(infra.Redis)),
		idempotency: postgres.NewIdempotencyStore(infra.TxManager, cfg.IdempotencyTTL),
		pool:        infra.Pool,
		interval:    cfg.OutboxPollInterval,
		log:         log.WithComponent("worker"),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker runs the periodic jobs.
type Worker struct {
	relay       *postgres.OutboxRelay
	idempotency *postgres.IdempotencyStore
	pool        *postgres.Pool
	interval    time.Duration
	log         *logger.Logger
}

// publishedRetention is how long delivered outbox rows are kept.
const publishedRetention = 7 * 24 * time.Hour

// Run polls the outbox until ctx is done. A full batch is followed
// immediately by the next one.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(time.Hour)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainOutbox(ctx)
		case <-cleanupTicker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *Worker) drainOutbox(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n == 0 {
			return
		}
		w.log.Debugw("relayed outbox batch", "count", n)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if n, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("idempotency cleanup failed", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}

	if n, err := w.relay.PurgePublished(ctx, publishedRetention); err != nil {
		w.log.Errorw("outbox purge failed", "error", err)
	} else if n > 0 {
		w.log.Infow("purged published outbox messages", "count", n)
	}

	postgres.LogPoolStats(ctx, w.pool)
}
