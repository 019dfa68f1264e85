package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"pharmaledger/internal/config"
	corenumerator "pharmaledger/internal/core/numerator"
	"pharmaledger/internal/domain/posting"
	"pharmaledger/internal/infrastructure/numerator"
	redisinfra "pharmaledger/internal/infrastructure/redis"
	"pharmaledger/internal/infrastructure/storage/postgres"
	"pharmaledger/pkg/logger"
)

// Infra holds the external connections of one process.
type Infra struct {
	Pool      *postgres.Pool
	TxManager *postgres.TxManager
	// Redis is nil when REDIS_URL is unset.
	Redis *goredis.Client
}

// NewLogger builds the process logger and installs it as the default.
func NewLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
	})
	if err != nil {
		return nil, err
	}
	logger.SetDefault(log)
	return log, nil
}

// Connect opens the database pool and, when configured, the Redis client.
func Connect(ctx context.Context, cfg *config.Config) (*Infra, error) {
	if err := cfg.Require("DATABASE_URL"); err != nil {
		return nil, err
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	if cfg.DBMaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.DBMaxConns)
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	logger.Info(ctx, "database connection established", "max_conns", poolCfg.MaxConns)

	infra := &Infra{Pool: pool, TxManager: postgres.NewTxManager(pool)}

	if cfg.RedisURL != "" {
		redisCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		client, err := redisinfra.NewClient(redisCtx, cfg.RedisURL)
		if err != nil {
			pool.Close()
			return nil, err
		}
		infra.Redis = client
	}
	return infra, nil
}

// Close releases every connection.
func (i *Infra) Close() {
	if i.Redis != nil {
		_ = i.Redis.Close()
	}
	i.Pool.Close()
}

// Generator returns the sequence backend selected by SEQUENCE_BACKEND.
func (i *Infra) Generator(cfg *config.Config) corenumerator.Generator {
	if cfg.SequenceBackend == config.SequenceRedis && i.Redis != nil {
		return numerator.NewRedis(i.Redis)
	}
	return numerator.NewWithTxManager(i.TxManager)
}

// Locker returns the Redis lock when Redis is available and an in-process lock otherwise.
func (i *Infra) Locker(cfg *config.Config) posting.Locker {
	if i.Redis != nil {
		return redisinfra.NewLocker(i.Redis, cfg.VoidLockTTL)
	}
	return posting.NewLocalLocker()
}

// Services wires the ledger over Postgres with the outbox, audit trail and lock.
func (i *Infra) Services(cfg *config.Config) (*Services, error) {
	auditStore, err := postgres.NewAuditStore(i.TxManager)
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}
	return New(PostgresStorage(i.TxManager, i.Generator(cfg)), Options{
		Locker: i.Locker(cfg),
		Events: postgres.NewOutboxPublisher(i.TxManager),
		Audit:  auditStore,
	}), nil
}
