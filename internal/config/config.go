// Package config loads process configuration from the environment.
// A .env file in the working directory is read first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Sequence backends.
const (
	SequencePostgres = "postgres"
	SequenceRedis    = "redis"
)

// Config is shared by the server, the worker and ledgerctl.
type Config struct {
	DatabaseURL string
	RedisURL    string

	// SequenceBackend selects where document counters live: postgres or redis.
	SequenceBackend string

	AppPort string
	AppEnv  string
	Version string

	LogLevel string

	IdempotencyEnabled bool
	IdempotencyTTL     time.Duration

	VoidLockTTL time.Duration
	DBMaxConns  int

	OutboxBatchSize    int
	OutboxPollInterval time.Duration
}

// Load reads the configuration. envPath optionally names a .env file that must exist.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		SequenceBackend:    strings.ToLower(GetEnv("SEQUENCE_BACKEND", SequencePostgres)),
		AppPort:            GetEnv("APP_PORT", "8080"),
		AppEnv:             GetEnv("APP_ENV", "development"),
		Version:            GetEnv("APP_VERSION", "dev"),
		LogLevel:           GetEnv("LOG_LEVEL", "info"),
		IdempotencyEnabled: GetEnvBool("IDEMPOTENCY_ENABLED", true),
		IdempotencyTTL:     GetEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
		VoidLockTTL:        GetEnvDuration("VOID_LOCK_TTL", 30*time.Second),
		DBMaxConns:         GetEnvInt("DB_MAX_CONNS", 20),
		OutboxBatchSize:    GetEnvInt("OUTBOX_BATCH_SIZE", 100),
		OutboxPollInterval: GetEnvDuration("OUTBOX_POLL_INTERVAL", 500*time.Millisecond),
	}

	switch cfg.SequenceBackend {
	case SequencePostgres:
	case SequenceRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("SEQUENCE_BACKEND=redis requires REDIS_URL")
		}
	default:
		return nil, fmt.Errorf("invalid SEQUENCE_BACKEND %q (want postgres or redis)", cfg.SequenceBackend)
	}

	return cfg, nil
}

// Development reports whether logs should use the console encoder.
func (c *Config) Development() bool {
	return c.AppEnv == "development"
}

// Require fails when any of the named settings is empty.
func (c *Config) Require(keys ...string) error {
	var missing []string
	for _, k := range keys {
		var v string
		switch k {
		case "DATABASE_URL":
			v = c.DatabaseURL
		case "REDIS_URL":
			v = c.RedisURL
		default:
			v = os.Getenv(k)
		}
		if v == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	return nil
}

// GetEnv returns the variable or defaultValue when unset.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt returns defaultValue when the variable is unset or not an integer.
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// GetEnvBool accepts the strconv.ParseBool spellings.
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvDuration parses a time.Duration such as "30s".
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
