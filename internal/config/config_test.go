package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DATABASE_URL", "REDIS_URL", "SEQUENCE_BACKEND", "APP_PORT", "VOID_LOCK_TTL", "DB_MAX_CONNS", "IDEMPOTENCY_ENABLED"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, SequencePostgres, cfg.SequenceBackend)
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 30*time.Second, cfg.VoidLockTTL)
	assert.Equal(t, 20, cfg.DBMaxConns)
	assert.True(t, cfg.IdempotencyEnabled)
	assert.Error(t, cfg.Require("DATABASE_URL"))
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"DATABASE_URL=postgres://localhost/ledger\nSEQUENCE_BACKEND=redis\nREDIS_URL=redis://localhost:6379/0\nVOID_LOCK_TTL=5s\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, SequenceRedis, cfg.SequenceBackend)
	assert.Equal(t, 5*time.Second, cfg.VoidLockTTL)
	assert.NoError(t, cfg.Require("DATABASE_URL", "REDIS_URL"))
}

func TestLoad_InvalidBackend(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	t.Setenv("SEQUENCE_BACKEND", "etcd")
	_, err := Load()
	assert.ErrorContains(t, err, "SEQUENCE_BACKEND")

	t.Setenv("SEQUENCE_BACKEND", "redis")
	_, err = Load()
	assert.ErrorContains(t, err, "REDIS_URL")
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "12")
	t.Setenv("X_BAD", "twelve")
	t.Setenv("X_DUR", "90s")

	assert.Equal(t, 12, GetEnvInt("X_INT", 1))
	assert.Equal(t, 1, GetEnvInt("X_BAD", 1))
	assert.Equal(t, 90*time.Second, GetEnvDuration("X_DUR", time.Second))
	assert.False(t, GetEnvBool("X_BAD", false))
	assert.Equal(t, "fallback", GetEnv("X_UNSET_FOR_TEST", "fallback"))
}
