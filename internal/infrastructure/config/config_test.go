package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "stocksync-backend", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "stocksync", cfg.Database.DBName)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 5*time.Minute, cfg.Sync.PushLockTTL)
	assert.Equal(t, 10*time.Minute, cfg.Sync.PullLockTTL)
	assert.Equal(t, 2*time.Minute, cfg.Sync.LockRetryDelay)
	assert.Equal(t, 20, cfg.Sync.PullBatchSize)
	assert.Equal(t, 50, cfg.Scheduler.PushBatchLimit)
	assert.Equal(t, 10*time.Second, cfg.Ledger.Timeout)
}

func TestLoad_EnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STOCKSYNC_DATABASE_DBNAME", "sync_test")
	t.Setenv("STOCKSYNC_SYNC_PULL_BATCH_SIZE", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sync_test", cfg.Database.DBName)
	assert.Equal(t, 5, cfg.Sync.PullBatchSize)
}

func TestLoad_ProductionRequiresLedger(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("STOCKSYNC_APP_ENV", "production")
	t.Setenv("STOCKSYNC_DATABASE_PASSWORD", "secret")
	t.Setenv("STOCKSYNC_DATABASE_SSLMODE", "require")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger.base_url")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "sync",
		Password: "p@ss/word",
		DBName:   "stocksync",
		SSLMode:  "require",
	}
	dsn := d.DSN()
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "sslmode=require")
	// Special characters must be escaped, not embedded raw
	assert.NotContains(t, dsn, "p@ss/word")
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", r.Addr())
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
