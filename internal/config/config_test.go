package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"DATABASE_URL", "PORT", "ENVIRONMENT", "LOG_LEVEL", "SNAPSHOT_SOURCE", "SNAPSHOT_DIR",
	"ROI_TARGET", "APPROACHING_HORIZON_DAYS", "MONITOR_INTERVAL", "MONITOR_ENABLED", "WEBHOOK_URL",
	"WEBHOOK_RATE_PER_MINUTE", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"LEDGER_BACKEND", "LEDGER_TTL", "TRACKER_CONFIG",
}

func clearEnv(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, SourceDir, cfg.SnapshotSource)
	assert.Equal(t, "./data/snapshots", cfg.SnapshotDir)
	assert.Equal(t, 20.0, cfg.ROITarget)
	assert.Equal(t, 180*24*time.Hour, cfg.Horizon())
	assert.Equal(t, 30*time.Minute, cfg.MonitorInterval)
	assert.True(t, cfg.MonitorEnabled)
	assert.Equal(t, 30, cfg.WebhookRatePerMinute)
	assert.Equal(t, LedgerMemory, cfg.LedgerBackend)
	assert.Equal(t, 720*time.Hour, cfg.LedgerTTL)
	assert.False(t, cfg.NeedsDatabase())
	assert.True(t, cfg.Pretty())
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROI_TARGET", "35.5")
	t.Setenv("MONITOR_INTERVAL", "5m")
	t.Setenv("LEDGER_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("APPROACHING_HORIZON_DAYS", "not-a-number")
	t.Setenv("MONITOR_ENABLED", "false")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 35.5, cfg.ROITarget)
	assert.Equal(t, 5*time.Minute, cfg.MonitorInterval)
	assert.Equal(t, LedgerRedis, cfg.LedgerBackend)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 180, cfg.ApproachingHorizonDays, "unparseable values keep the default")
	assert.False(t, cfg.MonitorEnabled)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")

	path := filepath.Join(t.TempDir(), "tracker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
snapshot_source: db
database_url: "user:pass@tcp(localhost:3306)/bricks?parseTime=True"
roi_target: 15
monitor_interval: 2h
ledger_backend: db
environment: production
`), 0o644))

	t.Setenv("TRACKER_CONFIG", path)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port, "keys absent from the file keep their env value")
	assert.Equal(t, SourceDB, cfg.SnapshotSource)
	assert.Equal(t, 15.0, cfg.ROITarget)
	assert.Equal(t, 2*time.Hour, cfg.MonitorInterval)
	assert.True(t, cfg.NeedsDatabase())
	assert.False(t, cfg.Pretty())
}

func TestLoad_FileErrors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("roi_target: [1, 2"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			SnapshotSource:         SourceDir,
			SnapshotDir:            "data",
			ROITarget:              20,
			ApproachingHorizonDays: 180,
			MonitorInterval:        time.Hour,
			WebhookRatePerMinute:   30,
			LedgerBackend:          LedgerMemory,
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero roi target", func(c *Config) { c.ROITarget = 0 }},
		{"zero horizon", func(c *Config) { c.ApproachingHorizonDays = 0 }},
		{"short interval", func(c *Config) { c.MonitorInterval = 30 * time.Second }},
		{"zero webhook rate", func(c *Config) { c.WebhookRatePerMinute = 0 }},
		{"unknown source", func(c *Config) { c.SnapshotSource = "s3" }},
		{"db source without url", func(c *Config) { c.SnapshotSource = SourceDB }},
		{"redis ledger without addr", func(c *Config) { c.LedgerBackend = LedgerRedis }},
		{"db ledger without url", func(c *Config) { c.LedgerBackend = LedgerDB }},
		{"unknown ledger", func(c *Config) { c.LedgerBackend = "etcd" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
