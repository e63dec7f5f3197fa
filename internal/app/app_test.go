package app

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brick-tracker/internal/config"
	"brick-tracker/internal/notify"
	"brick-tracker/internal/snapshot"
)

func baseConfig(dir string) *config.Config {
	return &config.Config{
		SnapshotSource:         config.SourceDir,
		SnapshotDir:            dir,
		ROITarget:              25,
		ApproachingHorizonDays: 90,
		MonitorInterval:        time.Hour,
		WebhookRatePerMinute:   30,
		LedgerBackend:          config.LedgerMemory,
	}
}

func TestBootstrap_Defaults(t *testing.T) {
	a, err := Bootstrap(context.Background(), baseConfig(t.TempDir()), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &snapshot.DirStore{}, a.Reader)
	assert.IsType(t, &notify.MemoryLedger{}, a.Ledger)
	assert.IsType(t, &notify.LogNotifier{}, a.Notifier)
	assert.Equal(t, 25.0, a.Detector.ROITarget())
	assert.Equal(t, 90*24*time.Hour, a.Policy.Horizon)
	assert.Nil(t, a.DB)
}

func TestBootstrap_Webhook(t *testing.T) {
	cfg := baseConfig(t.TempDir())
	cfg.WebhookURL = "http://example.invalid/hook"

	a, err := Bootstrap(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()
	assert.IsType(t, &notify.Webhook{}, a.Notifier)
}

func TestBootstrap_RedisUnreachable(t *testing.T) {
	cfg := baseConfig(t.TempDir())
	cfg.LedgerBackend = config.LedgerRedis
	cfg.RedisAddr = "127.0.0.1:1"

	_, err := Bootstrap(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}
