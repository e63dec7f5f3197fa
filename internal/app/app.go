// Package app wires configuration into the stores, ledger and notifiers
// shared by the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"brick-tracker/internal/alerts"
	"brick-tracker/internal/config"
	"brick-tracker/internal/database"
	"brick-tracker/internal/metrics"
	"brick-tracker/internal/notify"
	"brick-tracker/internal/snapshot"
)

// App holds every dependency built from a Config.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	DB       *gorm.DB
	Redis    *redis.Client
	Reader   snapshot.Reader
	Detector *alerts.Detector
	Policy   metrics.ApproachingPolicy
	Ledger   notify.Ledger
	Notifier notify.Notifier
}

// Bootstrap connects whatever backends cfg selects. The database is only
// opened when the snapshot source or the ledger needs it.
func Bootstrap(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Detector: alerts.NewDetector(alerts.Config{ROITarget: cfg.ROITarget}),
		Policy:   metrics.ApproachingPolicy{Horizon: cfg.Horizon()},
	}

	if cfg.NeedsDatabase() {
		db, err := database.Initialize(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.DB = db
	}

	switch cfg.SnapshotSource {
	case config.SourceDB:
		a.Reader = snapshot.NewDBStore(a.DB, logger)
	default:
		a.Reader = snapshot.NewDirStore(cfg.SnapshotDir, logger)
	}
	logger.Info().Str("source", cfg.SnapshotSource).Msg("Snapshot store ready")

	switch cfg.LedgerBackend {
	case config.LedgerRedis:
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.Redis.Ping(pingCtx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		a.Ledger = notify.NewRedisLedger(a.Redis, cfg.LedgerTTL)
	case config.LedgerDB:
		a.Ledger = notify.NewDBLedger(a.DB)
	default:
		a.Ledger = notify.NewMemoryLedger()
	}
	logger.Info().Str("ledger", cfg.LedgerBackend).Msg("Alert ledger ready")

	if cfg.WebhookURL != "" {
		a.Notifier = notify.NewWebhook(notify.WebhookConfig{
			URL:           cfg.WebhookURL,
			RatePerMinute: cfg.WebhookRatePerMinute,
		})
	} else {
		logger.Info().Msg("No webhook configured, alerts go to the log")
		a.Notifier = notify.NewLogNotifier(logger)
	}
	return a, nil
}

// Close releases the database and redis connections.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
