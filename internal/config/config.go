package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	SourceDir = "dir"
	SourceDB  = "db"

	LedgerMemory = "memory"
	LedgerRedis  = "redis"
	LedgerDB     = "db"
)

type Config struct {
	DatabaseURL string `yaml:"database_url"`
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`

	// Snapshot store
	SnapshotSource string `yaml:"snapshot_source"`
	SnapshotDir    string `yaml:"snapshot_dir"`

	// Detection
	ROITarget              float64       `yaml:"roi_target"`
	ApproachingHorizonDays int           `yaml:"approaching_horizon_days"`
	MonitorInterval        time.Duration `yaml:"monitor_interval"`
	MonitorEnabled         bool          `yaml:"monitor_enabled"`

	// Delivery
	WebhookURL           string        `yaml:"webhook_url"`
	WebhookRatePerMinute int           `yaml:"webhook_rate_per_minute"`
	RedisAddr            string        `yaml:"redis_addr"`
	RedisPassword        string        `yaml:"redis_password"`
	RedisDB              int           `yaml:"redis_db"`
	LedgerBackend        string        `yaml:"ledger_backend"`
	LedgerTTL            time.Duration `yaml:"ledger_ttl"`
}

// Load reads the environment, overlays the YAML file at path (or at
// TRACKER_CONFIG when path is empty) and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		SnapshotSource: getEnv("SNAPSHOT_SOURCE", SourceDir),
		SnapshotDir:    getEnv("SNAPSHOT_DIR", "./data/snapshots"),

		ROITarget:              getEnvFloat("ROI_TARGET", 20),
		ApproachingHorizonDays: getEnvInt("APPROACHING_HORIZON_DAYS", 180),
		MonitorInterval:        getEnvDuration("MONITOR_INTERVAL", 30*time.Minute),
		MonitorEnabled:         getEnvBool("MONITOR_ENABLED", true),

		WebhookURL:           getEnv("WEBHOOK_URL", ""),
		WebhookRatePerMinute: getEnvInt("WEBHOOK_RATE_PER_MINUTE", 30),
		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		LedgerBackend:        getEnv("LEDGER_BACKEND", LedgerMemory),
		LedgerTTL:            getEnvDuration("LEDGER_TTL", 720*time.Hour),
	}

	if path == "" {
		path = os.Getenv("TRACKER_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and the settings each backend depends on.
func (c *Config) Validate() error {
	if c.ROITarget <= 0 {
		return fmt.Errorf("roi_target must be positive")
	}
	if c.ApproachingHorizonDays <= 0 {
		return fmt.Errorf("approaching_horizon_days must be positive")
	}
	if c.MonitorInterval < time.Minute {
		return fmt.Errorf("monitor_interval must be at least 1m, got %s", c.MonitorInterval)
	}
	if c.WebhookRatePerMinute <= 0 {
		return fmt.Errorf("webhook_rate_per_minute must be positive")
	}

	switch c.SnapshotSource {
	case SourceDir:
		if c.SnapshotDir == "" {
			return fmt.Errorf("snapshot_dir is required for the dir source")
		}
	case SourceDB:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for the db source")
		}
	default:
		return fmt.Errorf("unknown snapshot_source %q", c.SnapshotSource)
	}

	switch c.LedgerBackend {
	case LedgerMemory:
	case LedgerRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the redis ledger")
		}
	case LedgerDB:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for the db ledger")
		}
	default:
		return fmt.Errorf("unknown ledger_backend %q", c.LedgerBackend)
	}
	return nil
}

// NeedsDatabase reports whether any backend reads or writes MySQL.
func (c *Config) NeedsDatabase() bool {
	return c.SnapshotSource == SourceDB || c.LedgerBackend == LedgerDB
}

// Horizon is the approaching-retirement window.
func (c *Config) Horizon() time.Duration {
	return time.Duration(c.ApproachingHorizonDays) * 24 * time.Hour
}

// Pretty selects console log output outside production.
func (c *Config) Pretty() bool {
	return c.Environment != "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return defaultValue
}
