package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"brick-tracker/internal/models"
)

// Ledger records delivered transitions. Claim returns true exactly once per
// fingerprint; later claims of the same fingerprint return false. Release
// undoes a claim whose delivery failed so a later cycle can claim it again.
type Ledger interface {
	Claim(ctx context.Context, fingerprint string) (bool, error)
	Release(ctx context.Context, fingerprint string) error
}

// MemoryLedger is process-local; it forgets everything on restart.
type MemoryLedger struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{seen: make(map[string]struct{})}
}

func (l *MemoryLedger) Claim(_ context.Context, fingerprint string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.seen[fingerprint]; ok {
		return false, nil
	}
	l.seen[fingerprint] = struct{}{}
	return true, nil
}

func (l *MemoryLedger) Release(_ context.Context, fingerprint string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, fingerprint)
	return nil
}

const redisKeyPrefix = "brick-tracker:delivered:"

// RedisLedger claims with SETNX so several monitors can share one ledger.
// Entries expire after ttl.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{client: client, ttl: ttl}
}

func (l *RedisLedger) Claim(ctx context.Context, fingerprint string) (bool, error) {
	ok, err := l.client.SetNX(ctx, redisKeyPrefix+fingerprint, "1", l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s in redis: %w", fingerprint, err)
	}
	return ok, nil
}

func (l *RedisLedger) Release(ctx context.Context, fingerprint string) error {
	if err := l.client.Del(ctx, redisKeyPrefix+fingerprint).Err(); err != nil {
		return fmt.Errorf("failed to release %s in redis: %w", fingerprint, err)
	}
	return nil
}

// DBLedger relies on the unique fingerprint index of delivered_alerts.
type DBLedger struct {
	db *gorm.DB
}

func NewDBLedger(db *gorm.DB) *DBLedger {
	return &DBLedger{db: db}
}

func (l *DBLedger) Claim(ctx context.Context, fingerprint string) (bool, error) {
	res := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.DeliveredAlert{Fingerprint: fingerprint})
	if res.Error != nil {
		return false, fmt.Errorf("failed to claim %s: %w", fingerprint, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (l *DBLedger) Release(ctx context.Context, fingerprint string) error {
	res := l.db.WithContext(ctx).
		Where("fingerprint = ?", fingerprint).
		Delete(&models.DeliveredAlert{})
	if res.Error != nil {
		return fmt.Errorf("failed to release %s: %w", fingerprint, res.Error)
	}
	return nil
}
