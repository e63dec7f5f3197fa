package snapshot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"brick-tracker/internal/models"
)

// DBStore reads snapshots written by the capture layer into MySQL.
type DBStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

func NewDBStore(db *gorm.DB, logger zerolog.Logger) *DBStore {
	return &DBStore{db: db, logger: logger.With().Str("store", "db").Logger()}
}

func (s *DBStore) Load(ctx context.Context, limit int) ([]Snapshot, error) {
	var runs []models.SnapshotRun
	q := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Order("captured_at desc, id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to load snapshot runs: %w", err)
	}

	snaps := make([]Snapshot, 0, len(runs))
	for _, run := range runs {
		if run.CapturedAt.IsZero() {
			s.logger.Warn().Uint("run_id", run.ID).Msg("skipping snapshot run without capture time")
			continue
		}
		records := make([]ItemRecord, 0, len(run.Items))
		for _, it := range run.Items {
			records = append(records, DecodeItem(rawFromRow(it)))
		}
		snaps = append(snaps, New(run.CapturedAt, records))
	}
	return Ordered(snaps, 0), nil
}

func rawFromRow(it models.SnapshotItem) RawItem {
	return RawItem{
		ID:                 Text(it.ItemID),
		Name:               Text(it.Name),
		Category:           Text(it.Category),
		Msrp:               Text(it.Msrp),
		Price:              Text(it.Price),
		Availability:       Text(it.Availability),
		Retired:            Text(it.Retired),
		RetirementEstimate: Text(it.RetirementEstimate),
		PredictedPop:       Text(it.PredictedPop),
		OneYearValue:       Text(it.OneYearValue),
		FirstYearGrowth:    Text(it.FirstYearGrowth),
	}
}
