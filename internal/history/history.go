// Package history folds the full snapshot sequence into a per-item history.
package history

import (
	"math"
	"time"

	"brick-tracker/internal/snapshot"
)

// Status tells whether a history could be built.
type Status string

const (
	StatusOK          Status = "ok"
	StatusNotObserved Status = "not_observed"
)

// DataPoint is the item's state in one snapshot.
type DataPoint struct {
	Timestamp              time.Time `json:"timestamp"`
	CurrentPrice           float64   `json:"current_price"`
	AvailabilityState      string    `json:"availability_state"`
	RetiredMarker          string    `json:"retired_marker,omitempty"`
	RetirementEstimate     string    `json:"retirement_estimate,omitempty"`
	PredictedPopPercent    float64   `json:"predicted_pop_percent"`
	FirstYearGrowthPercent float64   `json:"first_year_growth_percent"`
	OneYearTargetValue     float64   `json:"one_year_target_value"`
}

// PriceChange compares the first and last observed prices. Percent is nil
// when the initial price is missing.
type PriceChange struct {
	Initial float64  `json:"initial"`
	Current float64  `json:"current"`
	Amount  float64  `json:"amount"`
	Percent *float64 `json:"percent"`
}

type RetirementStatus struct {
	Initial      string `json:"initial"`
	Current      string `json:"current"`
	HasRetired   bool   `json:"has_retired"`
	RetiredLabel string `json:"retired_label,omitempty"`
}

type Summary struct {
	FirstSeen        time.Time        `json:"first_seen"`
	LastSeen         time.Time        `json:"last_seen"`
	DaysTracked      int              `json:"days_tracked"`
	SnapshotCount    int              `json:"snapshot_count"`
	PriceChange      PriceChange      `json:"price_change"`
	RetirementStatus RetirementStatus `json:"retirement_status"`
}

// ItemHistory is recomputed on every query. Summary is nil until the item has
// been observed at least twice.
type ItemHistory struct {
	ItemID         string      `json:"item_id"`
	Name           string      `json:"name"`
	Category       string      `json:"category"`
	ReferencePrice float64     `json:"reference_price"`
	DataPoints     []DataPoint `json:"data_points"`
	Summary        *Summary    `json:"summary"`
}

// Build folds snaps, oldest first, for one identity key. Snapshots in which the
// item is absent contribute nothing. Name, category and reference price come
// from the first appearance.
func Build(id string, snaps []snapshot.Snapshot) (*ItemHistory, Status) {
	var h *ItemHistory
	for _, s := range snapshot.Ordered(snaps, 0) {
		rec, ok := s.Lookup(id)
		if !ok {
			continue
		}
		if h == nil {
			h = &ItemHistory{
				ItemID:         rec.ID,
				Name:           rec.Name,
				Category:       rec.Category,
				ReferencePrice: rec.ReferencePrice,
			}
		}
		h.DataPoints = append(h.DataPoints, DataPoint{
			Timestamp:              s.Timestamp,
			CurrentPrice:           rec.CurrentPrice,
			AvailabilityState:      rec.AvailabilityState,
			RetiredMarker:          rec.RetiredMarker,
			RetirementEstimate:     rec.RetirementEstimate,
			PredictedPopPercent:    rec.PredictedPopPercent,
			FirstYearGrowthPercent: rec.FirstYearGrowthPercent,
			OneYearTargetValue:     rec.OneYearTargetValue,
		})
	}
	if h == nil {
		return nil, StatusNotObserved
	}
	if len(h.DataPoints) >= 2 {
		h.Summary = summarize(h.DataPoints)
	}
	return h, StatusOK
}

func summarize(points []DataPoint) *Summary {
	first, last := points[0], points[len(points)-1]

	change := PriceChange{
		Initial: first.CurrentPrice,
		Current: last.CurrentPrice,
		Amount:  last.CurrentPrice - first.CurrentPrice,
	}
	if first.CurrentPrice > 0 {
		pct := change.Amount / first.CurrentPrice * 100
		change.Percent = &pct
	}

	return &Summary{
		FirstSeen:     first.Timestamp,
		LastSeen:      last.Timestamp,
		DaysTracked:   int(math.Floor(last.Timestamp.Sub(first.Timestamp).Hours() / 24)),
		SnapshotCount: len(points),
		PriceChange:   change,
		RetirementStatus: RetirementStatus{
			Initial:      first.AvailabilityState,
			Current:      last.AvailabilityState,
			HasRetired:   last.RetiredMarker != "",
			RetiredLabel: last.RetiredMarker,
		},
	}
}

// BuildAll builds histories for every id observed in the newest snapshot, in
// that snapshot's order.
func BuildAll(snaps []snapshot.Snapshot) []*ItemHistory {
	ordered := snapshot.Ordered(snaps, 0)
	if len(ordered) == 0 {
		return nil
	}
	latest := ordered[len(ordered)-1]
	out := make([]*ItemHistory, 0, latest.Len())
	latest.Each(func(rec snapshot.ItemRecord) {
		if h, status := Build(rec.ID, ordered); status == StatusOK {
			out = append(out, h)
		}
	})
	return out
}
