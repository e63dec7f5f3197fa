package metrics

import (
	"time"

	"brick-tracker/internal/parse"
	"brick-tracker/internal/snapshot"
)

// Approach classifies how close an item is to its estimated retirement.
type Approach string

const (
	ApproachUnknown Approach = "unknown" // estimate has no usable year
	ApproachNotYet  Approach = "not_yet" // deadline beyond the horizon
	ApproachSoon    Approach = "soon"    // deadline within the horizon
	ApproachOverdue Approach = "overdue" // deadline passed, not yet retired
)

// DefaultHorizon is roughly two quarters.
const DefaultHorizon = 180 * 24 * time.Hour

// ApproachingPolicy decides when an estimated retirement counts as approaching.
type ApproachingPolicy struct {
	Horizon time.Duration
}

// Deadline is the last instant of the estimated quarter, or of the year when
// no quarter was given. ok is false for unknown estimates.
func Deadline(est parse.RetirementEstimate) (time.Time, bool) {
	if !est.Known {
		return time.Time{}, false
	}
	endMonth := time.December
	if est.Quarter >= 1 && est.Quarter <= 4 {
		endMonth = time.Month(est.Quarter * 3)
	}
	// first instant of the following month, minus one nanosecond
	next := time.Date(est.Year, endMonth+1, 1, 0, 0, 0, 0, time.UTC)
	return next.Add(-time.Nanosecond), true
}

// Classify compares an estimate's deadline with now.
func (p ApproachingPolicy) Classify(est parse.RetirementEstimate, now time.Time) Approach {
	deadline, ok := Deadline(est)
	if !ok {
		return ApproachUnknown
	}
	horizon := p.Horizon
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	switch {
	case deadline.Before(now):
		return ApproachOverdue
	case deadline.Sub(now) <= horizon:
		return ApproachSoon
	default:
		return ApproachNotYet
	}
}

// ApproachingItem is a not-yet-retired item whose estimated retirement is near.
type ApproachingItem struct {
	Item     snapshot.ItemRecord
	Estimate parse.RetirementEstimate
	Deadline time.Time
	Approach Approach
}

// Approaching lists items from snap that are not retired and whose estimate is
// soon or overdue relative to now, in capture order.
func Approaching(snap snapshot.Snapshot, policy ApproachingPolicy, now time.Time) []ApproachingItem {
	var out []ApproachingItem
	snap.Each(func(rec snapshot.ItemRecord) {
		if rec.Retired() {
			return
		}
		est := parse.Retirement(rec.RetirementEstimate)
		a := policy.Classify(est, now)
		if a != ApproachSoon && a != ApproachOverdue {
			return
		}
		deadline, _ := Deadline(est)
		out = append(out, ApproachingItem{Item: rec, Estimate: est, Deadline: deadline, Approach: a})
	})
	return out
}
