// Package alerts detects edge-triggered transitions between two adjacent
// snapshots and classifies them into alert events.
//
// A rule fires only when its condition changes from false to true between the
// previous and the current record of the same item. Items seen in only one of
// the two snapshots are skipped. The detector holds no mutable state, so
// comparing the same pair twice yields the same result.
package alerts

import (
	"brick-tracker/internal/snapshot"
)

// DefaultROITarget is the ROI line, in percent, used when none is configured.
const DefaultROITarget = 20.0

// Config tunes the detector.
type Config struct {
	ROITarget float64
}

// rule is one transition condition. A single crossing may feed several report
// channels; render shapes the event for each of them.
type rule struct {
	name     string
	channels []Kind
	crossed  func(prev, cur snapshot.ItemRecord) bool
	render   func(kind Kind, prev, cur snapshot.ItemRecord) Event
}

// Detector evaluates every rule for every item observed in both snapshots.
type Detector struct {
	cfg   Config
	rules []rule
}

func NewDetector(cfg Config) *Detector {
	if cfg.ROITarget <= 0 {
		cfg.ROITarget = DefaultROITarget
	}
	d := &Detector{cfg: cfg}
	d.rules = []rule{
		retirementRule(),
		popAchievedRule(),
		targetReachedRule(),
		buyingOpportunityRule(),
		roiTargetRule(cfg.ROITarget),
	}
	return d
}

// ROITarget is the configured ROI line.
func (d *Detector) ROITarget() float64 { return d.cfg.ROITarget }

// Compare evaluates the transition from prev to cur. Events are grouped by
// kind and ordered by the item's position in cur.
func (d *Detector) Compare(prev, cur snapshot.Snapshot) Result {
	res := Result{
		Status:    StatusOK,
		Snapshots: 2,
		Previous:  prev.Timestamp,
		Current:   cur.Timestamp,
		Alerts:    make(map[Kind][]Event),
	}
	cur.Each(func(c snapshot.ItemRecord) {
		p, ok := prev.Lookup(c.ID)
		if !ok {
			return
		}
		for _, r := range d.rules {
			if !r.crossed(p, c) {
				continue
			}
			for _, k := range r.channels {
				res.Alerts[k] = append(res.Alerts[k], r.render(k, p, c))
			}
		}
	})
	return res
}

// Latest compares the two most recent snapshots. With fewer than two it
// reports StatusInsufficientData and no alerts.
func (d *Detector) Latest(snaps []snapshot.Snapshot) Result {
	if len(snaps) < 2 {
		return insufficient(len(snaps))
	}
	ordered := snapshot.Ordered(snaps, 2)
	res := d.Compare(ordered[0], ordered[1])
	res.Snapshots = len(snaps)
	return res
}

// Series compares every temporally adjacent pair, oldest first. A real-world
// transition appears in exactly one of the results.
func (d *Detector) Series(snaps []snapshot.Snapshot) ([]Result, Status) {
	if len(snaps) < 2 {
		return nil, StatusInsufficientData
	}
	ordered := snapshot.Ordered(snaps, 0)
	out := make([]Result, 0, len(ordered)-1)
	for i := 1; i < len(ordered); i++ {
		res := d.Compare(ordered[i-1], ordered[i])
		res.Snapshots = len(ordered)
		out = append(out, res)
	}
	return out, StatusOK
}
