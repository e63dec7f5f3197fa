package alerts

import (
	"fmt"
	"time"
)

// Kind is the alert taxonomy; the string doubles as the category name.
type Kind string

const (
	KindNewlyRetired      Kind = "NEWLY_RETIRED"
	KindRetirement        Kind = "RETIREMENT"
	KindPopAchieved       Kind = "POP_ACHIEVED"
	KindTargetReached     Kind = "TARGET_REACHED"
	KindBuyingOpportunity Kind = "BUYING_OPPORTUNITY"
	KindROITarget         Kind = "ROI_TARGET"
)

// Kinds lists every kind in report order.
var Kinds = []Kind{
	KindNewlyRetired,
	KindRetirement,
	KindPopAchieved,
	KindTargetReached,
	KindBuyingOpportunity,
	KindROITarget,
}

// Title is the report section heading for the kind.
func (k Kind) Title() string {
	switch k {
	case KindNewlyRetired:
		return "Newly Retired"
	case KindRetirement:
		return "Retirements"
	case KindPopAchieved:
		return "Retirement Pop Achieved"
	case KindTargetReached:
		return "One-Year Target Reached"
	case KindBuyingOpportunity:
		return "Buying Opportunities"
	case KindROITarget:
		return "ROI Target Crossed"
	}
	return string(k)
}

// Priority orders alerts by urgency.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Event is one detected transition for one item. Detail values are already
// formatted for display.
type Event struct {
	Kind     Kind              `json:"kind"`
	Priority Priority          `json:"priority"`
	ItemID   string            `json:"item_id"`
	ItemName string            `json:"item_name"`
	Message  string            `json:"message"`
	Details  map[string]string `json:"details"`
}

// Fingerprint identifies the transition an event reports, given the
// timestamp of the snapshot in which it was observed.
func (e Event) Fingerprint(observedAt time.Time) string {
	return fmt.Sprintf("%s:%s:%d", e.Kind, e.ItemID, observedAt.Unix())
}

// Status tells whether a comparison could be performed.
type Status string

const (
	StatusOK               Status = "ok"
	StatusInsufficientData Status = "insufficient_data"
)

// Result is the outcome of comparing two adjacent snapshots.
type Result struct {
	Status    Status           `json:"status"`
	Snapshots int              `json:"snapshots"`
	Previous  time.Time        `json:"previous"`
	Current   time.Time        `json:"current"`
	Alerts    map[Kind][]Event `json:"alerts"`
}

func insufficient(have int) Result {
	return Result{Status: StatusInsufficientData, Snapshots: have, Alerts: map[Kind][]Event{}}
}

// Of returns the events of one kind.
func (r Result) Of(k Kind) []Event {
	return r.Alerts[k]
}

// Count is the total number of events across kinds.
func (r Result) Count() int {
	n := 0
	for _, evs := range r.Alerts {
		n += len(evs)
	}
	return n
}

// Ordered flattens the alerts in report order.
func (r Result) Ordered() []Event {
	out := make([]Event, 0, r.Count())
	for _, k := range Kinds {
		out = append(out, r.Alerts[k]...)
	}
	return out
}
