package snapshot

import "time"

// ItemRecord is one tracked item as observed in a single snapshot. Money and
// percent fields are already parsed; a value of 0 may mean "missing".
type ItemRecord struct {
	ID                     string  `json:"id"`
	Name                   string  `json:"name"`
	Category               string  `json:"category"`
	ReferencePrice         float64 `json:"reference_price"`
	CurrentPrice           float64 `json:"current_price"`
	AvailabilityState      string  `json:"availability_state"`
	RetiredMarker          string  `json:"retired_marker,omitempty"`
	RetirementEstimate     string  `json:"retirement_estimate,omitempty"`
	PredictedPopPercent    float64 `json:"predicted_pop_percent"`
	OneYearTargetValue     float64 `json:"one_year_target_value"`
	FirstYearGrowthPercent float64 `json:"first_year_growth_percent"`
}

// Retired reports whether the item carries any retirement marker.
func (r ItemRecord) Retired() bool {
	return r.RetiredMarker != ""
}

// Snapshot is an immutable, timestamped capture of all tracked items.
// Items keep their capture order; Lookup uses an identity index built once.
type Snapshot struct {
	Timestamp time.Time
	items     []ItemRecord
	index     map[string]int
}

// New builds a snapshot from records in capture order. Records without an id
// cannot be matched across snapshots and are dropped; when an id repeats, the
// first record wins.
func New(ts time.Time, records []ItemRecord) Snapshot {
	s := Snapshot{
		Timestamp: ts,
		items:     make([]ItemRecord, 0, len(records)),
		index:     make(map[string]int, len(records)),
	}
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		if _, dup := s.index[r.ID]; dup {
			continue
		}
		s.index[r.ID] = len(s.items)
		s.items = append(s.items, r)
	}
	return s
}

// Items returns a copy of the records in capture order.
func (s Snapshot) Items() []ItemRecord {
	out := make([]ItemRecord, len(s.items))
	copy(out, s.items)
	return out
}

// Len is the number of distinct items in the snapshot.
func (s Snapshot) Len() int { return len(s.items) }

// Lookup finds an item by identity key.
func (s Snapshot) Lookup(id string) (ItemRecord, bool) {
	i, ok := s.index[id]
	if !ok {
		return ItemRecord{}, false
	}
	return s.items[i], true
}

// Each visits the records in capture order without copying the slice.
func (s Snapshot) Each(fn func(ItemRecord)) {
	for _, r := range s.items {
		fn(r)
	}
}
