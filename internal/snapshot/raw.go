package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"brick-tracker/internal/parse"
)

// ErrMalformed is returned when a persisted snapshot has no usable timestamp
// or cannot be decoded at all.
var ErrMalformed = errors.New("malformed snapshot")

// Text accepts a JSON string, number or bool and keeps it as text, since the
// capture layer is inconsistent about quoting.
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	*t = Text(strings.TrimSpace(string(b)))
	return nil
}

func (t Text) String() string { return strings.TrimSpace(string(t)) }

// RawItem is an item in its persisted, loosely formatted form.
type RawItem struct {
	ID                 Text `json:"id"`
	Name               Text `json:"name"`
	Category           Text `json:"category"`
	Msrp               Text `json:"msrp"`
	Price              Text `json:"price"`
	Availability       Text `json:"availability"`
	Retired            Text `json:"retired"`
	RetirementEstimate Text `json:"retirement"`
	PredictedPop       Text `json:"predicted_pop"`
	OneYearValue       Text `json:"one_year_value"`
	FirstYearGrowth    Text `json:"first_year_growth"`
}

// RawSnapshot is the persisted form of a snapshot.
type RawSnapshot struct {
	Timestamp Text      `json:"timestamp"`
	Items     []RawItem `json:"items"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
}

// minUnixDigits keeps compact dates such as 20240601 out of the unix branch.
const minUnixDigits = 9

// ParseTimestamp accepts RFC 3339, a few common date layouts, or unix seconds
// of at least nine digits.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: missing timestamp", ErrMalformed)
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	if len(s) >= minUnixDigits {
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
			return time.Unix(secs, 0).UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", ErrMalformed, s)
}

// Decode converts a persisted snapshot into a Snapshot. Only the timestamp is
// mandatory; unparseable item fields become zero values.
func Decode(raw RawSnapshot) (Snapshot, error) {
	ts, err := ParseTimestamp(raw.Timestamp.String())
	if err != nil {
		return Snapshot{}, err
	}
	records := make([]ItemRecord, 0, len(raw.Items))
	for _, it := range raw.Items {
		records = append(records, DecodeItem(it))
	}
	return New(ts, records), nil
}

// DecodeItem parses one raw item. When no explicit predicted pop is present,
// a percentage embedded in the retirement estimate is used instead.
func DecodeItem(it RawItem) ItemRecord {
	rec := ItemRecord{
		ID:                     it.ID.String(),
		Name:                   it.Name.String(),
		Category:               it.Category.String(),
		ReferencePrice:         parse.Money(it.Msrp.String()),
		CurrentPrice:           parse.Money(it.Price.String()),
		AvailabilityState:      it.Availability.String(),
		RetiredMarker:          retiredMarker(it.Retired),
		RetirementEstimate:     it.RetirementEstimate.String(),
		PredictedPopPercent:    parse.Percent(it.PredictedPop.String()),
		OneYearTargetValue:     parse.Money(it.OneYearValue.String()),
		FirstYearGrowthPercent: parse.Percent(it.FirstYearGrowth.String()),
	}
	if it.PredictedPop.String() == "" {
		if est := parse.Retirement(rec.RetirementEstimate); est.HasPercent {
			rec.PredictedPopPercent = est.Percent
		}
	}
	return rec
}

// retiredMarker treats boolean-ish "not retired" values as an empty marker;
// anything else is an opaque retirement label.
func retiredMarker(t Text) string {
	switch strings.ToLower(t.String()) {
	case "", "false", "no", "0", "-":
		return ""
	}
	return t.String()
}

// Unmarshal decodes the JSON persisted form.
func Unmarshal(data []byte) (Snapshot, error) {
	var raw RawSnapshot
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Decode(raw)
}
