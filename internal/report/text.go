// Package report renders alert results, histories and approaching-retirement
// lists as deterministic text. Values arrive pre-formatted; nothing here
// decides anything.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"brick-tracker/internal/alerts"
	"brick-tracker/internal/history"
	"brick-tracker/internal/metrics"
)

const stampLayout = "2006-01-02 15:04 MST"

func stamp(t time.Time) string {
	return t.UTC().Format(stampLayout)
}

// InsufficientData explains why no comparison was made.
func InsufficientData(have int) string {
	return fmt.Sprintf("Insufficient data: %d snapshot(s) available, at least 2 are needed to compare.\n", have)
}

// Alerts renders the full report, one section per non-empty kind in report
// order. Each event lists its details sorted by key.
func Alerts(res alerts.Result) string {
	if res.Status == alerts.StatusInsufficientData {
		return InsufficientData(res.Snapshots)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Alert report: %s -> %s\n", stamp(res.Previous), stamp(res.Current))
	total := res.Count()
	if total == 0 {
		b.WriteString("No new alerts.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "%d alert(s)\n", total)

	for _, k := range alerts.Kinds {
		evs := res.Of(k)
		if len(evs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n== %s (%d) ==\n", k.Title(), len(evs))
		for _, ev := range evs {
			fmt.Fprintf(&b, "[%s] %s (%s): %s\n", ev.Priority, ev.ItemName, ev.ItemID, ev.Message)
			for _, key := range sortedKeys(ev.Details) {
				fmt.Fprintf(&b, "    %s: %s\n", key, ev.Details[key])
			}
		}
	}
	return b.String()
}

// Series renders one report per adjacent pair, oldest first.
func Series(results []alerts.Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, Alerts(r))
	}
	return strings.Join(parts, "\n")
}

// Notification is the terse form sent to chat channels: one line per event.
func Notification(events []alerts.Event) string {
	var b strings.Builder
	for _, ev := range events {
		fmt.Fprintf(&b, "[%s] %s: %s\n", ev.Priority, ev.Kind, ev.Message)
	}
	return b.String()
}

// History renders one item's data points and, when available, its summary.
func History(h *history.ItemHistory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", h.Name, h.ItemID)
	if h.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", h.Category)
	}
	if h.ReferencePrice > 0 {
		fmt.Fprintf(&b, "MSRP: %s\n", metrics.FormatMoney(h.ReferencePrice))
	}

	b.WriteString("\nData points:\n")
	for _, p := range h.DataPoints {
		fmt.Fprintf(&b, "  %s  %s  %s", stamp(p.Timestamp), metrics.FormatMoney(p.CurrentPrice), p.AvailabilityState)
		if p.RetiredMarker != "" {
			fmt.Fprintf(&b, "  retired %s", p.RetiredMarker)
		}
		b.WriteString("\n")
	}

	s := h.Summary
	if s == nil {
		b.WriteString("\nInsufficient history: observed in a single snapshot.\n")
		return b.String()
	}
	b.WriteString("\nSummary:\n")
	fmt.Fprintf(&b, "  Tracked: %d day(s) over %d snapshot(s)\n", s.DaysTracked, s.SnapshotCount)
	fmt.Fprintf(&b, "  Price: %s -> %s (%s", metrics.FormatMoney(s.PriceChange.Initial),
		metrics.FormatMoney(s.PriceChange.Current), signedMoney(s.PriceChange.Amount))
	if s.PriceChange.Percent != nil {
		fmt.Fprintf(&b, ", %s", metrics.FormatPercent(*s.PriceChange.Percent))
	}
	b.WriteString(")\n")
	fmt.Fprintf(&b, "  Availability: %s -> %s\n", orDash(s.RetirementStatus.Initial), orDash(s.RetirementStatus.Current))
	if s.RetirementStatus.HasRetired {
		fmt.Fprintf(&b, "  Retired: %s\n", s.RetirementStatus.RetiredLabel)
	} else {
		b.WriteString("  Retired: no\n")
	}
	return b.String()
}

// Approaching renders items nearing their estimated retirement relative to now.
func Approaching(items []metrics.ApproachingItem, now time.Time) string {
	if len(items) == 0 {
		return "No items approaching retirement.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Approaching retirement as of %s (%d)\n", now.UTC().Format("2006-01-02"), len(items))
	for _, it := range items {
		left := it.Deadline.Sub(now).Hours() / 24
		when := fmt.Sprintf("in %d day(s)", int(left))
		if it.Approach == metrics.ApproachOverdue {
			// any part of a day past the deadline counts as a full day
			when = fmt.Sprintf("overdue by %d day(s)", int(math.Ceil(-left)))
		}
		fmt.Fprintf(&b, "  %s (%s): %q, deadline %s, %s", it.Item.Name, it.Item.ID,
			it.Item.RetirementEstimate, it.Deadline.Format("2006-01-02"), when)
		if it.Item.PredictedPopPercent != 0 {
			fmt.Fprintf(&b, ", predicted pop %s", metrics.FormatPercent(it.Item.PredictedPopPercent))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func signedMoney(v float64) string {
	if v >= 0 {
		return "+" + metrics.FormatMoney(v)
	}
	return metrics.FormatMoney(v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
