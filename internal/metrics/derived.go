// Package metrics computes values derived from one or two item records. Every
// function is pure; nothing here reads a clock or keeps state.
package metrics

import "brick-tracker/internal/snapshot"

// ROI returns the percentage return of the record's current price over its
// reference price. ok is false when the reference price is missing (<= 0);
// such items must be skipped rather than treated as 0% or -100%.
func ROI(rec snapshot.ItemRecord) (roi float64, ok bool) {
	if rec.ReferencePrice <= 0 {
		return 0, false
	}
	return (rec.CurrentPrice - rec.ReferencePrice) / rec.ReferencePrice * 100, true
}

// PriceDelta is cur.CurrentPrice - prev.CurrentPrice.
func PriceDelta(prev, cur snapshot.ItemRecord) float64 {
	return cur.CurrentPrice - prev.CurrentPrice
}

// AboveReference reports currentPrice >= referencePrice.
func AboveReference(rec snapshot.ItemRecord) bool {
	return rec.CurrentPrice >= rec.ReferencePrice
}

// WasAboveOrEqual is the "before" half of the buying-opportunity edge: the
// earlier record traded at or above the reference price.
func WasAboveOrEqual(prev snapshot.ItemRecord, reference float64) bool {
	return prev.CurrentPrice >= reference
}

// IsBelow is the "after" half of the buying-opportunity edge.
func IsBelow(cur snapshot.ItemRecord, reference float64) bool {
	return cur.CurrentPrice < reference
}

// IsNewlyRetired reports a not-retired to retired transition.
func IsNewlyRetired(prev, cur snapshot.ItemRecord) bool {
	return !prev.Retired() && cur.Retired()
}

// HasPrice is false when the current price is missing or unparseable.
func HasPrice(rec snapshot.ItemRecord) bool {
	return rec.CurrentPrice > 0
}

// Discount is how far below the reference price the record trades, in percent.
// ok is false without a reference price.
func Discount(rec snapshot.ItemRecord) (pct float64, ok bool) {
	if rec.ReferencePrice <= 0 {
		return 0, false
	}
	return (rec.ReferencePrice - rec.CurrentPrice) / rec.ReferencePrice * 100, true
}

// PotentialProfit estimates the gain from buying at the current price and
// selling once the predicted retirement pop over the reference price is
// realized. ok is false when either input is missing.
func PotentialProfit(rec snapshot.ItemRecord) (profit float64, ok bool) {
	if rec.ReferencePrice <= 0 || rec.PredictedPopPercent <= 0 {
		return 0, false
	}
	expected := rec.ReferencePrice * (1 + rec.PredictedPopPercent/100)
	return expected - rec.CurrentPrice, true
}
