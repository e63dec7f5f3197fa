package alerts

import (
	"fmt"

	"brick-tracker/internal/metrics"
	"brick-tracker/internal/snapshot"
)

// Detail keys shared across kinds.
const (
	DetailMSRP            = "msrp"
	DetailCurrentPrice    = "current_price"
	DetailPreviousPrice   = "previous_price"
	DetailPercentChange   = "percent_change"
	DetailPredictedPop    = "predicted_pop"
	DetailRetired         = "retired"
	DetailRecommendation  = "recommendation"
	DetailROI             = "roi"
	DetailPriceChange     = "price_change"
	DetailTarget          = "one_year_target"
	DetailFirstYearGrowth = "first_year_growth"
	DetailDiscount        = "discount"
	DetailSavings         = "savings"
	DetailPotentialProfit = "potential_profit"
	DetailROITarget       = "roi_target"
)

// highDiscount marks a buying opportunity as HIGH priority.
const highDiscount = 20.0

func retirementRule() rule {
	return rule{
		name:     "retirement",
		channels: []Kind{KindNewlyRetired, KindRetirement},
		crossed:  metrics.IsNewlyRetired,
		render: func(kind Kind, prev, cur snapshot.ItemRecord) Event {
			if kind == KindRetirement {
				return Event{
					Kind:     KindRetirement,
					Priority: PriorityHigh,
					ItemID:   cur.ID,
					ItemName: cur.Name,
					Message:  fmt.Sprintf("%s retired (%s)", cur.Name, cur.RetiredMarker),
					Details: map[string]string{
						DetailRetired:      cur.RetiredMarker,
						DetailCurrentPrice: metrics.FormatMoney(cur.CurrentPrice),
					},
				}
			}

			details := map[string]string{
				DetailRetired:        cur.RetiredMarker,
				DetailCurrentPrice:   metrics.FormatMoney(cur.CurrentPrice),
				DetailRecommendation: recommendation(cur),
			}
			if cur.ReferencePrice > 0 {
				details[DetailMSRP] = metrics.FormatMoney(cur.ReferencePrice)
			}
			if roi, ok := metrics.ROI(cur); ok {
				details[DetailPercentChange] = metrics.FormatPercent(roi)
			}
			if cur.PredictedPopPercent != 0 {
				details[DetailPredictedPop] = metrics.FormatPercent(cur.PredictedPopPercent)
			}
			return Event{
				Kind:     KindNewlyRetired,
				Priority: PriorityHigh,
				ItemID:   cur.ID,
				ItemName: cur.Name,
				Message:  fmt.Sprintf("%s has just retired as of %s", cur.Name, cur.RetiredMarker),
				Details:  details,
			}
		},
	}
}

// recommendation compares the realized change from MSRP with the predicted pop.
func recommendation(rec snapshot.ItemRecord) string {
	roi, ok := metrics.ROI(rec)
	switch {
	case !ok:
		return "No MSRP on record; review manually"
	case rec.PredictedPopPercent <= 0:
		return "No predicted pop available; hold and watch"
	case roi >= rec.PredictedPopPercent:
		return "Already at or above predicted pop; consider selling"
	case roi >= 0:
		return "Below predicted pop; hold for appreciation"
	default:
		return "Trading below MSRP; strong buy candidate"
	}
}

func popAchievedRule() rule {
	return rule{
		name:     "pop_achieved",
		channels: []Kind{KindPopAchieved},
		crossed: func(prev, cur snapshot.ItemRecord) bool {
			if !cur.Retired() || cur.PredictedPopPercent <= 0 || !metrics.HasPrice(prev) {
				return false
			}
			roi, ok := metrics.ROI(cur)
			if !ok {
				return false
			}
			// rising price guards against re-firing once the line is behind us
			return roi >= cur.PredictedPopPercent && prev.CurrentPrice < cur.CurrentPrice
		},
		render: func(_ Kind, prev, cur snapshot.ItemRecord) Event {
			roi, _ := metrics.ROI(cur)
			return Event{
				Kind:     KindPopAchieved,
				Priority: PriorityHigh,
				ItemID:   cur.ID,
				ItemName: cur.Name,
				Message: fmt.Sprintf("%s reached its predicted retirement pop (%s vs %s predicted)",
					cur.Name, metrics.FormatPercent(roi), metrics.FormatPercent(cur.PredictedPopPercent)),
				Details: map[string]string{
					DetailMSRP:          metrics.FormatMoney(cur.ReferencePrice),
					DetailCurrentPrice:  metrics.FormatMoney(cur.CurrentPrice),
					DetailPreviousPrice: metrics.FormatMoney(prev.CurrentPrice),
					DetailROI:           metrics.FormatPercent(roi),
					DetailPredictedPop:  metrics.FormatPercent(cur.PredictedPopPercent),
					DetailPriceChange:   metrics.FormatMoney(metrics.PriceDelta(prev, cur)),
				},
			}
		},
	}
}

func targetReachedRule() rule {
	return rule{
		name:     "target_reached",
		channels: []Kind{KindTargetReached},
		crossed: func(prev, cur snapshot.ItemRecord) bool {
			target := cur.OneYearTargetValue
			if target <= 0 || !metrics.HasPrice(prev) {
				return false
			}
			return cur.CurrentPrice >= target && prev.CurrentPrice < target
		},
		render: func(_ Kind, prev, cur snapshot.ItemRecord) Event {
			details := map[string]string{
				DetailTarget:        metrics.FormatMoney(cur.OneYearTargetValue),
				DetailCurrentPrice:  metrics.FormatMoney(cur.CurrentPrice),
				DetailPreviousPrice: metrics.FormatMoney(prev.CurrentPrice),
			}
			if cur.FirstYearGrowthPercent != 0 {
				details[DetailFirstYearGrowth] = metrics.FormatPercent(cur.FirstYearGrowthPercent)
			}
			return Event{
				Kind:     KindTargetReached,
				Priority: PriorityMedium,
				ItemID:   cur.ID,
				ItemName: cur.Name,
				Message: fmt.Sprintf("%s reached its one-year target of %s",
					cur.Name, metrics.FormatMoney(cur.OneYearTargetValue)),
				Details: details,
			}
		},
	}
}

func buyingOpportunityRule() rule {
	return rule{
		name:     "buying_opportunity",
		channels: []Kind{KindBuyingOpportunity},
		crossed: func(prev, cur snapshot.ItemRecord) bool {
			ref := cur.ReferencePrice
			if cur.Retired() || ref <= 0 || !metrics.HasPrice(prev) || !metrics.HasPrice(cur) {
				return false
			}
			return metrics.WasAboveOrEqual(prev, ref) && metrics.IsBelow(cur, ref)
		},
		render: func(_ Kind, prev, cur snapshot.ItemRecord) Event {
			discount, _ := metrics.Discount(cur)
			priority := PriorityMedium
			if discount >= highDiscount {
				priority = PriorityHigh
			}
			details := map[string]string{
				DetailMSRP:          metrics.FormatMoney(cur.ReferencePrice),
				DetailCurrentPrice:  metrics.FormatMoney(cur.CurrentPrice),
				DetailPreviousPrice: metrics.FormatMoney(prev.CurrentPrice),
				DetailDiscount:      metrics.FormatNumber(discount) + "%",
				DetailSavings:       metrics.FormatMoney(cur.ReferencePrice - cur.CurrentPrice),
			}
			if profit, ok := metrics.PotentialProfit(cur); ok {
				details[DetailPotentialProfit] = metrics.FormatMoney(profit)
				details[DetailPredictedPop] = metrics.FormatPercent(cur.PredictedPopPercent)
			}
			return Event{
				Kind:     KindBuyingOpportunity,
				Priority: priority,
				ItemID:   cur.ID,
				ItemName: cur.Name,
				Message: fmt.Sprintf("%s dropped below MSRP: %s (%s%% off)",
					cur.Name, metrics.FormatMoney(cur.CurrentPrice), metrics.FormatNumber(discount)),
				Details: details,
			}
		},
	}
}

func roiTargetRule(target float64) rule {
	return rule{
		name:     "roi_target",
		channels: []Kind{KindROITarget},
		crossed: func(prev, cur snapshot.ItemRecord) bool {
			if !metrics.HasPrice(prev) || !metrics.HasPrice(cur) {
				return false
			}
			prevROI, okPrev := metrics.ROI(prev)
			curROI, okCur := metrics.ROI(cur)
			if !okPrev || !okCur {
				return false
			}
			return curROI >= target && prevROI < target
		},
		render: func(_ Kind, prev, cur snapshot.ItemRecord) Event {
			roi, _ := metrics.ROI(cur)
			return Event{
				Kind:     KindROITarget,
				Priority: PriorityLow,
				ItemID:   cur.ID,
				ItemName: cur.Name,
				Message: fmt.Sprintf("%s crossed the %s ROI line (now %s)",
					cur.Name, metrics.FormatPercent(target), metrics.FormatPercent(roi)),
				Details: map[string]string{
					DetailMSRP:          metrics.FormatMoney(cur.ReferencePrice),
					DetailCurrentPrice:  metrics.FormatMoney(cur.CurrentPrice),
					DetailPreviousPrice: metrics.FormatMoney(prev.CurrentPrice),
					DetailROI:           metrics.FormatPercent(roi),
					DetailROITarget:     metrics.FormatPercent(target),
				},
			}
		},
	}
}
