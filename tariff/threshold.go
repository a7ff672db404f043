package tariff

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// THRESHOLD ADVISOR
// =============================================================================

// Advise returns a suggestion for every threshold row of chargedRateID that
// price exceeds. Rows for other source rates are ignored. The result is never
// nil and is ordered by threshold amount, then target, then row ID.
//
// Suggestions are informational: Advise never changes a price. Whether an
// AutoApply row forces the switch is the engine's decision (Options).
func Advise(price decimal.Decimal, chargedRateID RateID, thresholds []Threshold) []Suggestion {
	matching := make([]Threshold, 0, len(thresholds))
	for _, t := range thresholds {
		if t.SourceRateID == chargedRateID && price.GreaterThan(t.ThresholdAmount) {
			matching = append(matching, t)
		}
	}
	sort.SliceStable(matching, func(i, j int) bool {
		a, b := matching[i], matching[j]
		if c := a.ThresholdAmount.Cmp(b.ThresholdAmount); c != 0 {
			return c < 0
		}
		if a.TargetRateID != b.TargetRateID {
			return a.TargetRateID < b.TargetRateID
		}
		return a.ID < b.ID
	})

	suggestions := make([]Suggestion, 0, len(matching))
	for _, t := range matching {
		suggestions = append(suggestions, Suggestion{
			ThresholdID:     t.ID,
			TargetRateID:    t.TargetRateID,
			ThresholdAmount: t.ThresholdAmount,
			CurrentPrice:    price,
			AutoApply:       t.AutoApply,
			Reason: fmt.Sprintf("price %s exceeds threshold %s for rate %s",
				price.StringFixed(2), t.ThresholdAmount.StringFixed(2), chargedRateID),
		})
	}
	return suggestions
}
