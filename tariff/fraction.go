package tariff

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// FRACTIONS - The hourly billing unit
// =============================================================================

// Fractions returns the billable hour blocks for a stay of the given minutes.
// A started hour counts only once its remainder exceeds the courtesy period,
// and any stay (including zero minutes) bills at least one fraction.
//
//	65 min, courtesy 10 -> 1
//	85 min, courtesy 10 -> 2
func Fractions(minutes, courtesy int) int {
	if minutes < 0 {
		minutes = 0
	}
	hours := minutes / minutesPerHour
	remainder := minutes % minutesPerHour

	fractions := hours
	if remainder > courtesy {
		fractions++
	}
	if fractions < 1 {
		fractions = 1
	}
	return fractions
}

// HourlyCharge prices a stay on an hourly/fraction rate.
func HourlyCharge(minutes int, rate Rate, defaultCourtesy int) ChargeComponent {
	fractions := Fractions(minutes, rate.Courtesy(defaultCourtesy))
	return ChargeComponent{
		Type:      RateHourly.Key(),
		Amount:    rate.Value.Mul(decimal.NewFromInt(int64(fractions))),
		Fractions: fractions,
		Minutes:   minutes,
	}
}

// =============================================================================
// OVERAGE - Extra charge past a window boundary
// =============================================================================

// ComputeExtra bills overMinutes on the extra (normally hourly) rate.
// Returns ok=false when there is nothing to bill.
func ComputeExtra(kind string, overMinutes int, extraRate Rate, defaultCourtesy int) (ExtraComponent, bool) {
	if overMinutes <= 0 {
		return ExtraComponent{}, false
	}
	fractions := Fractions(overMinutes, extraRate.Courtesy(defaultCourtesy))
	return ExtraComponent{
		Type:        kind + "_extra",
		Minutes:     overMinutes,
		Fractions:   fractions,
		Amount:      extraRate.Value.Mul(decimal.NewFromInt(int64(fractions))),
		ExtraRateID: extraRate.ID,
	}, true
}
