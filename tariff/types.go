/*
Package tariff provides the parking tariff pricing engine.

PURPOSE:
  Turns a vehicle stay (entry and exit timestamps) plus the tariff
  configuration of the charged rate into a final price. The engine owns no
  state: every call reads a fresh configuration snapshot through a
  ConfigSource and returns a Result the caller owns.

KEY CONCEPTS IN THIS FILE (types.go):
  - Rate: The tariff being charged (hourly, daily, overnight, weekly...)
  - TimeWindow: When and how long a non-hourly rate is in effect
  - Threshold: Price ceiling that suggests (or forces) another rate
  - PricingRule: Extension hook contributing extra charge lines
  - Result: Price plus the ordered breakdown, extras and suggestions

DESIGN PRINCIPLES:
  1. Precision: Money is decimal.Decimal, never float64
  2. Closed dispatch: RateType is an enum resolved once at the boundary
  3. Determinism: Same inputs and snapshot always produce the same Result
  4. Explicitness: Missing configuration is an error or a Warning, never a guess

USAGE:
  engine := tariff.NewEngine(source, tariff.Options{DefaultCourtesyMinutes: 10})
  res, err := engine.CalculateAdvancedPrice(ctx,
      tariff.Entry{Date: "2025-02-12", Time: "10:00", VehicleType: "carro"},
      rate, "2025-02-12", "11:25")

SEE ALSO:
  - engine.go: CalculateAdvancedPrice
  - strategy.go: Per rate type algorithms
  - fraction.go: Fraction and overage arithmetic
  - threshold.go: Threshold advisor
*/
package tariff

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RateID string
type WindowID string
type ThresholdID string
type RuleID string

// =============================================================================
// RATE - The tariff being charged
// =============================================================================

type Rate struct {
	ID              RateID
	VehicleType     string
	Type            RateType
	Value           decimal.Decimal
	Unit            string
	CourtesyMinutes *int // nil = engine default
	IsActive        bool
}

// Courtesy returns the rate's grace period, falling back to def.
func (r Rate) Courtesy(def int) int {
	if r.CourtesyMinutes != nil && *r.CourtesyMinutes >= 0 {
		return *r.CourtesyMinutes
	}
	if def < 0 {
		return 0
	}
	return def
}

// RateFilter narrows RelatedRates lookups.
type RateFilter struct {
	IDs        []RateID
	Types      []RateType
	ActiveOnly bool
}

// Matches reports whether r passes the filter.
func (f RateFilter) Matches(r Rate) bool {
	if f.ActiveOnly && !r.IsActive {
		return false
	}
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if id == r.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if t == r.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// =============================================================================
// TIME WINDOW - When a non-hourly rate is in effect
// =============================================================================

type WindowType string

const (
	WindowDaily     WindowType = "daily"
	WindowOvernight WindowType = "overnight"
	WindowWeekly    WindowType = "weekly"
)

type TimeWindow struct {
	ID        WindowID
	RateID    RateID
	Type      WindowType
	StartTime ClockTime
	EndTime   ClockTime

	// Weekday range (1=Monday ... 7=Sunday). Both nil = every day.
	// StartDay > EndDay wraps over the weekend (e.g. 6..1).
	StartDay *int
	EndDay   *int

	DurationLimitMinutes int
	ExtraRateID          RateID // empty = no overage rate configured
	IsActive             bool
}

// WrapsMidnight is true when the window ends on the following day.
func (w TimeWindow) WrapsMidnight() bool {
	return w.EndTime.Minutes() < w.StartTime.Minutes()
}

// AllowsWeekday reports whether the ISO weekday falls in the window's range.
func (w TimeWindow) AllowsWeekday(day int) bool {
	if w.StartDay == nil || w.EndDay == nil {
		return true
	}
	start, end := *w.StartDay, *w.EndDay
	if start <= end {
		return day >= start && day <= end
	}
	return day >= start || day <= end
}

// weekdaySpan is the number of weekdays the range covers (7 = every day).
func (w TimeWindow) weekdaySpan() int {
	if w.StartDay == nil || w.EndDay == nil {
		return 7
	}
	start, end := *w.StartDay, *w.EndDay
	if start <= end {
		return end - start + 1
	}
	return 7 - start + end + 1
}

// =============================================================================
// THRESHOLD - Price ceiling that suggests another rate
// =============================================================================

type Threshold struct {
	ID              ThresholdID
	SourceRateID    RateID
	TargetRateID    RateID
	ThresholdAmount decimal.Decimal
	AutoApply       bool
}

// =============================================================================
// PRICING RULE - Extension point
// =============================================================================

type RuleKind string

const (
	RuleFixed      RuleKind = "fixed"       // Adds Amount
	RulePercentage RuleKind = "percentage"  // Adds Amount percent of the running price
	RuleTimeOfDay  RuleKind = "time_of_day" // Adds Amount when entry falls in [StartTime, EndTime)
)

type PricingRule struct {
	ID        RuleID
	RateID    RateID
	Name      string
	Kind      RuleKind
	Amount    decimal.Decimal
	StartTime *ClockTime
	EndTime   *ClockTime
	Priority  int
	IsActive  bool
}

// =============================================================================
// RESULT - Output of one pricing call
// =============================================================================

type ChargeComponent struct {
	Type      string
	Amount    decimal.Decimal
	Fractions int
	Days      int
	Minutes   int
}

type ExtraComponent struct {
	Type        string
	Minutes     int
	Fractions   int
	Amount      decimal.Decimal
	ExtraRateID RateID
}

type Direction string

const (
	DirectionUpgrade   Direction = "upgrade"
	DirectionDowngrade Direction = "downgrade"
)

type Suggestion struct {
	ThresholdID     ThresholdID
	TargetRateID    RateID
	TargetRateType  RateType
	Reason          string
	ThresholdAmount decimal.Decimal
	CurrentPrice    decimal.Decimal
	EstimatedPrice  decimal.Decimal
	Direction       Direction
	AutoApply       bool
	Applied         bool
}

type WarningCode string

const (
	WarnNoExtraRateConfigured WarningCode = "no_extra_rate_configured"
)

type Warning struct {
	Code            WarningCode
	Message         string
	WindowID        WindowID
	UnbilledMinutes int
}

type Result struct {
	Price          decimal.Decimal
	Breakdown      []ChargeComponent
	Extras         []ExtraComponent
	Suggestions    []Suggestion
	Warnings       []Warning
	ElapsedMinutes int
	ChargedRateID  RateID
}
