package tariff

import (
	"fmt"
	"strings"
)

// =============================================================================
// RATE TYPE - Closed set of billing modes
// =============================================================================

// RateType is the billing mode of a Rate. Stored labels are parsed once with
// ParseRateType; everything past that boundary switches on the enum.
type RateType int

const (
	RateHourly RateType = iota + 1
	RateDaily
	RateOvernight
	RateWeekly
	RateBiweekly
	RateMonthly
)

var rateTypeLabels = map[RateType]string{
	RateHourly:    "Hora/Fração",
	RateDaily:     "Diária",
	RateOvernight: "Pernoite",
	RateWeekly:    "Semanal",
	RateBiweekly:  "Quinzenal",
	RateMonthly:   "Mensal",
}

var rateTypeAliases = map[string]RateType{
	"hora/fração": RateHourly,
	"hora/fracao": RateHourly,
	"hora":        RateHourly,
	"hourly":      RateHourly,
	"diária":      RateDaily,
	"diaria":      RateDaily,
	"daily":       RateDaily,
	"pernoite":    RateOvernight,
	"overnight":   RateOvernight,
	"semanal":     RateWeekly,
	"weekly":      RateWeekly,
	"quinzenal":   RateBiweekly,
	"biweekly":    RateBiweekly,
	"mensal":      RateMonthly,
	"monthly":     RateMonthly,
}

// ParseRateType maps a stored label (Portuguese or English) to a RateType.
func ParseRateType(label string) (RateType, error) {
	if t, ok := rateTypeAliases[strings.ToLower(strings.TrimSpace(label))]; ok {
		return t, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRateType, label)
}

func (t RateType) String() string {
	if l, ok := rateTypeLabels[t]; ok {
		return l
	}
	return fmt.Sprintf("RateType(%d)", int(t))
}

// Key is the ASCII identifier used in breakdown and extra types.
func (t RateType) Key() string {
	switch t {
	case RateHourly:
		return "hourly"
	case RateDaily:
		return "daily"
	case RateOvernight:
		return "overnight"
	case RateWeekly:
		return "weekly"
	case RateBiweekly:
		return "biweekly"
	case RateMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// WindowType returns the time window kind consulted for this rate type.
// Hourly rates have no window.
func (t RateType) WindowType() (WindowType, bool) {
	switch t {
	case RateDaily:
		return WindowDaily, true
	case RateOvernight:
		return WindowOvernight, true
	case RateWeekly, RateBiweekly, RateMonthly:
		return WindowWeekly, true
	default:
		return "", false
	}
}

// DefaultLimitMinutes is the period covered by one charge of a long-stay
// rate when its window carries no explicit limit.
func (t RateType) DefaultLimitMinutes() int {
	switch t {
	case RateWeekly:
		return 7 * minutesPerDay
	case RateBiweekly:
		return 15 * minutesPerDay
	case RateMonthly:
		return 30 * minutesPerDay
	default:
		return 0
	}
}

func (t RateType) valid() bool {
	_, ok := rateTypeLabels[t]
	return ok
}
