package tariff

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE-TYPE STRATEGIES
// =============================================================================
//
// One algorithm per billing mode. The charged rate's type selects the
// strategy; a strategy never switches to a cheaper rate on its own.
//
//   Hourly     fractions x value
//   Daily      value per window, or ceil(minutes/1440) x value without one
//   Overnight  value, window required
//   Weekly+    value up to the duration limit
//
// Minutes past a window boundary are billed as overage on the window's
// extra rate (see fraction.go).

// charge is the outcome of one strategy run.
type charge struct {
	base     ChargeComponent
	extras   []ExtraComponent
	warnings []Warning
}

func (c charge) total() decimal.Decimal {
	total := c.base.Amount
	for _, e := range c.extras {
		total = total.Add(e.Amount)
	}
	return total
}

// strategyInput bundles what every strategy reads.
type strategyInput struct {
	stay            Stay
	rate            Rate
	windows         []TimeWindow
	rates           func(RateID) (Rate, bool)
	defaultCourtesy int
}

func runStrategy(in strategyInput) (charge, error) {
	switch in.rate.Type {
	case RateHourly:
		return charge{base: HourlyCharge(in.stay.ElapsedMinutes, in.rate, in.defaultCourtesy)}, nil
	case RateDaily:
		return dailyStrategy(in)
	case RateOvernight:
		return overnightStrategy(in)
	case RateWeekly, RateBiweekly, RateMonthly:
		return longStayStrategy(in)
	default:
		return charge{}, fmt.Errorf("%w: rate %s has type %v", ErrUnknownRateType, in.rate.ID, in.rate.Type)
	}
}

func dailyStrategy(in strategyInput) (charge, error) {
	w, ok := selectWindow(in.windows, in.stay.Weekday)
	if !ok {
		return periodCharge(in, minutesPerDay), nil
	}

	c := charge{base: ChargeComponent{
		Type:    RateDaily.Key(),
		Amount:  in.rate.Value,
		Days:    1,
		Minutes: in.stay.ElapsedMinutes,
	}}
	return c.withOverage(in, w, in.stay.MinutesAfter(windowEnd(w, in.stay)))
}

// overnightStrategy charges the flat value even when entry falls outside
// the window span; only minutes past the window end are overage.
func overnightStrategy(in strategyInput) (charge, error) {
	w, ok := selectWindow(in.windows, in.stay.Weekday)
	if !ok {
		return charge{}, &MissingConfigError{RateID: in.rate.ID, What: "active overnight time window"}
	}

	c := charge{base: ChargeComponent{
		Type:    RateOvernight.Key(),
		Amount:  in.rate.Value,
		Days:    1,
		Minutes: in.stay.ElapsedMinutes,
	}}
	return c.withOverage(in, w, in.stay.MinutesAfter(windowEnd(w, in.stay)))
}

// windowEnd is the boundary past which a windowed stay pays overage: the
// window end on the exit day, but never before the first end after entry.
func windowEnd(w TimeWindow, stay Stay) time.Time {
	end := w.EndTime.On(stay.ExitAt)
	if first := w.EndTime.NextAfter(stay.EntryAt); first.After(end) {
		return first
	}
	return end
}

func longStayStrategy(in strategyInput) (charge, error) {
	limit := in.rate.Type.DefaultLimitMinutes()
	w, ok := selectWindow(in.windows, in.stay.Weekday)
	if !ok {
		return periodCharge(in, limit), nil
	}
	if w.DurationLimitMinutes > 0 {
		limit = w.DurationLimitMinutes
	}

	c := charge{base: ChargeComponent{
		Type:    in.rate.Type.Key(),
		Amount:  in.rate.Value,
		Days:    limit / minutesPerDay,
		Minutes: in.stay.ElapsedMinutes,
	}}
	return c.withOverage(in, w, in.stay.ElapsedMinutes-limit)
}

// periodCharge bills whole periods of periodMinutes, at least one.
// Used by daily and long-stay rates that have no window configured.
func periodCharge(in strategyInput, periodMinutes int) charge {
	periods := (in.stay.ElapsedMinutes + periodMinutes - 1) / periodMinutes
	if periods < 1 {
		periods = 1
	}
	return charge{base: ChargeComponent{
		Type:    in.rate.Type.Key(),
		Amount:  in.rate.Value.Mul(decimal.NewFromInt(int64(periods))),
		Days:    periods * periodMinutes / minutesPerDay,
		Minutes: in.stay.ElapsedMinutes,
	}}
}

// withOverage bills overMinutes on the window's extra rate.
func (c charge) withOverage(in strategyInput, w TimeWindow, overMinutes int) (charge, error) {
	if overMinutes <= 0 {
		return c, nil
	}
	if w.ExtraRateID == "" {
		c.warnings = append(c.warnings, Warning{
			Code:            WarnNoExtraRateConfigured,
			Message:         fmt.Sprintf("%d minutes past window %s were not billed: no extra rate configured", overMinutes, w.ID),
			WindowID:        w.ID,
			UnbilledMinutes: overMinutes,
		})
		return c, nil
	}

	extraRate, ok := in.rates(w.ExtraRateID)
	if !ok {
		return charge{}, &MissingConfigError{RateID: in.rate.ID, What: fmt.Sprintf("extra rate %s", w.ExtraRateID)}
	}
	if extra, ok := ComputeExtra(in.rate.Type.Key(), overMinutes, extraRate, in.defaultCourtesy); ok {
		c.extras = append(c.extras, extra)
	}
	return c, nil
}
