/*
engine.go - CalculateAdvancedPrice

CONTROL FLOW:
  1. Resolve the stay (entry/exit -> elapsed minutes, weekday)
  2. Read the configuration snapshot (windows, thresholds, rules, rates)
  3. Run the charged rate's strategy, billing overage past the window
  4. Apply pricing rules
  5. Advise on thresholds using the final price
  6. Optionally auto-apply the first AutoApply suggestion

AUTO-APPLY:
  Off by default: suggestions are informational and the price is the
  charged rate's price. With Options.AutoApplyThresholds set, the first
  suggestion (in advisor order) whose row has AutoApply replaces the price,
  breakdown, extras and warnings with the target rate's computation and is
  marked Applied. Both modes are deterministic for the same inputs.

STATE:
  None. Each call builds a fresh Result from a fresh snapshot.
*/
package tariff

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Options tune engine behavior.
type Options struct {
	// DefaultCourtesyMinutes applies to rates without their own courtesy.
	DefaultCourtesyMinutes int

	// AutoApplyThresholds lets AutoApply threshold rows override the price.
	AutoApplyThresholds bool
}

// Engine prices parking stays.
type Engine struct {
	Source  ConfigSource
	Options Options
}

// NewEngine creates an engine reading configuration from src.
func NewEngine(src ConfigSource, opts Options) *Engine {
	return &Engine{Source: src, Options: opts}
}

// CalculateAdvancedPrice prices a stay from entry to (exitDate, exitTime)
// under rate. Dates are YYYY-MM-DD and times HH:mm.
func (e *Engine) CalculateAdvancedPrice(ctx context.Context, entry Entry, rate Rate, exitDate, exitTime string) (*Result, error) {
	if err := validateRate(rate); err != nil {
		return nil, err
	}
	if entry.VehicleType == "" {
		entry.VehicleType = rate.VehicleType
	}

	stay, err := Resolve(entry, exitDate, exitTime)
	if err != nil {
		return nil, err
	}

	// Extra and threshold targets come from the charged rate's catalog.
	catalog := rate.VehicleType
	if catalog == "" {
		catalog = entry.VehicleType
	}
	snap, err := loadSnapshot(ctx, e.Source, rate, catalog)
	if err != nil {
		return nil, err
	}

	priced, err := e.price(stay, rate, snap.windows, snap.rules, snap.rate)
	if err != nil {
		return nil, err
	}

	res := priced.result(stay, rate.ID)

	suggestions, alternatives, err := e.advise(ctx, stay, rate, res.Price, snap)
	if err != nil {
		return nil, err
	}
	res.Suggestions = suggestions

	if e.Options.AutoApplyThresholds {
		for i := range res.Suggestions {
			s := &res.Suggestions[i]
			if !s.AutoApply {
				continue
			}
			applied := alternatives[i].result(stay, s.TargetRateID)
			res.Price = applied.Price
			res.Breakdown = applied.Breakdown
			res.Extras = applied.Extras
			res.Warnings = applied.Warnings
			res.ChargedRateID = applied.ChargedRateID
			s.Applied = true
			break
		}
	}

	return res, nil
}

// =============================================================================
// PRICING ONE RATE
// =============================================================================

type pricedStay struct {
	charge charge
	rules  []ChargeComponent
	price  decimal.Decimal
}

func (e *Engine) price(stay Stay, rate Rate, windows []TimeWindow, rules []PricingRule, rates func(RateID) (Rate, bool)) (pricedStay, error) {
	c, err := runStrategy(strategyInput{
		stay:            stay,
		rate:            rate,
		windows:         windows,
		rates:           rates,
		defaultCourtesy: e.Options.DefaultCourtesyMinutes,
	})
	if err != nil {
		return pricedStay{}, err
	}

	price := c.total()
	lines := applyRules(price, rules, stay)
	for _, l := range lines {
		price = price.Add(l.Amount)
	}
	return pricedStay{charge: c, rules: lines, price: price}, nil
}

func (p pricedStay) result(stay Stay, rateID RateID) *Result {
	breakdown := make([]ChargeComponent, 0, 1+len(p.rules))
	breakdown = append(breakdown, p.charge.base)
	breakdown = append(breakdown, p.rules...)

	extras := make([]ExtraComponent, 0, len(p.charge.extras))
	extras = append(extras, p.charge.extras...)

	warnings := make([]Warning, 0, len(p.charge.warnings))
	warnings = append(warnings, p.charge.warnings...)

	return &Result{
		Price:          p.price,
		Breakdown:      breakdown,
		Extras:         extras,
		Suggestions:    []Suggestion{},
		Warnings:       warnings,
		ElapsedMinutes: stay.ElapsedMinutes,
		ChargedRateID:  rateID,
	}
}

// =============================================================================
// THRESHOLD SUGGESTIONS
// =============================================================================

// advise returns the threshold suggestions for price together with the
// target rate computations, index-aligned.
func (e *Engine) advise(ctx context.Context, stay Stay, rate Rate, price decimal.Decimal, snap *snapshot) ([]Suggestion, []pricedStay, error) {
	raw := Advise(price, rate.ID, snap.thresholds)

	suggestions := make([]Suggestion, 0, len(raw))
	alternatives := make([]pricedStay, 0, len(raw))
	for _, s := range raw {
		target, ok := snap.rate(s.TargetRateID)
		if !ok {
			return nil, nil, &MissingConfigError{RateID: rate.ID, What: fmt.Sprintf("threshold target rate %s", s.TargetRateID)}
		}

		windows, rules, err := loadTargetConfig(ctx, e.Source, target)
		if err != nil {
			return nil, nil, err
		}
		if target.Type == RateDaily {
			if w, ok := selectWindow(windows, stay.Weekday); ok && !w.AllowsWeekday(stay.Weekday) {
				continue
			}
		}

		alt, err := e.price(stay, target, windows, rules, snap.rate)
		if err != nil {
			return nil, nil, err
		}

		s.TargetRateType = target.Type
		s.EstimatedPrice = alt.price
		s.Direction = DirectionUpgrade
		if alt.price.LessThan(price) {
			s.Direction = DirectionDowngrade
		}
		suggestions = append(suggestions, s)
		alternatives = append(alternatives, alt)
	}
	return suggestions, alternatives, nil
}

func validateRate(rate Rate) error {
	if !rate.Type.valid() {
		return fmt.Errorf("%w: rate %s", ErrUnknownRateType, rate.ID)
	}
	if rate.ID == "" {
		return fmt.Errorf("%w: rate id is required", ErrInvalidInput)
	}
	if rate.Value.IsNegative() {
		return fmt.Errorf("%w: rate %s has negative value", ErrInvalidInput, rate.ID)
	}
	return nil
}
