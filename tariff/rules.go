package tariff

import (
	"sort"

	"github.com/shopspring/decimal"
)

// applyRules evaluates active pricing rules in (priority, id) order against
// the running price and returns one breakdown line per rule that applied.
func applyRules(running decimal.Decimal, rules []PricingRule, stay Stay) []ChargeComponent {
	active := make([]PricingRule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		if active[i].Priority != active[j].Priority {
			return active[i].Priority < active[j].Priority
		}
		return active[i].ID < active[j].ID
	})

	var lines []ChargeComponent
	for _, r := range active {
		amount, ok := ruleAmount(r, running, stay)
		if !ok || amount.IsZero() {
			continue
		}
		running = running.Add(amount)
		lines = append(lines, ChargeComponent{
			Type:    "rule:" + ruleLabel(r),
			Amount:  amount,
			Minutes: stay.ElapsedMinutes,
		})
	}
	return lines
}

func ruleAmount(r PricingRule, running decimal.Decimal, stay Stay) (decimal.Decimal, bool) {
	switch r.Kind {
	case RuleFixed:
		return r.Amount, true
	case RulePercentage:
		return running.Mul(r.Amount).Div(decimal.NewFromInt(100)).Round(2), true
	case RuleTimeOfDay:
		if r.StartTime == nil || r.EndTime == nil {
			return decimal.Zero, false
		}
		if !stay.EntryClock().Within(*r.StartTime, *r.EndTime) {
			return decimal.Zero, false
		}
		return r.Amount, true
	default:
		return decimal.Zero, false
	}
}

func ruleLabel(r PricingRule) string {
	if r.Name != "" {
		return r.Name
	}
	return string(r.ID)
}
