/*
Package factory provides JSON to Go tariff table conversion.

PURPOSE:
  Converts a JSON tariff table (rates plus their time windows, thresholds
  and pricing rules) into typed tariff records. Operators edit tariffs as
  JSON; the factory validates them once so the engine only ever sees
  well-formed configuration.

JSON SCHEMA:
  {
    "rates": [
      {"id": "carro-hora", "vehicle_type": "carro", "type": "Hora/Fração",
       "value": 5, "unit": "hora", "courtesy_minutes": 10},
      {"id": "carro-pernoite", "vehicle_type": "carro", "type": "Pernoite",
       "value": 40, "unit": "noite"}
    ],
    "time_windows": [
      {"id": "w-pernoite", "rate_id": "carro-pernoite",
       "start_time": "22:00", "end_time": "06:00",
       "extra_rate_id": "carro-hora"}
    ],
    "thresholds": [
      {"source_rate_id": "carro-hora", "target_rate_id": "carro-pernoite",
       "threshold_amount": 40, "auto_apply": false}
    ],
    "pricing_rules": [
      {"rate_id": "carro-hora", "name": "valet", "kind": "fixed", "amount": 2.5}
    ]
  }

DEFAULTS:
  - is_active defaults to true
  - window_type defaults to the one the rate type consults
  - rows without an id get a random UUID

VALIDATION:
  Rate type labels, clock times, weekday ranges (1..7), non-negative money,
  and every rate reference (rate_id, extra_rate_id, threshold source and
  target) must resolve inside the same table.

USAGE:
  f := factory.NewTableFactory()
  table, err := f.ParseTable(presets.CarTariffJSON())

SEE ALSO:
  - tariff/types.go: Record definitions
  - presets/: Ready-made tables
  - store/sqlite/sqlite.go: ImportTable
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/tariff-engine/tariff"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// TableJSON is the JSON representation of a tariff table.
type TableJSON struct {
	Rates        []RateJSON        `json:"rates"`
	TimeWindows  []TimeWindowJSON  `json:"time_windows,omitempty"`
	Thresholds   []ThresholdJSON   `json:"thresholds,omitempty"`
	PricingRules []PricingRuleJSON `json:"pricing_rules,omitempty"`
}

// RateJSON represents one rate.
type RateJSON struct {
	ID              string          `json:"id,omitempty"`
	VehicleType     string          `json:"vehicle_type"`
	Type            string          `json:"type"` // Hora/Fração, Diária, Pernoite, Semanal, Quinzenal, Mensal
	Value           decimal.Decimal `json:"value"`
	Unit            string          `json:"unit,omitempty"`
	CourtesyMinutes *int            `json:"courtesy_minutes,omitempty"`
	IsActive        *bool           `json:"is_active,omitempty"`
}

// TimeWindowJSON represents a rate's time window.
type TimeWindowJSON struct {
	ID                   string `json:"id,omitempty"`
	RateID               string `json:"rate_id"`
	WindowType           string `json:"window_type,omitempty"` // daily, overnight, weekly
	StartTime            string `json:"start_time,omitempty"`  // HH:mm
	EndTime              string `json:"end_time,omitempty"`
	StartDay             *int   `json:"start_day,omitempty"` // 1=Monday ... 7=Sunday
	EndDay               *int   `json:"end_day,omitempty"`
	DurationLimitMinutes int    `json:"duration_limit_minutes,omitempty"`
	ExtraRateID          string `json:"extra_rate_id,omitempty"`
	IsActive             *bool  `json:"is_active,omitempty"`
}

// ThresholdJSON represents a threshold row.
type ThresholdJSON struct {
	ID              string          `json:"id,omitempty"`
	SourceRateID    string          `json:"source_rate_id"`
	TargetRateID    string          `json:"target_rate_id"`
	ThresholdAmount decimal.Decimal `json:"threshold_amount"`
	AutoApply       bool            `json:"auto_apply,omitempty"`
}

// PricingRuleJSON represents a pricing rule.
type PricingRuleJSON struct {
	ID        string          `json:"id,omitempty"`
	RateID    string          `json:"rate_id"`
	Name      string          `json:"name,omitempty"`
	Kind      string          `json:"kind"` // fixed, percentage, time_of_day
	Amount    decimal.Decimal `json:"amount"`
	StartTime string          `json:"start_time,omitempty"`
	EndTime   string          `json:"end_time,omitempty"`
	Priority  int             `json:"priority,omitempty"`
	IsActive  *bool           `json:"is_active,omitempty"`
}

// =============================================================================
// TABLE - Typed output
// =============================================================================

// Table is a validated tariff table.
type Table struct {
	Rates        []tariff.Rate
	TimeWindows  []tariff.TimeWindow
	Thresholds   []tariff.Threshold
	PricingRules []tariff.PricingRule
}

// ValidationError points at the offending field of a tariff table.
type ValidationError struct {
	Path string // e.g. "time_windows[2].start_time"
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid tariff table at %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(path, format string, args ...any) error {
	return &ValidationError{Path: path, Err: fmt.Errorf("%w: "+format, append([]any{tariff.ErrInvalidInput}, args...)...)}
}

// =============================================================================
// TABLE FACTORY
// =============================================================================

// TableFactory converts JSON tariff tables to typed records.
type TableFactory struct {
	newID func() string
}

// NewTableFactory creates a new table factory.
func NewTableFactory() *TableFactory {
	return &TableFactory{newID: uuid.NewString}
}

// ParseTable parses a JSON string into a Table.
func (f *TableFactory) ParseTable(jsonStr string) (*Table, error) {
	var tj TableJSON
	if err := json.Unmarshal([]byte(jsonStr), &tj); err != nil {
		return nil, fmt.Errorf("%w: failed to parse tariff JSON: %v", tariff.ErrInvalidInput, err)
	}
	return f.FromJSON(tj)
}

// FromJSON validates tj and converts it to a Table.
func (f *TableFactory) FromJSON(tj TableJSON) (*Table, error) {
	table := &Table{}
	rates := make(map[tariff.RateID]tariff.Rate, len(tj.Rates))

	for i, rj := range tj.Rates {
		r, err := f.parseRate(fmt.Sprintf("rates[%d]", i), rj)
		if err != nil {
			return nil, err
		}
		if _, dup := rates[r.ID]; dup {
			return nil, invalid(fmt.Sprintf("rates[%d].id", i), "duplicate rate id %s", r.ID)
		}
		rates[r.ID] = r
		table.Rates = append(table.Rates, r)
	}

	for i, wj := range tj.TimeWindows {
		w, err := f.parseWindow(fmt.Sprintf("time_windows[%d]", i), wj, rates)
		if err != nil {
			return nil, err
		}
		table.TimeWindows = append(table.TimeWindows, w)
	}

	for i, thj := range tj.Thresholds {
		th, err := f.parseThreshold(fmt.Sprintf("thresholds[%d]", i), thj, rates)
		if err != nil {
			return nil, err
		}
		table.Thresholds = append(table.Thresholds, th)
	}

	for i, pj := range tj.PricingRules {
		r, err := f.parseRule(fmt.Sprintf("pricing_rules[%d]", i), pj, rates)
		if err != nil {
			return nil, err
		}
		table.PricingRules = append(table.PricingRules, r)
	}

	return table, nil
}

// RateToJSON converts a rate back to its JSON form.
func RateToJSON(r tariff.Rate) RateJSON {
	active := r.IsActive
	return RateJSON{
		ID:              string(r.ID),
		VehicleType:     r.VehicleType,
		Type:            r.Type.String(),
		Value:           r.Value,
		Unit:            r.Unit,
		CourtesyMinutes: r.CourtesyMinutes,
		IsActive:        &active,
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func (f *TableFactory) id(s string) string {
	if s != "" {
		return s
	}
	return f.newID()
}

func (f *TableFactory) parseRate(path string, rj RateJSON) (tariff.Rate, error) {
	rt, err := tariff.ParseRateType(rj.Type)
	if err != nil {
		return tariff.Rate{}, &ValidationError{Path: path + ".type", Err: err}
	}
	if rj.Value.IsNegative() {
		return tariff.Rate{}, invalid(path+".value", "negative value %s", rj.Value)
	}
	if rj.CourtesyMinutes != nil && *rj.CourtesyMinutes < 0 {
		return tariff.Rate{}, invalid(path+".courtesy_minutes", "negative courtesy %d", *rj.CourtesyMinutes)
	}
	return tariff.Rate{
		ID:              tariff.RateID(f.id(rj.ID)),
		VehicleType:     rj.VehicleType,
		Type:            rt,
		Value:           rj.Value,
		Unit:            rj.Unit,
		CourtesyMinutes: rj.CourtesyMinutes,
		IsActive:        boolOr(rj.IsActive, true),
	}, nil
}

func (f *TableFactory) parseWindow(path string, wj TimeWindowJSON, rates map[tariff.RateID]tariff.Rate) (tariff.TimeWindow, error) {
	rate, ok := rates[tariff.RateID(wj.RateID)]
	if !ok {
		return tariff.TimeWindow{}, invalid(path+".rate_id", "unknown rate %q", wj.RateID)
	}

	wt, err := windowType(wj.WindowType, rate)
	if err != nil {
		return tariff.TimeWindow{}, &ValidationError{Path: path + ".window_type", Err: err}
	}

	w := tariff.TimeWindow{
		ID:                   tariff.WindowID(f.id(wj.ID)),
		RateID:               rate.ID,
		Type:                 wt,
		DurationLimitMinutes: wj.DurationLimitMinutes,
		ExtraRateID:          tariff.RateID(wj.ExtraRateID),
		IsActive:             boolOr(wj.IsActive, true),
	}

	if wt != tariff.WindowWeekly || wj.StartTime != "" || wj.EndTime != "" {
		if w.StartTime, err = tariff.ParseClockTime(wj.StartTime); err != nil {
			return tariff.TimeWindow{}, &ValidationError{Path: path + ".start_time", Err: err}
		}
		if w.EndTime, err = tariff.ParseClockTime(wj.EndTime); err != nil {
			return tariff.TimeWindow{}, &ValidationError{Path: path + ".end_time", Err: err}
		}
	}

	if (wj.StartDay == nil) != (wj.EndDay == nil) {
		return tariff.TimeWindow{}, invalid(path+".start_day", "start_day and end_day must be set together")
	}
	if wj.StartDay != nil {
		if !validWeekday(*wj.StartDay) {
			return tariff.TimeWindow{}, invalid(path+".start_day", "weekday %d out of range 1..7", *wj.StartDay)
		}
		if !validWeekday(*wj.EndDay) {
			return tariff.TimeWindow{}, invalid(path+".end_day", "weekday %d out of range 1..7", *wj.EndDay)
		}
		w.StartDay, w.EndDay = wj.StartDay, wj.EndDay
	}

	if wj.DurationLimitMinutes < 0 {
		return tariff.TimeWindow{}, invalid(path+".duration_limit_minutes", "negative limit %d", wj.DurationLimitMinutes)
	}
	if w.ExtraRateID != "" {
		if _, ok := rates[w.ExtraRateID]; !ok {
			return tariff.TimeWindow{}, invalid(path+".extra_rate_id", "unknown rate %q", wj.ExtraRateID)
		}
	}
	return w, nil
}

func (f *TableFactory) parseThreshold(path string, tj ThresholdJSON, rates map[tariff.RateID]tariff.Rate) (tariff.Threshold, error) {
	if _, ok := rates[tariff.RateID(tj.SourceRateID)]; !ok {
		return tariff.Threshold{}, invalid(path+".source_rate_id", "unknown rate %q", tj.SourceRateID)
	}
	if _, ok := rates[tariff.RateID(tj.TargetRateID)]; !ok {
		return tariff.Threshold{}, invalid(path+".target_rate_id", "unknown rate %q", tj.TargetRateID)
	}
	if tj.SourceRateID == tj.TargetRateID {
		return tariff.Threshold{}, invalid(path+".target_rate_id", "threshold targets its own source %q", tj.SourceRateID)
	}
	if tj.ThresholdAmount.IsNegative() {
		return tariff.Threshold{}, invalid(path+".threshold_amount", "negative amount %s", tj.ThresholdAmount)
	}
	return tariff.Threshold{
		ID:              tariff.ThresholdID(f.id(tj.ID)),
		SourceRateID:    tariff.RateID(tj.SourceRateID),
		TargetRateID:    tariff.RateID(tj.TargetRateID),
		ThresholdAmount: tj.ThresholdAmount,
		AutoApply:       tj.AutoApply,
	}, nil
}

func (f *TableFactory) parseRule(path string, pj PricingRuleJSON, rates map[tariff.RateID]tariff.Rate) (tariff.PricingRule, error) {
	if _, ok := rates[tariff.RateID(pj.RateID)]; !ok {
		return tariff.PricingRule{}, invalid(path+".rate_id", "unknown rate %q", pj.RateID)
	}

	r := tariff.PricingRule{
		ID:       tariff.RuleID(f.id(pj.ID)),
		RateID:   tariff.RateID(pj.RateID),
		Name:     pj.Name,
		Kind:     tariff.RuleKind(pj.Kind),
		Amount:   pj.Amount,
		Priority: pj.Priority,
		IsActive: boolOr(pj.IsActive, true),
	}

	switch r.Kind {
	case tariff.RuleFixed, tariff.RulePercentage:
	case tariff.RuleTimeOfDay:
		start, err := tariff.ParseClockTime(pj.StartTime)
		if err != nil {
			return tariff.PricingRule{}, &ValidationError{Path: path + ".start_time", Err: err}
		}
		end, err := tariff.ParseClockTime(pj.EndTime)
		if err != nil {
			return tariff.PricingRule{}, &ValidationError{Path: path + ".end_time", Err: err}
		}
		r.StartTime, r.EndTime = &start, &end
	default:
		return tariff.PricingRule{}, invalid(path+".kind", "unknown rule kind %q", pj.Kind)
	}
	return r, nil
}

func windowType(s string, rate tariff.Rate) (tariff.WindowType, error) {
	expected, ok := rate.Type.WindowType()
	if !ok {
		return "", fmt.Errorf("%w: rate %s of type %s takes no time window", tariff.ErrInvalidInput, rate.ID, rate.Type)
	}
	if s == "" {
		return expected, nil
	}
	if tariff.WindowType(s) != expected {
		return "", fmt.Errorf("%w: window type %q does not match rate type %s", tariff.ErrInvalidInput, s, rate.Type)
	}
	return expected, nil
}

func validWeekday(d int) bool {
	return d >= 1 && d <= 7
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
