/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the tariff domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Quotes:
    QuoteRequest, QuoteDTO, BreakdownDTO, ExtraDTO, SuggestionDTO, WarningDTO

  Rates:
    factory.RateJSON (reused as the rate DTO)

  Scenarios:
    ScenarioDTO, LoadScenarioRequest, LoadScenarioResponse

VALIDATION:
  Request types carry `validate` tags checked by go-playground/validator
  before the handler touches the store. Semantic checks (exit before entry,
  unknown rate type) stay in the engine.

MONEY:
  Amounts are decimal.Decimal and serialize as JSON strings ("12.50").

SEE ALSO:
  - handlers.go: Uses these types
  - factory/tariff.go: RateJSON type
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/tariff-engine/tariff"
)

// =============================================================================
// QUOTES
// =============================================================================

// QuoteRequest prices one stay under RateID.
type QuoteRequest struct {
	RateID      string `json:"rate_id" validate:"required"`
	VehicleType string `json:"vehicle_type,omitempty"` // defaults to the rate's vehicle type
	EntryDate   string `json:"entry_date" validate:"required,datetime=2006-01-02"`
	EntryTime   string `json:"entry_time" validate:"required,datetime=15:04"`
	ExitDate    string `json:"exit_date" validate:"required,datetime=2006-01-02"`
	ExitTime    string `json:"exit_time" validate:"required,datetime=15:04"`
}

// QuoteDTO is the priced stay.
type QuoteDTO struct {
	ID             string          `json:"id"`
	RateID         string          `json:"rate_id"`
	ChargedRateID  string          `json:"charged_rate_id"`
	Price          decimal.Decimal `json:"price"`
	ElapsedMinutes int             `json:"elapsed_minutes"`
	Breakdown      []BreakdownDTO  `json:"breakdown"`
	Extras         []ExtraDTO      `json:"extras"`
	Suggestions    []SuggestionDTO `json:"suggestions"`
	Warnings       []WarningDTO    `json:"warnings"`
}

// BreakdownDTO is one charge line.
type BreakdownDTO struct {
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Fractions int             `json:"fractions,omitempty"`
	Days      int             `json:"days,omitempty"`
	Minutes   int             `json:"minutes,omitempty"`
}

// ExtraDTO is time billed past a window.
type ExtraDTO struct {
	Type        string          `json:"type"`
	Minutes     int             `json:"minutes"`
	Fractions   int             `json:"fractions"`
	Amount      decimal.Decimal `json:"amount"`
	ExtraRateID string          `json:"extra_rate_id"`
}

// SuggestionDTO is a threshold hit.
type SuggestionDTO struct {
	ThresholdID     string          `json:"threshold_id"`
	TargetRateID    string          `json:"target_rate_id"`
	TargetRateType  string          `json:"target_rate_type"`
	Reason          string          `json:"reason"`
	ThresholdAmount decimal.Decimal `json:"threshold_amount"`
	CurrentPrice    decimal.Decimal `json:"current_price"`
	EstimatedPrice  decimal.Decimal `json:"estimated_price"`
	Direction       string          `json:"direction"`
	AutoApply       bool            `json:"auto_apply"`
	Applied         bool            `json:"applied"`
}

// WarningDTO flags a configuration gap that did not stop pricing.
type WarningDTO struct {
	Code            string `json:"code"`
	Message         string `json:"message"`
	WindowID        string `json:"window_id,omitempty"`
	UnbilledMinutes int    `json:"unbilled_minutes,omitempty"`
}

func toQuoteDTO(id string, rateID tariff.RateID, res *tariff.Result) QuoteDTO {
	dto := QuoteDTO{
		ID:             id,
		RateID:         string(rateID),
		ChargedRateID:  string(res.ChargedRateID),
		Price:          res.Price,
		ElapsedMinutes: res.ElapsedMinutes,
		Breakdown:      make([]BreakdownDTO, len(res.Breakdown)),
		Extras:         make([]ExtraDTO, len(res.Extras)),
		Suggestions:    make([]SuggestionDTO, len(res.Suggestions)),
		Warnings:       make([]WarningDTO, len(res.Warnings)),
	}
	for i, c := range res.Breakdown {
		dto.Breakdown[i] = BreakdownDTO{
			Type:      c.Type,
			Amount:    c.Amount,
			Fractions: c.Fractions,
			Days:      c.Days,
			Minutes:   c.Minutes,
		}
	}
	for i, e := range res.Extras {
		dto.Extras[i] = ExtraDTO{
			Type:        e.Type,
			Minutes:     e.Minutes,
			Fractions:   e.Fractions,
			Amount:      e.Amount,
			ExtraRateID: string(e.ExtraRateID),
		}
	}
	for i, s := range res.Suggestions {
		dto.Suggestions[i] = SuggestionDTO{
			ThresholdID:     string(s.ThresholdID),
			TargetRateID:    string(s.TargetRateID),
			TargetRateType:  s.TargetRateType.String(),
			Reason:          s.Reason,
			ThresholdAmount: s.ThresholdAmount,
			CurrentPrice:    s.CurrentPrice,
			EstimatedPrice:  s.EstimatedPrice,
			Direction:       string(s.Direction),
			AutoApply:       s.AutoApply,
			Applied:         s.Applied,
		}
	}
	for i, w := range res.Warnings {
		dto.Warnings[i] = WarningDTO{
			Code:            string(w.Code),
			Message:         w.Message,
			WindowID:        string(w.WindowID),
			UnbilledMinutes: w.UnbilledMinutes,
		}
	}
	return dto
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo tariff table.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// LoadScenarioResponse reports what a scenario load imported.
type LoadScenarioResponse struct {
	ScenarioID string   `json:"scenario_id"`
	Message    string   `json:"message"`
	RateIDs    []string `json:"rate_ids"`
}

// =============================================================================
// MISC
// =============================================================================

// HealthDTO is the liveness response.
type HealthDTO struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
