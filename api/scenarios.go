/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Loads the ready-made tariff tables from package presets into the store
	so the quote endpoint has something to price against.

AVAILABLE SCENARIOS:

	carro:      Hourly, daily 08-18, overnight 22-06 and weekly car rates
	moto:       Hourly and weekday daily motorcycle rates, auto-apply threshold
	sem-extra:  Daily window without an overage rate (warning path)

HOW SCENARIOS WORK:
 1. Parse the preset JSON via factory (validation included)
 2. Reset the tariff tables
 3. Import the parsed table

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "carro"}

ADDING NEW SCENARIOS:
 1. Add a JSON builder to package presets
 2. Register it in presets.Catalog

NOTE:

	Scenarios reset the tariff tables. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Quote handlers
  - presets/presets.go: Tariff table definitions
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/warp/tariff-engine/presets"
)

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	catalog := presets.Catalog()
	dtos := make([]ScenarioDTO, len(catalog))
	for i, p := range catalog {
		dtos[i] = ScenarioDTO{ID: p.ID, Name: p.Name, Description: p.Description}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	p, ok := presets.Find(current)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: p.ID, Name: p.Name, Description: p.Description})
}

// LoadScenario replaces the tariff tables with a preset.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if !h.validRequest(w, req) {
		return
	}

	rateIDs, err := h.loadScenario(r.Context(), req.ScenarioID)
	if err != nil {
		if errors.Is(err, errUnknownScenario) {
			writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("%w: %s", err, req.ScenarioID))
			return
		}
		h.log.Error("scenario load failed", zap.String("scenario_id", req.ScenarioID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, LoadScenarioResponse{
		ScenarioID: req.ScenarioID,
		Message:    fmt.Sprintf("Scenario %q loaded", req.ScenarioID),
		RateIDs:    rateIDs,
	})
}

var errUnknownScenario = errors.New("unknown scenario")

// LoadPreset seeds the store with a preset without going through HTTP.
func (h *Handler) LoadPreset(ctx context.Context, id string) error {
	_, err := h.loadScenario(ctx, id)
	return err
}

func (h *Handler) loadScenario(ctx context.Context, id string) ([]string, error) {
	p, ok := presets.Find(id)
	if !ok {
		return nil, errUnknownScenario
	}

	table, err := h.TableFactory.ParseTable(p.JSON())
	if err != nil {
		return nil, fmt.Errorf("parse preset %s: %w", id, err)
	}
	if err := h.Store.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset tables: %w", err)
	}
	if err := h.Store.ImportTable(ctx, table); err != nil {
		return nil, fmt.Errorf("import preset %s: %w", id, err)
	}

	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()

	rateIDs := make([]string, len(table.Rates))
	for i, rate := range table.Rates {
		rateIDs[i] = string(rate.ID)
	}
	h.log.Info("scenario loaded", zap.String("scenario_id", id), zap.Int("rates", len(rateIDs)))
	return rateIDs, nil
}
