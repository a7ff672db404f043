/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Every preset loads into an empty store
	- Loading replaces the previous tables
	- The current scenario is tracked
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/tariff-engine/presets"
	"github.com/warp/tariff-engine/store/sqlite"
	"github.com/warp/tariff-engine/tariff"
)

func setupTestHandler(t *testing.T) *Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewHandler(store, tariff.Options{}, zap.NewNop())
}

func TestScenario_AllScenariosLoadWithoutError(t *testing.T) {
	// GIVEN: All available scenarios
	// WHEN: Loading each scenario
	// THEN: None should error and every preset rate is readable
	for _, p := range presets.Catalog() {
		t.Run(p.ID, func(t *testing.T) {
			handler := setupTestHandler(t)
			ctx := context.Background()

			ids, err := handler.loadScenario(ctx, p.ID)
			require.NoError(t, err)
			require.NotEmpty(t, ids)

			for _, id := range ids {
				_, err := handler.Store.GetRate(ctx, tariff.RateID(id))
				assert.NoError(t, err, "rate %s", id)
			}
		})
	}
}

func TestScenario_LoadReplacesTables(t *testing.T) {
	handler := setupTestHandler(t)
	ctx := context.Background()

	require.NoError(t, handler.LoadPreset(ctx, "carro"))
	require.NoError(t, handler.LoadPreset(ctx, "moto"))

	rates, err := handler.Store.ListRates(ctx, tariff.RateFilter{})
	require.NoError(t, err)
	assert.Len(t, rates, 2)

	_, err = handler.Store.GetRate(ctx, "carro-hora")
	assert.ErrorIs(t, err, tariff.ErrRateNotFound)
}

func TestScenario_Unknown(t *testing.T) {
	handler := setupTestHandler(t)

	err := handler.LoadPreset(context.Background(), "caminhao")
	assert.ErrorIs(t, err, errUnknownScenario)

	router := NewRouter(handler, nil)
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "caminhao"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/scenarios/load", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenario_HTTPFlow(t *testing.T) {
	handler := setupTestHandler(t)
	router := NewRouter(handler, nil)

	rec := do(t, router, http.MethodGet, "/api/scenarios", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []ScenarioDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, len(presets.Catalog()))

	rec = do(t, router, http.MethodGet, "/api/scenarios/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", string(bytes.TrimSpace(rec.Body.Bytes())))

	rec = do(t, router, http.MethodPost, "/api/scenarios/load", `{"scenario_id": "moto"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var loaded LoadScenarioResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loaded))
	assert.ElementsMatch(t, []string{"moto-hora", "moto-diaria"}, loaded.RateIDs)

	rec = do(t, router, http.MethodGet, "/api/scenarios/current", "")
	var current ScenarioDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &current))
	assert.Equal(t, "moto", current.ID)
}
