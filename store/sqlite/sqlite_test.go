package sqlite

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tariff-engine/factory"
	"github.com/warp/tariff-engine/presets"
	"github.com/warp/tariff-engine/tariff"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func importJSON(t *testing.T, store *Store, jsonStr string) {
	t.Helper()
	table, err := factory.NewTableFactory().ParseTable(jsonStr)
	require.NoError(t, err)
	require.NoError(t, store.ImportTable(context.Background(), table))
}

func TestImportTable_RoundTripsRates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	importJSON(t, store, presets.CarTariffJSON("carro"))

	r, err := store.GetRate(ctx, "carro-hora")
	require.NoError(t, err)
	assert.Equal(t, tariff.RateHourly, r.Type)
	assert.True(t, r.Value.Equal(decimal.NewFromInt(5)))
	require.NotNil(t, r.CourtesyMinutes)
	assert.Equal(t, 10, *r.CourtesyMinutes)
	assert.True(t, r.IsActive)

	counts, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Rates: 4, TimeWindows: 3, Thresholds: 2}, counts)
}

func TestImportTable_IsIdempotent(t *testing.T) {
	store := newTestStore(t)
	importJSON(t, store, presets.CarTariffJSON("carro"))
	importJSON(t, store, presets.CarTariffJSON("carro"))

	counts, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, counts.Rates)
}

func TestGetRate_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRate(context.Background(), "ghost")
	assert.ErrorIs(t, err, tariff.ErrRateNotFound)
	assert.True(t, tariff.IsNotFound(err))
}

func TestListRates_Filters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	importJSON(t, store, presets.CarTariffJSON("carro"))
	importJSON(t, store, presets.MotorcycleTariffJSON("moto"))

	all, err := store.ListRates(ctx, tariff.RateFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 6)

	hourly, err := store.ListRates(ctx, tariff.RateFilter{Types: []tariff.RateType{tariff.RateHourly}})
	require.NoError(t, err)
	require.Len(t, hourly, 2)
	assert.Equal(t, tariff.RateID("carro-hora"), hourly[0].ID)

	related, err := store.RelatedRates(ctx, "moto", tariff.RateFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, related, 2)

	byID, err := store.ListRates(ctx, tariff.RateFilter{IDs: []tariff.RateID{"moto-diaria", "carro-semanal"}})
	require.NoError(t, err)
	assert.Len(t, byID, 2)
}

func TestTimeWindows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	importJSON(t, store, presets.MotorcycleTariffJSON("moto"))

	windows, err := store.TimeWindows(ctx, "moto-diaria", tariff.WindowDaily)
	require.NoError(t, err)
	require.Len(t, windows, 1)

	w := windows[0]
	assert.Equal(t, "07:00", w.StartTime.String())
	assert.Equal(t, "19:00", w.EndTime.String())
	require.NotNil(t, w.StartDay)
	assert.Equal(t, 1, *w.StartDay)
	assert.Equal(t, 5, *w.EndDay)
	assert.Equal(t, tariff.RateID("moto-hora"), w.ExtraRateID)

	none, err := store.TimeWindows(ctx, "moto-diaria", tariff.WindowOvernight)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestThresholdsAndRules(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	importJSON(t, store, `{
	  "rates": [
	    {"id": "h", "vehicle_type": "carro", "type": "Hora/Fração", "value": 5},
	    {"id": "d", "vehicle_type": "carro", "type": "Diária", "value": 30}
	  ],
	  "thresholds": [{"id": "t1", "source_rate_id": "h", "target_rate_id": "d", "threshold_amount": "29.90", "auto_apply": true}],
	  "pricing_rules": [
	    {"id": "r2", "rate_id": "h", "kind": "percentage", "amount": 10, "priority": 2},
	    {"id": "r1", "rate_id": "h", "name": "night", "kind": "time_of_day", "amount": 4, "start_time": "20:00", "end_time": "06:00", "priority": 1}
	  ]
	}`)

	thresholds, err := store.Thresholds(ctx, "h")
	require.NoError(t, err)
	require.Len(t, thresholds, 1)
	assert.True(t, thresholds[0].ThresholdAmount.Equal(decimal.RequireFromString("29.9")))
	assert.True(t, thresholds[0].AutoApply)

	rules, err := store.PricingRules(ctx, "h")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, tariff.RuleID("r1"), rules[0].ID)
	require.NotNil(t, rules[0].StartTime)
	assert.Equal(t, "20:00", rules[0].StartTime.String())
	assert.Nil(t, rules[1].StartTime)
}

func TestStore_DrivesEngine(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	importJSON(t, store, presets.CarTariffJSON("carro"))

	rate, err := store.GetRate(ctx, "carro-pernoite")
	require.NoError(t, err)

	res, err := tariff.NewEngine(store, tariff.Options{}).CalculateAdvancedPrice(ctx,
		tariff.Entry{Date: "2025-02-12", Time: "21:30", VehicleType: "carro"}, rate, "2025-02-13", "07:30")
	require.NoError(t, err)
	assert.True(t, res.Price.Equal(decimal.NewFromInt(50)), "got %s", res.Price)
}

func TestReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	importJSON(t, store, presets.CarTariffJSON("carro"))

	require.NoError(t, store.Reset(ctx))

	counts, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, counts)
}
