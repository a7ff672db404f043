package presets_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tariff-engine/factory"
	"github.com/warp/tariff-engine/presets"
	"github.com/warp/tariff-engine/tariff"
	"github.com/warp/tariff-engine/tariff/store"
)

func load(t *testing.T, jsonStr string) *store.Memory {
	t.Helper()
	table, err := factory.NewTableFactory().ParseTable(jsonStr)
	require.NoError(t, err)

	src := store.NewMemory()
	for _, r := range table.Rates {
		src.PutRate(r)
	}
	for _, w := range table.TimeWindows {
		src.AddWindow(w)
	}
	for _, th := range table.Thresholds {
		src.AddThreshold(th)
	}
	for _, r := range table.PricingRules {
		src.AddRule(r)
	}
	return src
}

func TestCatalog_EveryPresetParses(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range presets.Catalog() {
		assert.False(t, seen[p.ID], "duplicate preset %s", p.ID)
		seen[p.ID] = true

		_, err := factory.NewTableFactory().ParseTable(p.JSON())
		assert.NoError(t, err, "preset %s", p.ID)
	}

	_, ok := presets.Find("carro")
	assert.True(t, ok)
	_, ok = presets.Find("nope")
	assert.False(t, ok)
}

func TestCarTariff_OvernightWithExtra(t *testing.T) {
	src := load(t, presets.CarTariffJSON("carro"))
	rate, ok := src.Rate("carro-pernoite")
	require.True(t, ok)

	res, err := tariff.NewEngine(src, tariff.Options{}).CalculateAdvancedPrice(context.Background(),
		tariff.Entry{Date: "2025-02-12", Time: "21:30", VehicleType: "carro"}, rate, "2025-02-13", "07:30")
	require.NoError(t, err)

	assert.True(t, res.Price.Equal(decimal.RequireFromString("50")), "got %s", res.Price)
	require.Len(t, res.Extras, 1)
	assert.Equal(t, tariff.RateID("carro-hora"), res.Extras[0].ExtraRateID)
}

func TestCarTariff_HourlySuggestsDaily(t *testing.T) {
	src := load(t, presets.CarTariffJSON("carro"))
	rate, _ := src.Rate("carro-hora")

	res, err := tariff.NewEngine(src, tariff.Options{}).CalculateAdvancedPrice(context.Background(),
		tariff.Entry{Date: "2025-02-12", Time: "08:00", VehicleType: "carro"}, rate, "2025-02-12", "17:00")
	require.NoError(t, err)

	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, tariff.RateID("carro-diaria"), res.Suggestions[0].TargetRateID)
	assert.False(t, res.Suggestions[0].AutoApply)
}

func TestMotorcycleTariff_AutoApplyOnWeekdays(t *testing.T) {
	src := load(t, presets.MotorcycleTariffJSON("moto"))
	rate, _ := src.Rate("moto-hora")
	engine := tariff.NewEngine(src, tariff.Options{AutoApplyThresholds: true})

	// Wednesday: 10 fractions = 30 > 15, daily applies.
	res, err := engine.CalculateAdvancedPrice(context.Background(),
		tariff.Entry{Date: "2025-02-12", Time: "08:00", VehicleType: "moto"}, rate, "2025-02-12", "18:00")
	require.NoError(t, err)
	assert.Equal(t, tariff.RateID("moto-diaria"), res.ChargedRateID)
	assert.True(t, res.Price.Equal(decimal.RequireFromString("15")), "got %s", res.Price)

	// Sunday: the daily window does not cover the entry day.
	res, err = engine.CalculateAdvancedPrice(context.Background(),
		tariff.Entry{Date: "2025-02-16", Time: "08:00", VehicleType: "moto"}, rate, "2025-02-16", "18:00")
	require.NoError(t, err)
	assert.Equal(t, tariff.RateID("moto-hora"), res.ChargedRateID)
	assert.Empty(t, res.Suggestions)
}

func TestDailyWithoutExtra_Warns(t *testing.T) {
	src := load(t, presets.DailyWithoutExtraJSON("carro"))
	rate, _ := src.Rate("carro-diaria-simples")

	res, err := tariff.NewEngine(src, tariff.Options{}).CalculateAdvancedPrice(context.Background(),
		tariff.Entry{Date: "2025-02-12", Time: "09:00"}, rate, "2025-02-12", "19:00")
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, tariff.WarnNoExtraRateConfigured, res.Warnings[0].Code)
}
