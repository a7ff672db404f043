package factory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/tariff-engine/tariff"
)

const overnightTable = `{
  "rates": [
    {"id": "hora", "vehicle_type": "carro", "type": "Hora/Fração", "value": 5, "courtesy_minutes": 10},
    {"id": "pernoite", "vehicle_type": "carro", "type": "Pernoite", "value": "40.00"}
  ],
  "time_windows": [
    {"id": "w1", "rate_id": "pernoite", "start_time": "22:00", "end_time": "06:00", "extra_rate_id": "hora"}
  ],
  "thresholds": [
    {"source_rate_id": "hora", "target_rate_id": "pernoite", "threshold_amount": 40}
  ],
  "pricing_rules": [
    {"id": "r1", "rate_id": "pernoite", "name": "late", "kind": "time_of_day", "amount": 3, "start_time": "00:00", "end_time": "04:00", "priority": 2}
  ]
}`

func TestParseTable(t *testing.T) {
	f := NewTableFactory()
	f.newID = func() string { return "generated" }

	table, err := f.ParseTable(overnightTable)
	require.NoError(t, err)

	require.Len(t, table.Rates, 2)
	hourly := table.Rates[0]
	assert.Equal(t, tariff.RateHourly, hourly.Type)
	assert.True(t, hourly.IsActive, "is_active defaults to true")
	require.NotNil(t, hourly.CourtesyMinutes)
	assert.Equal(t, 10, *hourly.CourtesyMinutes)
	assert.True(t, table.Rates[1].Value.Equal(decimal.NewFromInt(40)))

	require.Len(t, table.TimeWindows, 1)
	w := table.TimeWindows[0]
	assert.Equal(t, tariff.WindowOvernight, w.Type, "window type follows the rate type")
	assert.Equal(t, tariff.NewClockTime(22, 0), w.StartTime)
	assert.Equal(t, tariff.NewClockTime(6, 0), w.EndTime)
	assert.True(t, w.WrapsMidnight())
	assert.Equal(t, tariff.RateID("hora"), w.ExtraRateID)

	require.Len(t, table.Thresholds, 1)
	assert.Equal(t, tariff.ThresholdID("generated"), table.Thresholds[0].ID)

	require.Len(t, table.PricingRules, 1)
	r := table.PricingRules[0]
	assert.Equal(t, tariff.RuleTimeOfDay, r.Kind)
	require.NotNil(t, r.StartTime)
	assert.Equal(t, "04:00", r.EndTime.String())
}

func TestParseTable_GeneratesUUIDs(t *testing.T) {
	table, err := NewTableFactory().ParseTable(`{"rates": [{"vehicle_type": "carro", "type": "Diária", "value": 30}]}`)
	require.NoError(t, err)
	assert.Len(t, string(table.Rates[0].ID), 36)
}

func TestParseTable_Rejects(t *testing.T) {
	tests := []struct {
		name string
		json string
		path string
	}{
		{
			name: "unknown rate type",
			json: `{"rates": [{"id": "x", "type": "Anual", "value": 1}]}`,
			path: "rates[0].type",
		},
		{
			name: "negative value",
			json: `{"rates": [{"id": "x", "type": "Diária", "value": -1}]}`,
			path: "rates[0].value",
		},
		{
			name: "duplicate rate",
			json: `{"rates": [{"id": "x", "type": "Diária", "value": 1}, {"id": "x", "type": "Mensal", "value": 1}]}`,
			path: "rates[1].id",
		},
		{
			name: "window for unknown rate",
			json: `{"rates": [], "time_windows": [{"rate_id": "ghost", "start_time": "08:00", "end_time": "18:00"}]}`,
			path: "time_windows[0].rate_id",
		},
		{
			name: "window on hourly rate",
			json: `{"rates": [{"id": "h", "type": "Hora/Fração", "value": 5}], "time_windows": [{"rate_id": "h", "start_time": "08:00", "end_time": "18:00"}]}`,
			path: "time_windows[0].window_type",
		},
		{
			name: "bad clock time",
			json: `{"rates": [{"id": "d", "type": "Diária", "value": 5}], "time_windows": [{"rate_id": "d", "start_time": "8h", "end_time": "18:00"}]}`,
			path: "time_windows[0].start_time",
		},
		{
			name: "weekday out of range",
			json: `{"rates": [{"id": "d", "type": "Diária", "value": 5}], "time_windows": [{"rate_id": "d", "start_time": "08:00", "end_time": "18:00", "start_day": 0, "end_day": 5}]}`,
			path: "time_windows[0].start_day",
		},
		{
			name: "half weekday range",
			json: `{"rates": [{"id": "d", "type": "Diária", "value": 5}], "time_windows": [{"rate_id": "d", "start_time": "08:00", "end_time": "18:00", "start_day": 1}]}`,
			path: "time_windows[0].start_day",
		},
		{
			name: "unknown extra rate",
			json: `{"rates": [{"id": "d", "type": "Diária", "value": 5}], "time_windows": [{"rate_id": "d", "start_time": "08:00", "end_time": "18:00", "extra_rate_id": "ghost"}]}`,
			path: "time_windows[0].extra_rate_id",
		},
		{
			name: "threshold to unknown target",
			json: `{"rates": [{"id": "d", "type": "Diária", "value": 5}], "thresholds": [{"source_rate_id": "d", "target_rate_id": "ghost", "threshold_amount": 1}]}`,
			path: "thresholds[0].target_rate_id",
		},
		{
			name: "unknown rule kind",
			json: `{"rates": [{"id": "d", "type": "Diária", "value": 5}], "pricing_rules": [{"rate_id": "d", "kind": "discount", "amount": 1}]}`,
			path: "pricing_rules[0].kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTableFactory().ParseTable(tt.json)
			require.Error(t, err)
			assert.True(t, tariff.IsClientError(err), "got %v", err)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.path, vErr.Path)
		})
	}
}

func TestParseTable_MalformedJSON(t *testing.T) {
	_, err := NewTableFactory().ParseTable(`{"rates": [`)
	assert.ErrorIs(t, err, tariff.ErrInvalidInput)
}

func TestParseTable_WeeklyWindowNeedsNoClock(t *testing.T) {
	table, err := NewTableFactory().ParseTable(`{
	  "rates": [{"id": "s", "type": "Semanal", "value": 150}],
	  "time_windows": [{"rate_id": "s", "duration_limit_minutes": 10080}]
	}`)
	require.NoError(t, err)
	assert.Equal(t, tariff.WindowWeekly, table.TimeWindows[0].Type)
	assert.Equal(t, 10080, table.TimeWindows[0].DurationLimitMinutes)
}

func TestRateToJSON(t *testing.T) {
	courtesy := 10
	rj := RateToJSON(tariff.Rate{ID: "hora", VehicleType: "carro", Type: tariff.RateHourly,
		Value: decimal.NewFromInt(5), CourtesyMinutes: &courtesy, IsActive: true})

	assert.Equal(t, "Hora/Fração", rj.Type)
	require.NotNil(t, rj.IsActive)
	assert.True(t, *rj.IsActive)

	// The label parses back to the same type.
	rt, err := tariff.ParseRateType(rj.Type)
	require.NoError(t, err)
	assert.Equal(t, tariff.RateHourly, rt)
}
