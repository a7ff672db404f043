package tariff

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFractions(t *testing.T) {
	tests := []struct {
		minutes  int
		courtesy int
		want     int
	}{
		{0, 10, 1},
		{5, 10, 1},
		{60, 10, 1},
		{65, 10, 1},
		{70, 10, 1},
		{71, 10, 2},
		{85, 10, 2},
		{90, 10, 2},
		{120, 0, 2},
		{121, 0, 3},
		{540, 10, 9},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fractions(tt.minutes, tt.courtesy), "minutes=%d courtesy=%d", tt.minutes, tt.courtesy)
	}
}

func TestFractions_NeverBelowOneAndMonotonic(t *testing.T) {
	for _, courtesy := range []int{0, 5, 10, 15} {
		prev := 0
		for minutes := 0; minutes <= 600; minutes++ {
			f := Fractions(minutes, courtesy)
			assert.GreaterOrEqual(t, f, 1)
			assert.GreaterOrEqual(t, f, prev, "fractions dropped at %d minutes", minutes)
			prev = f
		}
	}
}

func TestHourlyCharge_RateCourtesyWinsOverDefault(t *testing.T) {
	courtesy := 10
	rate := Rate{ID: "hora", Type: RateHourly, Value: decimal.NewFromInt(5), CourtesyMinutes: &courtesy}

	c := HourlyCharge(65, rate, 0)
	assert.Equal(t, 1, c.Fractions)
	assert.True(t, c.Amount.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, "hourly", c.Type)

	rate.CourtesyMinutes = nil
	c = HourlyCharge(65, rate, 0)
	assert.Equal(t, 2, c.Fractions)
}

func TestComputeExtra(t *testing.T) {
	courtesy := 10
	extraRate := Rate{ID: "hora", Type: RateHourly, Value: decimal.RequireFromString("5.50"), CourtesyMinutes: &courtesy}

	_, ok := ComputeExtra("daily", 0, extraRate, 0)
	assert.False(t, ok)

	e, ok := ComputeExtra("overnight", 90, extraRate, 0)
	assert.True(t, ok)
	assert.Equal(t, "overnight_extra", e.Type)
	assert.Equal(t, 2, e.Fractions)
	assert.True(t, e.Amount.Equal(decimal.RequireFromString("11")), "got %s", e.Amount)
	assert.Equal(t, RateID("hora"), e.ExtraRateID)

	e, _ = ComputeExtra("daily", 3, extraRate, 0)
	assert.Equal(t, 1, e.Fractions, "any overage bills one fraction")
}
