package tariff

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClockTime(t *testing.T) {
	c, err := ParseClockTime("07:30")
	require.NoError(t, err)
	assert.Equal(t, 450, c.Minutes())
	assert.Equal(t, "07:30", c.String())

	c, err = ParseClockTime("22:15:59")
	require.NoError(t, err)
	assert.Equal(t, NewClockTime(22, 15), c, "seconds are dropped")

	for _, bad := range []string{"", "7h30", "24:00", "12:61"} {
		_, err := ParseClockTime(bad)
		assert.ErrorIs(t, err, ErrInvalidInput, "input %q", bad)
	}
}

func TestClockTime_NextAfter(t *testing.T) {
	entry := time.Date(2025, 2, 12, 21, 30, 0, 0, time.UTC)

	// Overnight window end falls on the following day.
	assert.Equal(t, time.Date(2025, 2, 13, 6, 0, 0, 0, time.UTC), MustClockTime("06:00").NextAfter(entry))

	// Boundary equal to the entry instant moves to the next day.
	assert.Equal(t, time.Date(2025, 2, 13, 21, 30, 0, 0, time.UTC), MustClockTime("21:30").NextAfter(entry))

	morning := time.Date(2025, 2, 12, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 12, 18, 0, 0, 0, time.UTC), MustClockTime("18:00").NextAfter(morning))
}

func TestClockTime_Within(t *testing.T) {
	night, morning := MustClockTime("22:00"), MustClockTime("06:00")

	assert.True(t, MustClockTime("23:59").Within(night, morning))
	assert.True(t, MustClockTime("00:00").Within(night, morning))
	assert.False(t, MustClockTime("06:00").Within(night, morning))
	assert.False(t, MustClockTime("12:00").Within(night, morning))

	assert.True(t, MustClockTime("08:00").Within(MustClockTime("08:00"), MustClockTime("18:00")))
	assert.False(t, MustClockTime("18:00").Within(MustClockTime("08:00"), MustClockTime("18:00")))
	assert.True(t, MustClockTime("03:00").Within(night, night), "equal bounds cover the day")
}

func TestResolve(t *testing.T) {
	stay, err := Resolve(Entry{Date: "2025-02-12", Time: "21:30", VehicleType: "carro"}, "2025-02-13", "07:30")
	require.NoError(t, err)

	assert.Equal(t, 600, stay.ElapsedMinutes)
	assert.Equal(t, 3, stay.Weekday, "2025-02-12 is a Wednesday")
	assert.Equal(t, 4, stay.ExitWeekday)
	assert.Equal(t, "carro", stay.VehicleType)
	assert.Equal(t, NewClockTime(21, 30), stay.EntryClock())
}

func TestResolve_SundayIsSeven(t *testing.T) {
	stay, err := Resolve(Entry{Date: "2025-02-16", Time: "10:00"}, "2025-02-16", "10:00")
	require.NoError(t, err)
	assert.Equal(t, 7, stay.Weekday)
	assert.Equal(t, 0, stay.ElapsedMinutes)
}

func TestResolve_SecondsAreTruncated(t *testing.T) {
	stay, err := Resolve(Entry{Date: "2025-02-12", Time: "10:00:59"}, "2025-02-12", "10:59:59")
	require.NoError(t, err)
	assert.Equal(t, 59, stay.ElapsedMinutes)
}

func TestResolve_ExitBeforeEntry(t *testing.T) {
	_, err := Resolve(Entry{Date: "2025-02-12", Time: "10:00"}, "2025-02-11", "23:00")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInterval)
	var ivErr *IntervalError
	require.ErrorAs(t, err, &ivErr)
	assert.Contains(t, ivErr.Error(), "2025-02-11 23:00")
}

func TestStay_MinutesAfter(t *testing.T) {
	stay, err := Resolve(Entry{Date: "2025-02-12", Time: "09:00"}, "2025-02-12", "19:30")
	require.NoError(t, err)

	assert.Equal(t, 90, stay.MinutesAfter(time.Date(2025, 2, 12, 18, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, stay.MinutesAfter(time.Date(2025, 2, 12, 19, 30, 0, 0, time.UTC)))
	assert.Equal(t, 0, stay.MinutesAfter(time.Date(2025, 2, 12, 20, 0, 0, 0, time.UTC)))
}

func TestResolve_ElapsedMinutesAcrossFullDateRange(t *testing.T) {
	stay, err := Resolve(Entry{Date: "0001-01-01", Time: "00:00"}, "9999-12-31", "00:00")
	require.NoError(t, err)

	entry := time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC)
	exit := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, int((exit.Unix()-entry.Unix())/60), stay.ElapsedMinutes)
	assert.Greater(t, stay.ElapsedMinutes, int(time.Duration(math.MaxInt64)/time.Minute))

	assert.Equal(t, stay.ElapsedMinutes, stay.MinutesAfter(entry))
}
