package tariff

import (
	"fmt"
	"strings"
	"time"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour

	dateLayout    = "2006-01-02"
	instantLayout = "2006-01-02 15:04"
)

// =============================================================================
// CLOCK TIME - Minutes since midnight
// =============================================================================

// ClockTime is a wall-clock time of day, stored as minutes since midnight.
type ClockTime int

// NewClockTime builds a ClockTime from hour and minute.
func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*minutesPerHour + minute)
}

// ParseClockTime accepts "HH:mm" and "HH:mm:ss" (seconds are dropped).
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	layout := "15:04"
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: clock time %q", ErrInvalidInput, s)
	}
	return NewClockTime(t.Hour(), t.Minute()), nil
}

// MustClockTime is ParseClockTime for literals; it panics on bad input.
func MustClockTime(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClockTime) Minutes() int { return int(c) }
func (c ClockTime) Hour() int    { return int(c) / minutesPerHour }
func (c ClockTime) Minute() int  { return int(c) % minutesPerHour }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On returns the instant this clock time falls on for the given day.
func (c ClockTime) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour(), c.Minute(), 0, 0, time.UTC)
}

// NextAfter returns the first occurrence of c strictly after t.
func (c ClockTime) NextAfter(t time.Time) time.Time {
	at := c.On(t)
	if !at.After(t) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

// Within reports whether c lies in [start, end), wrapping midnight when
// end < start. start == end covers the whole day.
func (c ClockTime) Within(start, end ClockTime) bool {
	if start == end {
		return true
	}
	if start < end {
		return c >= start && c < end
	}
	return c >= start || c < end
}

// =============================================================================
// STAY - Resolved entry/exit interval
// =============================================================================

// Entry is the vehicle side of a pricing request.
type Entry struct {
	Date        string // YYYY-MM-DD
	Time        string // HH:mm
	VehicleType string
}

// Stay is the resolved interval of one vehicle visit.
type Stay struct {
	EntryAt        time.Time
	ExitAt         time.Time
	ElapsedMinutes int
	Weekday        int // ISO weekday of the entry date (1=Monday ... 7=Sunday)
	ExitWeekday    int
	VehicleType    string
}

// Resolve combines the entry and exit date/time pairs into a Stay.
// Instants are UTC wall-clock so a stay across a DST change keeps its
// printed-ticket duration.
func Resolve(entry Entry, exitDate, exitTime string) (Stay, error) {
	entryAt, err := parseInstant(entry.Date, entry.Time)
	if err != nil {
		return Stay{}, err
	}
	exitAt, err := parseInstant(exitDate, exitTime)
	if err != nil {
		return Stay{}, err
	}
	if exitAt.Before(entryAt) {
		return Stay{}, &IntervalError{Entry: entryAt, Exit: exitAt}
	}

	return Stay{
		EntryAt:        entryAt,
		ExitAt:         exitAt,
		ElapsedMinutes: minutesBetween(entryAt, exitAt),
		Weekday:        isoWeekday(entryAt),
		ExitWeekday:    isoWeekday(exitAt),
		VehicleType:    entry.VehicleType,
	}, nil
}

// EntryClock is the entry time of day.
func (s Stay) EntryClock() ClockTime {
	return NewClockTime(s.EntryAt.Hour(), s.EntryAt.Minute())
}

// MinutesAfter returns whole minutes from boundary to exit, or 0 when the
// exit is at or before the boundary.
func (s Stay) MinutesAfter(boundary time.Time) int {
	if !s.ExitAt.After(boundary) {
		return 0
	}
	return minutesBetween(boundary, s.ExitAt)
}

// minutesBetween counts whole minutes from a to b on Unix seconds, which
// do not saturate across the full date range the way time.Duration does.
func minutesBetween(a, b time.Time) int {
	return int((b.Unix() - a.Unix()) / 60)
}

func parseInstant(date, clock string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidInput, date)
	}
	c, err := ParseClockTime(clock)
	if err != nil {
		return time.Time{}, err
	}
	return c.On(d), nil
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
