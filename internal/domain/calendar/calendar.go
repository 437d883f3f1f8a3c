// Package calendar buckets instants into days, weeks and months of a single
// configured time zone.
//
// Day keys are "YYYY-MM-DD" strings in that zone. Every window handled here is
// half-open: an instant t belongs to [start, end) when start <= t < end.
package calendar

import (
	"fmt"
	"strings"
	"time"
)

// DayKeyLayout is the layout of day keys.
const DayKeyLayout = "2006-01-02"

const daysPerWeek = 7

// Calendar performs date bucketing in one IANA zone.
type Calendar struct {
	loc *time.Location
}

// New returns a Calendar for loc. A nil location means UTC.
func New(loc *time.Location) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{loc: loc}
}

// Load returns a Calendar for the named IANA zone, e.g. "Europe/Berlin".
func Load(name string) (*Calendar, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return New(time.UTC), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidInput, name, err)
	}
	return New(loc), nil
}

// UTC is a Calendar in UTC.
func UTC() *Calendar { return New(time.UTC) }

// Location returns the zone of the calendar.
func (c *Calendar) Location() *time.Location { return c.loc }

// In converts t to the calendar zone.
func (c *Calendar) In(t time.Time) time.Time { return t.In(c.loc) }

// Midnight returns 00:00 of t's day.
func (c *Calendar) Midnight(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
}

// DayKey returns the day key of t.
func (c *Calendar) DayKey(t time.Time) string {
	return t.In(c.loc).Format(DayKeyLayout)
}

// ParseDayKey returns midnight of the day named by key.
func (c *Calendar) ParseDayKey(key string) (time.Time, error) {
	t, err := time.ParseInLocation(DayKeyLayout, strings.TrimSpace(key), c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: day key %q", ErrInvalidInput, key)
	}
	return t, nil
}

// Yesterday returns the day key of the day before t.
func (c *Calendar) Yesterday(t time.Time) string {
	return c.DayKey(c.Midnight(t).AddDate(0, 0, -1))
}

// NextWeeklyReset returns the next Sunday 00:00 strictly after ref. For a
// reference that is itself Sunday midnight the result is seven days later.
func (c *Calendar) NextWeeklyReset(ref time.Time) time.Time {
	mid := c.Midnight(ref)
	days := daysPerWeek - int(mid.Weekday())
	if days == 0 {
		days = daysPerWeek
	}
	return mid.AddDate(0, 0, days)
}

// WeekStart returns the start of the week containing ref, i.e. the
// NextWeeklyReset of ref minus seven days.
func (c *Calendar) WeekStart(ref time.Time) time.Time {
	return c.NextWeeklyReset(ref).AddDate(0, 0, -daysPerWeek)
}

// WeekWindow returns the [start, end) window that ends at resetAt.
func (c *Calendar) WeekWindow(resetAt time.Time) (time.Time, time.Time) {
	end := c.Midnight(resetAt)
	return end.AddDate(0, 0, -daysPerWeek), end
}

// MonthStart returns 00:00 of the first day of t's month.
func (c *Calendar) MonthStart(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, c.loc)
}

// YearStart returns 00:00 of January 1st of t's year.
func (c *Calendar) YearStart(t time.Time) time.Time {
	t = t.In(c.loc)
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, c.loc)
}

// SameMonth reports whether day key and t fall in the same calendar month.
func (c *Calendar) SameMonth(key string, t time.Time) bool {
	d, err := c.ParseDayKey(key)
	if err != nil {
		return false
	}
	t = t.In(c.loc)
	return d.Year() == t.Year() && d.Month() == t.Month()
}

// InWindow reports whether start <= t < end.
func InWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// DayNumber returns a civil day index for key, suitable for gap arithmetic:
// consecutive days differ by exactly one regardless of DST transitions.
func DayNumber(key string) (int64, error) {
	t, err := time.Parse(DayKeyLayout, strings.TrimSpace(key))
	if err != nil {
		return 0, fmt.Errorf("%w: day key %q", ErrInvalidInput, key)
	}
	return t.Unix() / int64(24*time.Hour/time.Second), nil
}
