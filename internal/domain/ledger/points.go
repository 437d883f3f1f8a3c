package ledger

import (
	"sort"
	"time"

	"github.com/okian/engage/internal/domain/calendar"
	"github.com/okian/engage/internal/domain/model"
)

// WeeklyTotal sums the points of the seven days ending at resetAt, i.e. the
// half-open window [resetAt-7d, resetAt). A zero resetAt yields 0.
func WeeklyTotal(points model.DailyPoints, resetAt time.Time, cal *calendar.Calendar) float64 {
	if resetAt.IsZero() {
		return 0
	}
	start, end := cal.WeekWindow(resetAt)
	total := 0.0
	for key, v := range points {
		d, err := cal.ParseDayKey(key)
		if err != nil {
			continue
		}
		if calendar.InWindow(d, start, end) {
			total = model.AddPoints(total, v)
		}
	}
	return total
}

// TotalPoints sums every day, saturating at math.MaxFloat64.
func TotalPoints(points model.DailyPoints) float64 {
	total := 0.0
	for _, v := range points {
		total = model.AddPoints(total, v)
	}
	return total
}

// ChartPoint is one day of the weekly progress chart.
type ChartPoint struct {
	Day  string  `json:"day"`
	Date string  `json:"date"`
	You  float64 `json:"you"`
}

// WeeklyChart lists the days of now's week that have points, in date order,
// with a running total.
func WeeklyChart(points model.DailyPoints, now time.Time, cal *calendar.Calendar) []ChartPoint {
	start, end := cal.WeekWindow(cal.NextWeeklyReset(now))

	type day struct {
		at  time.Time
		key string
		v   float64
	}
	var days []day
	for key, v := range points {
		d, err := cal.ParseDayKey(key)
		if err != nil || !calendar.InWindow(d, start, end) {
			continue
		}
		days = append(days, day{at: d, key: cal.DayKey(d), v: v})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].at.Before(days[j].at) })

	out := make([]ChartPoint, 0, len(days))
	running := 0.0
	for _, d := range days {
		running = model.AddPoints(running, d.v)
		out = append(out, ChartPoint{Day: d.at.Weekday().String(), Date: d.key, You: running})
	}
	return out
}

// ActivityCounts are session counts over growing windows.
type ActivityCounts struct {
	Today int `json:"today"`
	Week  int `json:"week"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

// CountActivity counts sessions at or after today's midnight, midnight seven
// days ago, the first of the month and the first of the year.
func CountActivity(sessions []time.Time, now time.Time, cal *calendar.Calendar) ActivityCounts {
	today := cal.Midnight(now)
	week := today.AddDate(0, 0, -7)
	month := cal.MonthStart(now)
	year := cal.YearStart(now)

	var c ActivityCounts
	for _, t := range sessions {
		if !t.Before(today) {
			c.Today++
		}
		if !t.Before(week) {
			c.Week++
		}
		if !t.Before(month) {
			c.Month++
		}
		if !t.Before(year) {
			c.Year++
		}
	}
	return c
}
