// Package ledger applies practice sessions to a member's engagement state.
//
// Everything here is pure: inputs are never mutated and no I/O happens. The
// caller loads a state, calls RecordEvent, and persists the result in one
// write.
package ledger

import (
	"math"
	"time"

	"github.com/okian/engage/internal/domain/badge"
	"github.com/okian/engage/internal/domain/calendar"
	"github.com/okian/engage/internal/domain/model"
)

// RecordEvent applies one session worth points at now to state and returns
// the new state with the ids of badges it unlocked. Unusable point values
// count as 0.
func RecordEvent(state model.MemberState, points float64, now time.Time, cal *calendar.Calendar, catalog badge.Catalog) (model.MemberState, []string) {
	next, _ := Normalize(state.Clone())
	if math.IsNaN(points) || math.IsInf(points, 0) || points < 0 {
		points = 0
	}

	today := cal.DayKey(now)
	yesterday := cal.Yesterday(now)
	last := next.LastSessionDate

	next.DailyPoints[today] = model.AddPoints(next.DailyPoints[today], points)
	next.TotalSessions++

	next.CurrentStreak = WriteStreak(last, next.CurrentStreak, today, yesterday)
	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}

	if last == today {
		next.SessionsToday++
	} else {
		next.SessionsToday = 1
	}
	if next.WeeklyResetAt.IsZero() || !now.Before(next.WeeklyResetAt) {
		next.SessionsThisWeek = 1
	} else {
		next.SessionsThisWeek++
	}
	if last != "" && cal.SameMonth(last, now) {
		next.SessionsThisMonth++
	} else {
		next.SessionsThisMonth = 1
	}

	var newly []string
	next.UnlockedBadges, newly = badge.Evaluate(catalog, MetricsOf(next), next.UnlockedBadges)

	next.LastSessionDate = today
	next.WeeklyResetAt = cal.NextWeeklyReset(now)
	next.UpdatedAt = now.UTC()
	return next, newly
}

// WriteStreak returns the streak after a session today. A second session on
// the same day keeps the streak (at least 1), a session the day after the
// last one extends it, anything else restarts at 1.
func WriteStreak(lastSession string, current int, today, yesterday string) int {
	switch lastSession {
	case today:
		if current < 1 {
			return 1
		}
		return current
	case yesterday:
		return current + 1
	default:
		return 1
	}
}

// MetricsOf extracts badge metrics from a state.
func MetricsOf(s model.MemberState) badge.Metrics {
	return badge.Metrics{
		Streak:            s.CurrentStreak,
		TotalSessions:     s.TotalSessions,
		SessionsToday:     s.SessionsToday,
		SessionsThisWeek:  s.SessionsThisWeek,
		SessionsThisMonth: s.SessionsThisMonth,
	}
}

// Normalize repairs a stored state that violates ledger invariants: a
// longest streak below the current one is raised and negative counters are
// zeroed. It reports whether anything changed.
func Normalize(s model.MemberState) (model.MemberState, bool) {
	changed := false
	if s.DailyPoints == nil {
		s.DailyPoints = model.DailyPoints{}
	}
	if s.UnlockedBadges == nil {
		s.UnlockedBadges = []string{}
	}
	for _, p := range []*int{&s.CurrentStreak, &s.LongestStreak, &s.TotalSessions,
		&s.SessionsToday, &s.SessionsThisWeek, &s.SessionsThisMonth} {
		if *p < 0 {
			*p = 0
			changed = true
		}
	}
	if s.LongestStreak < s.CurrentStreak {
		s.LongestStreak = s.CurrentStreak
		changed = true
	}
	for k, v := range s.DailyPoints {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			s.DailyPoints[k] = 0
			changed = true
		}
	}
	return s, changed
}
