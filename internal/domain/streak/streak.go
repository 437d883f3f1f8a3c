// Package streak computes read-time streak statistics from a set of practice
// days.
//
// This is the strict "read streak": a run only counts while every day up to
// and including today is present. The ledger keeps a separate write-time
// streak with one day of grace (see ledger.WriteStreak); the two are not
// interchangeable.
package streak

import (
	"math"
	"sort"
	"time"

	"github.com/okian/engage/internal/domain/calendar"
)

// Summary holds the derived streak statistics.
type Summary struct {
	Current            int `json:"current"`
	Longest            int `json:"longest"`
	ConsistencyPercent int `json:"consistencyPercent"`
}

// Calculate derives a Summary from practice day keys. Duplicate and
// malformed keys are ignored. An empty set yields zeros.
func Calculate(dates []string, today time.Time, cal *calendar.Calendar) Summary {
	days := dedupe(dates)
	if len(days) == 0 {
		return Summary{}
	}
	todayKey := cal.DayKey(today)
	todayNum, _ := calendar.DayNumber(todayKey)

	return Summary{
		Current:            current(days, todayNum),
		Longest:            longest(days),
		ConsistencyPercent: consistency(days, today, cal),
	}
}

// dedupe returns the sorted, unique day numbers of dates.
func dedupe(dates []string) []int64 {
	seen := make(map[int64]struct{}, len(dates))
	out := make([]int64, 0, len(dates))
	for _, d := range dates {
		n, err := calendar.DayNumber(d)
		if err != nil {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func current(days []int64, today int64) int {
	set := make(map[int64]struct{}, len(days))
	for _, d := range days {
		set[d] = struct{}{}
	}
	n := 0
	for {
		if _, ok := set[today-int64(n)]; !ok {
			return n
		}
		n++
	}
}

func longest(days []int64) int {
	best, run := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i]-days[i-1] == 1 {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}

// consistency is the share of days so far this month that were practiced.
func consistency(days []int64, today time.Time, cal *calendar.Calendar) int {
	local := cal.In(today)
	dom := local.Day()
	first, _ := calendar.DayNumber(cal.DayKey(cal.MonthStart(local)))
	last := first + int64(dom) - 1

	practiced := 0
	for _, d := range days {
		if d >= first && d <= last {
			practiced++
		}
	}
	return int(math.Round(100 * float64(practiced) / float64(dom)))
}
