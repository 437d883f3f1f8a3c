// Package badge holds the static badge catalog and threshold evaluation.
package badge

import "fmt"

// Kind groups badges by the metric that unlocks them.
type Kind string

// Badge kinds.
const (
	KindStreak   Kind = "streak"
	KindCalls    Kind = "calls"
	KindActivity Kind = "activity"
	KindLeague   Kind = "league"
)

// Period is the window an activity badge counts sessions over.
type Period string

// Activity periods.
const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// League badge ids.
const (
	LeagueFirst  = "league_first"
	LeagueSecond = "league_second"
	LeagueThird  = "league_third"
)

// Badge is a catalog entry. Target applies to streak, calls and activity
// badges, Rank to league badges.
type Badge struct {
	ID              string `json:"id"`
	Kind            Kind   `json:"kind"`
	Target          int    `json:"target,omitempty"`
	Period          Period `json:"period,omitempty"`
	Rank            int    `json:"rank,omitempty"`
	Description     string `json:"description"`
	TooltipTitle    string `json:"tooltipTitle"`
	TooltipSubtitle string `json:"tooltipSubtitle"`
}

// Catalog is an ordered list of badges. Order is the display and unlock
// order.
type Catalog []Badge

var (
	streakTargets = []int{5, 10, 30, 90, 180, 365}
	callTargets   = []int{10, 25, 50, 100, 250, 500, 750, 1000, 1500, 2500}
)

// Default returns the built-in catalog.
func Default() Catalog {
	c := make(Catalog, 0, len(streakTargets)+len(callTargets)+6)
	for _, n := range streakTargets {
		title := fmt.Sprintf("%d Day Streak", n)
		c = append(c, Badge{
			ID:              fmt.Sprintf("streak_%d", n),
			Kind:            KindStreak,
			Target:          n,
			Description:     title,
			TooltipTitle:    title,
			TooltipSubtitle: fmt.Sprintf("Practice for %d consecutive days", n),
		})
	}
	for _, n := range callTargets {
		title := fmt.Sprintf("%d Calls", n)
		c = append(c, Badge{
			ID:              fmt.Sprintf("calls_%d", n),
			Kind:            KindCalls,
			Target:          n,
			Description:     title,
			TooltipTitle:    title,
			TooltipSubtitle: fmt.Sprintf("Complete %d calls", n),
		})
	}
	c = append(c,
		activity("daily_10", 10, PeriodDay, "Day"),
		activity("weekly_50", 50, PeriodWeek, "Week"),
		activity("monthly_100", 100, PeriodMonth, "Month"),
		league(LeagueFirst, 1, "League Champion", "first"),
		league(LeagueSecond, 2, "League Runner-up", "second"),
		league(LeagueThird, 3, "League Top 3", "third"),
	)
	return c
}

func activity(id string, target int, p Period, word string) Badge {
	title := fmt.Sprintf("%d Sessions in a %s", target, word)
	return Badge{
		ID:              id,
		Kind:            KindActivity,
		Target:          target,
		Period:          p,
		Description:     title,
		TooltipTitle:    title,
		TooltipSubtitle: fmt.Sprintf("Complete %d sessions in one %s", target, p),
	}
}

func league(id string, rank int, title, place string) Badge {
	return Badge{
		ID:              id,
		Kind:            KindLeague,
		Rank:            rank,
		Description:     title,
		TooltipTitle:    title,
		TooltipSubtitle: fmt.Sprintf("Finish %s in weekly league", place),
	}
}

// Lookup finds a badge by id.
func (c Catalog) Lookup(id string) (Badge, bool) {
	for _, b := range c {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}

// OfKind returns the badges of kind k in catalog order.
func (c Catalog) OfKind(k Kind) Catalog {
	var out Catalog
	for _, b := range c {
		if b.Kind == k {
			out = append(out, b)
		}
	}
	return out
}

// LeagueBadgeForRank returns the league badge id awarded for a weekly rank,
// or "" when the rank earns nothing.
func (c Catalog) LeagueBadgeForRank(rank int) string {
	for _, b := range c {
		if b.Kind == KindLeague && b.Rank == rank {
			return b.ID
		}
	}
	return ""
}
