package badge

// Metrics are the member counters badges are evaluated against.
type Metrics struct {
	Streak            int
	TotalSessions     int
	SessionsToday     int
	SessionsThisWeek  int
	SessionsThisMonth int
	// LeagueRank is the final weekly rank being settled, 0 when none.
	LeagueRank int
}

// Current returns the metric value that b measures.
func (b Badge) Current(m Metrics) int {
	switch b.Kind {
	case KindStreak:
		return m.Streak
	case KindCalls:
		return m.TotalSessions
	case KindActivity:
		switch b.Period {
		case PeriodDay:
			return m.SessionsToday
		case PeriodWeek:
			return m.SessionsThisWeek
		case PeriodMonth:
			return m.SessionsThisMonth
		}
	case KindLeague:
		return m.LeagueRank
	}
	return 0
}

// Earned reports whether m meets b's threshold. League badges match the
// settled rank exactly.
func (b Badge) Earned(m Metrics) bool {
	if b.Kind == KindLeague {
		return b.Rank > 0 && m.LeagueRank == b.Rank
	}
	return b.Target > 0 && b.Current(m) >= b.Target
}

// Evaluate unions every badge earned under m into unlocked. Existing ids keep
// their position; new ones are appended in catalog order and also returned
// as newly. Applying Evaluate twice with the same input changes nothing.
func Evaluate(c Catalog, m Metrics, unlocked []string) (merged, newly []string) {
	var earned []string
	for _, b := range c {
		if b.Earned(m) {
			earned = append(earned, b.ID)
		}
	}
	return Union(unlocked, earned...)
}

// Union adds ids to unlocked as a set. It never removes or reorders.
func Union(unlocked []string, ids ...string) (merged, newly []string) {
	seen := make(map[string]struct{}, len(unlocked)+len(ids))
	merged = make([]string, 0, len(unlocked)+len(ids))
	for _, id := range unlocked {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
		newly = append(newly, id)
	}
	return merged, newly
}

// View is a badge with the member's unlock state and progress toward it.
type View struct {
	Badge
	Unlocked bool `json:"unlocked"`
	Current  int  `json:"current"`
	Progress int  `json:"progress"`
}

// Groups is the catalog split by kind for display.
type Groups struct {
	Streak   []View `json:"streakAchievements"`
	Calls    []View `json:"callAchievements"`
	Activity []View `json:"activityAchievements"`
	League   []View `json:"leagueAchievements"`
}

// Present builds display views for every badge in c.
func Present(c Catalog, m Metrics, unlocked []string) Groups {
	have := make(map[string]struct{}, len(unlocked))
	for _, id := range unlocked {
		have[id] = struct{}{}
	}
	g := Groups{
		Streak:   []View{},
		Calls:    []View{},
		Activity: []View{},
		League:   []View{},
	}
	for _, b := range c {
		_, ok := have[b.ID]
		v := View{Badge: b, Unlocked: ok}
		if b.Kind != KindLeague {
			v.Current = b.Current(m)
			v.Progress = progress(v.Current, b.Target, ok)
		} else if ok {
			v.Progress = 100
		}
		switch b.Kind {
		case KindStreak:
			g.Streak = append(g.Streak, v)
		case KindCalls:
			g.Calls = append(g.Calls, v)
		case KindActivity:
			g.Activity = append(g.Activity, v)
		case KindLeague:
			g.League = append(g.League, v)
		}
	}
	return g
}

func progress(current, target int, unlocked bool) int {
	if unlocked {
		return 100
	}
	if target <= 0 || current <= 0 {
		return 0
	}
	p := current * 100 / target
	if p > 100 {
		p = 100
	}
	return p
}
