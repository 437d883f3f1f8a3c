package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/engage/internal/adapters/repository"
	"github.com/okian/engage/internal/domain/badge"
	"github.com/okian/engage/internal/domain/ledger"
	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/internal/domain/ranking"
	"github.com/okian/engage/pkg/metrics"
)

// AchievementsView is the member's badge board with this week's rankings
// and points chart.
type AchievementsView struct {
	badge.Groups
	UserData       Member               `json:"userData"`
	WeeklyRankings []model.RankingEntry `json:"weeklyRankings"`
	TeamRankings   []model.RankingEntry `json:"teamRankings"`
	ChartData      []ledger.ChartPoint  `json:"chartData"`
}

// LeagueView holds the league tables for a member.
type LeagueView struct {
	UserData        Member               `json:"userData"`
	WeeklyRankings  []model.RankingEntry `json:"weeklyRankings"`
	AllTimeRankings []model.RankingEntry `json:"allTimeRankings"`
	TeamRankings    []model.RankingEntry `json:"teamRankings"`
}

// liveMetrics ages the stored period counters to now: a counter whose
// period has ended reads as zero, and so does a write streak whose last
// session is older than yesterday.
func (s *Service) liveMetrics(st model.MemberState, now time.Time) badge.Metrics {
	m := ledger.MetricsOf(st)
	today := s.cal.DayKey(now)
	if st.LastSessionDate != today {
		m.SessionsToday = 0
		if st.LastSessionDate != s.cal.Yesterday(now) {
			m.Streak = 0
		}
	}
	if st.WeeklyResetAt.IsZero() || !now.Before(st.WeeklyResetAt) {
		m.SessionsThisWeek = 0
	}
	if st.LastSessionDate == "" || !s.cal.SameMonth(st.LastSessionDate, now) {
		m.SessionsThisMonth = 0
	}
	return m
}

// Achievements builds the badge board, weekly and team weekly rankings and
// weekly chart of a member. Unknown members get an empty board.
func (s *Service) Achievements(ctx context.Context, memberID string) (AchievementsView, error) {
	if err := requireID("memberId", memberID); err != nil {
		return AchievementsView{}, err
	}
	memberID = strings.TrimSpace(memberID)
	now := s.now()
	st, _, err := s.loadMember(ctx, memberID)
	if err != nil {
		return AchievementsView{}, err
	}

	weekly, err := s.rankFor(ctx, ranking.ScopeWeekly, &st, "", 0, now)
	if err != nil {
		return AchievementsView{}, err
	}
	team, err := s.rankFor(ctx, ranking.ScopeTeamWeekly, &st, st.TeamID, 0, now)
	if err != nil {
		return AchievementsView{}, err
	}

	user := s.describe(st)
	user.WeeklyTotal = ledger.WeeklyTotal(st.DailyPoints, s.cal.NextWeeklyReset(now), s.cal)
	return AchievementsView{
		Groups:         badge.Present(s.catalog, s.liveMetrics(st, now), st.UnlockedBadges),
		UserData:       user,
		WeeklyRankings: weekly,
		TeamRankings:   team,
		ChartData:      ledger.WeeklyChart(st.DailyPoints, now, s.cal),
	}, nil
}

// League builds the weekly, all-time and team all-time tables of a member.
func (s *Service) League(ctx context.Context, memberID string) (LeagueView, error) {
	if err := requireID("memberId", memberID); err != nil {
		return LeagueView{}, err
	}
	memberID = strings.TrimSpace(memberID)
	now := s.now()
	st, _, err := s.loadMember(ctx, memberID)
	if err != nil {
		return LeagueView{}, err
	}

	view := LeagueView{UserData: s.describe(st)}
	view.UserData.WeeklyTotal = ledger.WeeklyTotal(st.DailyPoints, s.cal.NextWeeklyReset(now), s.cal)
	if view.WeeklyRankings, err = s.rankFor(ctx, ranking.ScopeWeekly, &st, "", 0, now); err != nil {
		return LeagueView{}, err
	}
	if view.AllTimeRankings, err = s.rankFor(ctx, ranking.ScopeAllTime, &st, "", 0, now); err != nil {
		return LeagueView{}, err
	}
	if view.TeamRankings, err = s.rankFor(ctx, ranking.ScopeTeamAllTime, &st, st.TeamID, 0, now); err != nil {
		return LeagueView{}, err
	}
	return view, nil
}

// Rankings returns a single leaderboard.
func (s *Service) Rankings(ctx context.Context, req RankingQueryRequest) ([]model.RankingEntry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	var viewer *model.MemberState
	if id := strings.TrimSpace(req.ViewerID); id != "" {
		st, found, err := s.loadMember(ctx, id)
		if err != nil {
			return nil, err
		}
		if found {
			viewer = &st
		}
	}
	team := strings.TrimSpace(req.TeamID)
	if team == "" && viewer != nil {
		team = viewer.TeamID
	}
	return s.rankFor(ctx, req.Scope, viewer, team, req.Limit, now)
}

func isTeamScope(scope ranking.Scope) bool {
	return scope == ranking.ScopeTeamWeekly || scope == ranking.ScopeTeamAllTime
}

func isWeeklyScope(scope ranking.Scope) bool {
	return scope == ranking.ScopeWeekly || scope == ranking.ScopeTeamWeekly
}

// rankFor loads a snapshot of the scope's members and ranks it. Weekly
// scopes keep members active in the current week and score them by the
// week's points; all-time scopes score by total points. Team scopes
// without a team are empty.
func (s *Service) rankFor(ctx context.Context, scope ranking.Scope, viewer *model.MemberState, team string, limit int, now time.Time) ([]model.RankingEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRankingQuery(string(scope), float64(time.Since(start).Microseconds())/1000)
	}()

	policy, err := ranking.PolicyFor(scope)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if isTeamScope(scope) && team == "" {
		return []model.RankingEntry{}, nil
	}
	if limit <= 0 {
		limit = s.leaderboardSize
	}

	reset := s.cal.NextWeeklyReset(now)
	filter := repository.MemberFilter{}
	if isTeamScope(scope) {
		filter.TeamID = team
	}
	if isWeeklyScope(scope) {
		filter.WeeklyResetAt = reset
	}
	rows, err := s.store.ListMembers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: list members: %w", ErrStore, err)
	}

	score := func(st model.MemberState) float64 {
		if isWeeklyScope(scope) {
			return ledger.WeeklyTotal(st.DailyPoints, reset, s.cal)
		}
		return ledger.TotalPoints(st.DailyPoints)
	}
	candidates := make([]ranking.Candidate, 0, len(rows))
	for _, st := range rows {
		candidates = append(candidates, candidate(st, score(st)))
	}

	var v *ranking.Candidate
	if viewer != nil && (!isTeamScope(scope) || viewer.TeamID == team) {
		c := candidate(*viewer, score(*viewer))
		v = &c
	}
	return ranking.Rank(policy, candidates, v, limit), nil
}

func candidate(st model.MemberState, points float64) ranking.Candidate {
	name := st.UserName
	if name == "" {
		name = st.MemberID
	}
	return ranking.Candidate{
		MemberID:    st.MemberID,
		DisplayName: name,
		AvatarURL:   st.UserPicture,
		Points:      points,
		Badges:      st.UnlockedBadges,
	}
}
