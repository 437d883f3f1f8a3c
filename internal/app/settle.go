package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/engage/internal/adapters/repository"
	"github.com/okian/engage/internal/domain/badge"
	"github.com/okian/engage/internal/domain/ledger"
	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/internal/domain/ranking"
	"github.com/okian/engage/pkg/logger"
	"github.com/okian/engage/pkg/metrics"
)

func (s *Service) settleLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.settleInterval)
	defer ticker.Stop()
	for {
		if _, err := s.SettleLeague(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error(ctx, "league settlement failed", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// LastSettled returns the end of the most recently settled week.
func (s *Service) LastSettled() time.Time {
	s.settleMu.Lock()
	defer s.settleMu.Unlock()
	return s.lastSettled
}

// SettleLeague ranks the week that ended at the most recent reset boundary
// with the global weekly policy and grants league badges to ranks 1 to 3.
// Each week is settled once per process; granting is idempotent so a
// restart settling the same week again changes nothing. It returns the
// number of award jobs issued.
func (s *Service) SettleLeague(ctx context.Context) (int, error) {
	s.settleMu.Lock()
	defer s.settleMu.Unlock()

	weekEnd := s.cal.WeekStart(s.now())
	if s.lastSettled.Equal(weekEnd) {
		return 0, nil
	}

	jobs, err := s.leagueAwards(ctx, weekEnd)
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	q := s.awardQueue
	s.mu.RUnlock()
	for _, job := range jobs {
		if q != nil && q.Enqueue(ctx, job) {
			continue
		}
		// No running workers or a full queue: apply inline.
		if _, err := s.ApplyAward(ctx, job); err != nil {
			return 0, fmt.Errorf("settle week ending %s: %w", weekEnd.Format(time.DateOnly), err)
		}
	}

	s.lastSettled = weekEnd
	metrics.RecordLeagueSettlement()
	s.logger.Info(ctx, "league week settled",
		logger.String("week_ending", weekEnd.Format(time.RFC3339)),
		logger.Int("awards", len(jobs)),
	)
	return len(jobs), nil
}

func (s *Service) leagueAwards(ctx context.Context, weekEnd time.Time) ([]model.AwardJob, error) {
	policy, err := ranking.PolicyFor(ranking.ScopeWeekly)
	if err != nil {
		return nil, err
	}
	// Members active in the settled week may have written again since, so
	// every row is scored against the settled window.
	rows, err := s.store.ListMembers(ctx, repository.MemberFilter{})
	if err != nil {
		return nil, fmt.Errorf("%w: list members: %w", ErrStore, err)
	}
	candidates := make([]ranking.Candidate, 0, len(rows))
	for _, st := range rows {
		candidates = append(candidates, candidate(st, ledger.WeeklyTotal(st.DailyPoints, weekEnd, s.cal)))
	}

	var jobs []model.AwardJob
	for _, e := range ranking.Rank(policy, candidates, nil, len(candidates)) {
		id := s.catalog.LeagueBadgeForRank(e.Rank)
		if id == "" {
			break
		}
		jobs = append(jobs, model.AwardJob{MemberID: e.MemberID, BadgeID: id, WeekEnding: weekEnd})
	}
	return jobs, nil
}

// ApplyAward grants the job's badge to the member. It reports false when
// the badge was already unlocked or the member no longer exists.
func (s *Service) ApplyAward(ctx context.Context, job model.AwardJob) (bool, error) {
	b, ok := s.catalog.Lookup(job.BadgeID)
	if !ok || b.Kind != badge.KindLeague {
		return false, fmt.Errorf("%w: %q", ErrUnknownBadge, job.BadgeID)
	}
	defer s.locks.lock(job.MemberID)()

	st, err := s.store.GetMember(ctx, job.MemberID)
	if errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn(ctx, "award for unknown member dropped",
			logger.String("member_id", job.MemberID),
			logger.String("badge_id", job.BadgeID),
		)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: load member: %w", ErrStore, err)
	}

	merged, newly := badge.Union(st.UnlockedBadges, job.BadgeID)
	if len(newly) == 0 {
		return false, nil
	}
	st.UnlockedBadges = merged
	st.UpdatedAt = s.clock()
	if err := s.store.SaveMember(ctx, st); err != nil {
		return false, fmt.Errorf("%w: save member: %w", ErrStore, err)
	}
	metrics.RecordBadgeUnlocked(job.BadgeID)
	return true, nil
}
