package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/engage/internal/domain/ledger"
	"github.com/okian/engage/pkg/metrics"
)

// RecordActivity appends an activity session at the current instant and
// returns the member's updated counts.
func (s *Service) RecordActivity(ctx context.Context, req ActivityRequest) (ledger.ActivityCounts, error) {
	if err := req.Validate(); err != nil {
		return ledger.ActivityCounts{}, err
	}
	memberID := strings.TrimSpace(req.MemberID)
	if err := s.store.AddActivitySession(ctx, memberID, s.now()); err != nil {
		return ledger.ActivityCounts{}, fmt.Errorf("%w: add activity session: %w", ErrStore, err)
	}
	metrics.RecordActivitySession()
	return s.ActivityCounts(ctx, memberID)
}

// ActivityCounts returns how many activity sessions a member had today, in
// the last seven days, this month and this year.
func (s *Service) ActivityCounts(ctx context.Context, memberID string) (ledger.ActivityCounts, error) {
	if err := requireID("memberId", memberID); err != nil {
		return ledger.ActivityCounts{}, err
	}
	now := s.now()
	since := s.cal.YearStart(now)
	if week := s.cal.Midnight(now).AddDate(0, 0, -7); week.Before(since) {
		since = week
	}
	sessions, err := s.store.ActivitySessions(ctx, strings.TrimSpace(memberID), since)
	if err != nil {
		return ledger.ActivityCounts{}, fmt.Errorf("%w: activity sessions: %w", ErrStore, err)
	}
	return ledger.CountActivity(sessions, now, s.cal), nil
}
