package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/okian/engage/internal/adapters/repository"
	"github.com/okian/engage/internal/domain/ledger"
	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/pkg/logger"
	"github.com/okian/engage/pkg/metrics"
)

// Member is a ledger row with its derived point totals.
type Member struct {
	model.MemberState
	WeeklyTotal float64 `json:"weeklyTotal"`
	TotalPoints float64 `json:"totalPoints"`
}

// SessionResult is the outcome of RecordSession.
type SessionResult struct {
	Member
	NewBadges []string `json:"newBadges"`
	// Duplicate is set when the event id was already recorded. The state is
	// then returned unchanged.
	Duplicate bool `json:"duplicate"`
}

func (s *Service) describe(st model.MemberState) Member {
	return Member{
		MemberState: st,
		WeeklyTotal: ledger.WeeklyTotal(st.DailyPoints, st.WeeklyResetAt, s.cal),
		TotalPoints: ledger.TotalPoints(st.DailyPoints),
	}
}

// loadMember returns the stored row, a default row for unknown members, or
// a store error. Rows that break ledger invariants are repaired and reported.
func (s *Service) loadMember(ctx context.Context, memberID string) (model.MemberState, bool, error) {
	st, err := s.store.GetMember(ctx, memberID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewMemberState(memberID), false, nil
	}
	if err != nil {
		return model.MemberState{}, false, fmt.Errorf("%w: load member: %w", ErrStore, err)
	}
	fixed, changed := ledger.Normalize(st)
	if changed {
		metrics.RecordInconsistentState()
		s.logger.Warn(ctx, "repaired inconsistent ledger row",
			logger.String("member_id", memberID),
			logger.Int("current_streak", fixed.CurrentStreak),
			logger.Int("longest_streak", fixed.LongestStreak),
		)
	}
	return fixed, true, nil
}

// RecordSession applies one completed session to the member's ledger row:
// points for today, session counters, write streak and badge unlocks. The
// row is written with a single upsert and today is added to the member's
// practice days.
func (s *Service) RecordSession(ctx context.Context, req RecordSessionRequest) (SessionResult, error) {
	if err := req.Validate(); err != nil {
		return SessionResult{}, err
	}
	memberID := strings.TrimSpace(req.MemberID)
	eventID := strings.TrimSpace(req.EventID)

	// A retry of an in-flight event waits here, so it only reads as a
	// duplicate once the first attempt has been written.
	defer s.locks.lock(memberID)()

	if eventID != "" && s.deduper.SeenAndRecord(ctx, eventID) {
		metrics.RecordSessionDuplicate()
		s.logger.Debug(ctx, "duplicate session ignored",
			logger.String("event_id", eventID),
			logger.String("member_id", memberID),
		)
		st, _, err := s.loadMember(ctx, memberID)
		if err != nil {
			return SessionResult{}, err
		}
		return SessionResult{Member: s.describe(st), NewBadges: []string{}, Duplicate: true}, nil
	}

	res, err := s.recordSession(ctx, memberID, req)
	if err != nil && eventID != "" {
		s.deduper.Unrecord(ctx, eventID)
	}
	return res, err
}

// recordSession expects the member lock to be held.
func (s *Service) recordSession(ctx context.Context, memberID string, req RecordSessionRequest) (SessionResult, error) {
	now := s.now()
	st, _, err := s.loadMember(ctx, memberID)
	if err != nil {
		return SessionResult{}, err
	}

	st.UserName = strings.TrimSpace(req.UserName)
	if pic := strings.TrimSpace(req.UserPicture); pic != "" {
		st.UserPicture = pic
	}
	if team := strings.TrimSpace(req.TeamID); team != "" {
		st.TeamID = team
	}

	next, newly := ledger.RecordEvent(st, req.Points, now, s.cal, s.catalog)
	if err := s.store.SaveMember(ctx, next); err != nil {
		return SessionResult{}, fmt.Errorf("%w: save member: %w", ErrStore, err)
	}

	day := s.cal.DayKey(now)
	added, err := s.store.AddPracticeDay(ctx, memberID, day)
	if err != nil {
		// The ledger row is already written.
		s.logger.Error(ctx, "recording practice day for session",
			logger.String("member_id", memberID),
			logger.String("day", day),
			logger.Error(err),
		)
	} else if added {
		metrics.RecordPracticeDay()
	}

	metrics.RecordSessionRecorded()
	metrics.RecordPointsAwarded(req.Points)
	for _, id := range newly {
		metrics.RecordBadgeUnlocked(id)
	}
	if newly == nil {
		newly = []string{}
	}

	s.logger.Info(ctx, "session recorded",
		logger.String("member_id", memberID),
		logger.Float64("points", req.Points),
		logger.Int("current_streak", next.CurrentStreak),
		logger.Int("new_badges", len(newly)),
	)
	return SessionResult{Member: s.describe(next), NewBadges: newly}, nil
}
