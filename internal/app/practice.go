package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/engage/internal/domain/streak"
	"github.com/okian/engage/pkg/logger"
	"github.com/okian/engage/pkg/metrics"
)

// PracticeResult reports a practice day write.
type PracticeResult struct {
	Message       string `json:"message"`
	TodayDate     string `json:"todayDate"`
	PracticeCount int    `json:"practiceCount"`
	Recorded      bool   `json:"recorded"`
}

// StreakView is the read streak derived from practice days.
type StreakView struct {
	streak.Summary
	Consistency string   `json:"consistency"`
	Dates       []string `json:"dates"`
}

// RecordPractice marks today as a practice day. Repeated calls on the same
// day are accepted and change nothing.
func (s *Service) RecordPractice(ctx context.Context, req PracticeRequest) (PracticeResult, error) {
	if err := req.Validate(); err != nil {
		return PracticeResult{}, err
	}
	memberID := strings.TrimSpace(req.MemberID)
	today := s.cal.DayKey(s.now())

	added, err := s.store.AddPracticeDay(ctx, memberID, today)
	if err != nil {
		return PracticeResult{}, fmt.Errorf("%w: add practice day: %w", ErrStore, err)
	}
	days, err := s.store.PracticeDays(ctx, memberID)
	if err != nil {
		return PracticeResult{}, fmt.Errorf("%w: practice days: %w", ErrStore, err)
	}

	msg := "Practice already recorded today"
	if added {
		msg = "Practice recorded"
		metrics.RecordPracticeDay()
		s.logger.Info(ctx, "practice day recorded",
			logger.String("member_id", memberID),
			logger.String("day", today),
		)
	}
	return PracticeResult{Message: msg, TodayDate: today, PracticeCount: len(days), Recorded: added}, nil
}

// Streaks returns the strict read streak, longest run and monthly
// consistency of a member together with the practice days.
func (s *Service) Streaks(ctx context.Context, memberID string) (StreakView, error) {
	if err := requireID("memberId", memberID); err != nil {
		return StreakView{}, err
	}
	days, err := s.store.PracticeDays(ctx, strings.TrimSpace(memberID))
	if err != nil {
		return StreakView{}, fmt.Errorf("%w: practice days: %w", ErrStore, err)
	}
	sum := streak.Calculate(days, s.now(), s.cal)
	return StreakView{
		Summary:     sum,
		Consistency: fmt.Sprintf("%d%%", sum.ConsistencyPercent),
		Dates:       days,
	}, nil
}
