package repository

import (
	"context"
	"errors"
	"time"

	"github.com/okian/engage/internal/domain/model"
	"github.com/okian/engage/pkg/metrics"
)

type instrumented struct {
	next Store
}

// Instrument wraps s so that every call reports its latency and failures.
// ErrNotFound is not counted as a failure.
func Instrument(s Store) Store {
	if _, ok := s.(*instrumented); ok {
		return s
	}
	return &instrumented{next: s}
}

func observe(op string, start time.Time, err error) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Nanoseconds())/1e6)
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.RecordStoreError(op)
	}
}

func (s *instrumented) GetMember(ctx context.Context, memberID string) (model.MemberState, error) {
	start := time.Now()
	m, err := s.next.GetMember(ctx, memberID)
	observe("get_member", start, err)
	return m, err
}

func (s *instrumented) SaveMember(ctx context.Context, m model.MemberState) error {
	start := time.Now()
	err := s.next.SaveMember(ctx, m)
	observe("save_member", start, err)
	return err
}

func (s *instrumented) ListMembers(ctx context.Context, f MemberFilter) ([]model.MemberState, error) {
	start := time.Now()
	out, err := s.next.ListMembers(ctx, f)
	observe("list_members", start, err)
	return out, err
}

func (s *instrumented) CountMembers(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.next.CountMembers(ctx)
	observe("count_members", start, err)
	return n, err
}

func (s *instrumented) AddPracticeDay(ctx context.Context, memberID, day string) (bool, error) {
	start := time.Now()
	ok, err := s.next.AddPracticeDay(ctx, memberID, day)
	observe("add_practice_day", start, err)
	return ok, err
}

func (s *instrumented) PracticeDays(ctx context.Context, memberID string) ([]string, error) {
	start := time.Now()
	out, err := s.next.PracticeDays(ctx, memberID)
	observe("practice_days", start, err)
	return out, err
}

func (s *instrumented) AddActivitySession(ctx context.Context, memberID string, at time.Time) error {
	start := time.Now()
	err := s.next.AddActivitySession(ctx, memberID, at)
	observe("add_activity_session", start, err)
	return err
}

func (s *instrumented) ActivitySessions(ctx context.Context, memberID string, since time.Time) ([]time.Time, error) {
	start := time.Now()
	out, err := s.next.ActivitySessions(ctx, memberID, since)
	observe("activity_sessions", start, err)
	return out, err
}

func (s *instrumented) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.next.Ping(ctx)
	observe("ping", start, err)
	return err
}

func (s *instrumented) Close() error { return s.next.Close() }
