package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/okian/engage/internal/domain/model"
)

// MemoryStore keeps everything in process memory. It is meant for tests and
// single-instance demos.
type MemoryStore struct {
	mu       sync.RWMutex
	members  map[string]model.MemberState
	practice map[string]map[string]struct{}
	sessions map[string][]time.Time
	closed   bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		members:  make(map[string]model.MemberState),
		practice: make(map[string]map[string]struct{}),
		sessions: make(map[string][]time.Time),
	}
}

func (s *MemoryStore) GetMember(_ context.Context, memberID string) (model.MemberState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[memberID]
	if !ok {
		return model.MemberState{}, ErrNotFound
	}
	return m.Clone(), nil
}

func (s *MemoryStore) SaveMember(_ context.Context, m model.MemberState) error {
	if strings.TrimSpace(m.MemberID) == "" {
		return ErrInvalidMember
	}
	if err := checkPoints(m.DailyPoints); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.members[m.MemberID]; ok && m.UserPicture == "" {
		m.UserPicture = prev.UserPicture
	}
	s.members[m.MemberID] = m.Clone()
	return nil
}

func (s *MemoryStore) ListMembers(_ context.Context, f MemberFilter) ([]model.MemberState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.MemberState, 0, len(s.members))
	for _, m := range s.members {
		if f.TeamID != "" && m.TeamID != f.TeamID {
			continue
		}
		if !f.WeeklyResetAt.IsZero() && !m.WeeklyResetAt.Equal(f.WeeklyResetAt) {
			continue
		}
		out = append(out, m.Clone())
	}
	return out, nil
}

func (s *MemoryStore) CountMembers(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members), nil
}

func (s *MemoryStore) AddPracticeDay(_ context.Context, memberID, day string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	days, ok := s.practice[memberID]
	if !ok {
		days = make(map[string]struct{})
		s.practice[memberID] = days
	}
	if _, dup := days[day]; dup {
		return false, nil
	}
	days[day] = struct{}{}
	return true, nil
}

func (s *MemoryStore) PracticeDays(_ context.Context, memberID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.practice[memberID]))
	for d := range s.practice[memberID] {
		out = append(out, d)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) AddActivitySession(_ context.Context, memberID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[memberID] = append(s.sessions[memberID], at.UTC())
	return nil
}

func (s *MemoryStore) ActivitySessions(_ context.Context, memberID string, since time.Time) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []time.Time
	for _, t := range s.sessions[memberID] {
		if !t.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
