// Package repository persists engagement ledger rows, practice days and
// activity sessions.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/engage/internal/domain/model"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// MemberFilter narrows ListMembers. Zero fields match everything.
type MemberFilter struct {
	TeamID string
	// WeeklyResetAt keeps members whose stored reset boundary equals it,
	// i.e. members active in that week.
	WeeklyResetAt time.Time
}

// Store provides read/write access to the ledger.
type Store interface {
	// GetMember returns the ledger row of a member or ErrNotFound.
	GetMember(ctx context.Context, memberID string) (model.MemberState, error)

	// SaveMember inserts or replaces a member row. An empty UserPicture keeps
	// the stored one.
	SaveMember(ctx context.Context, s model.MemberState) error

	// ListMembers returns every member matching f, in no particular order.
	ListMembers(ctx context.Context, f MemberFilter) ([]model.MemberState, error)

	// CountMembers returns the number of ledger rows.
	CountMembers(ctx context.Context) (int, error)

	// AddPracticeDay records a practice day. It reports false when the day
	// was already recorded.
	AddPracticeDay(ctx context.Context, memberID, day string) (bool, error)

	// PracticeDays returns the member's practice day keys in ascending order.
	PracticeDays(ctx context.Context, memberID string) ([]string, error)

	// AddActivitySession appends an activity session at the given instant.
	AddActivitySession(ctx context.Context, memberID string, at time.Time) error

	// ActivitySessions returns session instants at or after since.
	ActivitySessions(ctx context.Context, memberID string, since time.Time) ([]time.Time, error)

	// Ping checks the backing database.
	Ping(ctx context.Context) error

	Close() error
}

// Config selects and configures a Store.
type Config struct {
	Driver      string
	DatabaseURL string
	SQLitePath  string
	MaxConns    int32
}

// Open builds the store named by cfg.Driver, prepares its schema and wraps it
// with latency and error metrics.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverMemory:
		return Instrument(NewMemoryStore()), nil
	case DriverSQLite:
		s, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return Instrument(s), nil
	case DriverPostgres:
		s, err := NewPostgresStore(ctx, cfg.DatabaseURL, WithMaxConns(cfg.MaxConns))
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return Instrument(s), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
