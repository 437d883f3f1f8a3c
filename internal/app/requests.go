package service

import (
	"fmt"
	"strings"

	"github.com/okian/engage/internal/domain/ranking"
)

const maxIDLength = 256

func requireID(field, v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, field)
	}
	if len(v) > maxIDLength {
		return fmt.Errorf("%w: %s too long", ErrInvalidRequest, field)
	}
	return nil
}

// RecordSessionRequest records one completed training session.
type RecordSessionRequest struct {
	// EventID makes retries idempotent when set.
	EventID     string
	MemberID    string
	UserName    string
	UserPicture string
	TeamID      string
	// Points is already coerced to a non-negative number.
	Points float64
}

// Validate checks the required fields.
func (r RecordSessionRequest) Validate() error {
	if err := requireID("memberId", r.MemberID); err != nil {
		return err
	}
	if strings.TrimSpace(r.UserName) == "" {
		return fmt.Errorf("%w: missing userName", ErrInvalidRequest)
	}
	return nil
}

// RankingQueryRequest asks for one leaderboard.
type RankingQueryRequest struct {
	Scope    ranking.Scope
	ViewerID string
	// TeamID defaults to the viewer's team for team scopes.
	TeamID string
	// Limit defaults to the configured leaderboard size when zero.
	Limit int
}

// Validate checks the scope and limit.
func (r RankingQueryRequest) Validate() error {
	if _, err := ranking.PolicyFor(r.Scope); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if r.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidRequest)
	}
	return nil
}

// PracticeRequest records a practice day for today.
type PracticeRequest struct {
	MemberID string
}

// Validate checks the member id.
func (r PracticeRequest) Validate() error { return requireID("memberId", r.MemberID) }

// ActivityRequest records an activity session now.
type ActivityRequest struct {
	MemberID string
}

// Validate checks the member id.
func (r ActivityRequest) Validate() error { return requireID("memberId", r.MemberID) }
