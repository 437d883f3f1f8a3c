// Package ranking orders members into leaderboards.
//
// Rank is pure and works on the snapshot it is given. Callers compute each
// candidate's points for the scope (weekly total, all-time total) first.
package ranking

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/okian/engage/internal/domain/model"
)

// DefaultLimit is the leaderboard size when none is given.
const DefaultLimit = 10

// Scope names a leaderboard.
type Scope string

// Leaderboard scopes.
const (
	ScopeWeekly      Scope = "weekly"
	ScopeTeamWeekly  Scope = "team_weekly"
	ScopeAllTime     Scope = "all_time"
	ScopeTeamAllTime Scope = "team_all_time"
)

// Style selects how ties advance the rank.
type Style int

const (
	// Dense ranks continue at previous+1 after a tie group.
	Dense Style = iota
	// Gapped ranks skip ahead by the size of the tie group.
	Gapped
)

func (s Style) String() string {
	if s == Gapped {
		return "gapped"
	}
	return "dense"
}

// Policy is the ranking behaviour of a scope.
type Policy struct {
	Scope Scope
	Style Style
	// ExcludeNonPositive drops members with points <= 0.
	ExcludeNonPositive bool
}

// PolicyFor returns the policy of a scope. The global weekly board ranks with
// gaps and, like the team weekly board, only lists members who scored; the
// all-time boards rank densely and list everyone.
func PolicyFor(scope Scope) (Policy, error) {
	switch scope {
	case ScopeWeekly:
		return Policy{Scope: scope, Style: Gapped, ExcludeNonPositive: true}, nil
	case ScopeTeamWeekly:
		return Policy{Scope: scope, Style: Dense, ExcludeNonPositive: true}, nil
	case ScopeAllTime, ScopeTeamAllTime:
		return Policy{Scope: scope, Style: Dense}, nil
	default:
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownScope, scope)
	}
}

// ParseScope parses a scope name such as "weekly" or "team-all-time".
func ParseScope(s string) (Scope, error) {
	sc := Scope(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if _, err := PolicyFor(sc); err != nil {
		return "", err
	}
	return sc, nil
}

// Candidate is a member with points for one scope.
type Candidate struct {
	MemberID    string
	DisplayName string
	AvatarURL   string
	Points      float64
	Badges      []string
}

// Rank sorts members by points (ties broken by member id), assigns ranks per
// policy and keeps the first limit entries. When viewer is not among them it
// is appended last with rank = members strictly above it + 1. A viewer that
// the policy would exclude is not appended.
func Rank(p Policy, members []Candidate, viewer *Candidate, limit int) []model.RankingEntry {
	if limit <= 0 {
		limit = DefaultLimit
	}

	eligible := make([]Candidate, 0, len(members))
	for _, m := range members {
		if p.ExcludeNonPositive && m.Points <= 0 {
			continue
		}
		eligible = append(eligible, m)
	}

	if len(members) == 0 {
		if viewer != nil && viewer.Points > 0 {
			return []model.RankingEntry{entry(*viewer, 1)}
		}
		return []model.RankingEntry{}
	}

	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].Points != eligible[j].Points {
			return eligible[i].Points > eligible[j].Points
		}
		return eligible[i].MemberID < eligible[j].MemberID
	})

	n := min(limit, len(eligible))
	out := make([]model.RankingEntry, 0, n+1)
	rank := 0
	for i := 0; i < n; i++ {
		switch {
		case i == 0:
			rank = 1
		case eligible[i].Points == eligible[i-1].Points:
		case p.Style == Gapped:
			rank = i + 1
		default:
			rank++
		}
		out = append(out, entry(eligible[i], rank))
	}

	if viewer == nil || (p.ExcludeNonPositive && viewer.Points <= 0) {
		return out
	}
	if slices.ContainsFunc(out, func(e model.RankingEntry) bool { return e.MemberID == viewer.MemberID }) {
		return out
	}
	above := 0
	for _, m := range eligible {
		if m.MemberID != viewer.MemberID && m.Points > viewer.Points {
			above++
		}
	}
	return append(out, entry(*viewer, above+1))
}

func entry(c Candidate, rank int) model.RankingEntry {
	badges := c.Badges
	if badges == nil {
		badges = []string{}
	}
	return model.RankingEntry{
		MemberID:    c.MemberID,
		DisplayName: c.DisplayName,
		AvatarURL:   c.AvatarURL,
		Points:      c.Points,
		Badges:      badges,
		Rank:        rank,
	}
}
