// Package model contains domain models passed between layers.
package model

import (
	"slices"
	"time"
)

// MemberState is the engagement ledger row of one member.
type MemberState struct {
	MemberID    string `json:"memberId"`
	TeamID      string `json:"teamId,omitempty"`
	UserName    string `json:"userName"`
	UserPicture string `json:"userPicture,omitempty"`

	// CurrentStreak is the write-time streak with one day of grace.
	CurrentStreak int `json:"currentStreak"`
	LongestStreak int `json:"longestStreak"`

	DailyPoints DailyPoints `json:"dailyPoints"`

	TotalSessions     int `json:"totalSessions"`
	SessionsToday     int `json:"sessionsToday"`
	SessionsThisWeek  int `json:"sessionsThisWeek"`
	SessionsThisMonth int `json:"sessionsThisMonth"`

	// LastSessionDate is a day key, empty before the first session.
	LastSessionDate string   `json:"lastSessionDate,omitempty"`
	UnlockedBadges  []string `json:"unlockedBadges"`

	// WeeklyResetAt is the next Sunday midnight after the last write. Zero
	// for members that never recorded a session.
	WeeklyResetAt time.Time `json:"weeklyResetAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// NewMemberState returns the default state of an unknown member.
func NewMemberState(memberID string) MemberState {
	return MemberState{
		MemberID:       memberID,
		DailyPoints:    DailyPoints{},
		UnlockedBadges: []string{},
	}
}

// Clone returns a deep copy of s.
func (s MemberState) Clone() MemberState {
	out := s
	out.DailyPoints = s.DailyPoints.Clone()
	out.UnlockedBadges = slices.Clone(s.UnlockedBadges)
	if out.UnlockedBadges == nil {
		out.UnlockedBadges = []string{}
	}
	return out
}

// HasBadge reports whether id is unlocked.
func (s MemberState) HasBadge(id string) bool {
	return slices.Contains(s.UnlockedBadges, id)
}

// RankingEntry is one leaderboard row.
type RankingEntry struct {
	MemberID    string   `json:"memberId"`
	DisplayName string   `json:"displayName"`
	AvatarURL   string   `json:"avatarUrl,omitempty"`
	Points      float64  `json:"points"`
	Badges      []string `json:"badges"`
	Rank        int      `json:"rank"`
}

// AwardJob asks for a badge to be granted to a member. Jobs are idempotent.
type AwardJob struct {
	MemberID string
	BadgeID  string
	// WeekEnding is the reset boundary of the settled week.
	WeekEnding time.Time
}
