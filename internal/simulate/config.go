// Package simulate drives a running engagement service with generated
// members and sessions and checks the leaderboards it serves.
package simulate

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL           string        // Base URL of the service
	Members           int           // Number of members to generate
	Teams             int           // Number of teams members are spread over
	SessionsPerMember int           // Upper bound of sessions per member
	Duplicates        int           // Sessions re-posted with the same event id
	LeaderboardSize   int           // Board size the service is configured with
	Workers           int           // Number of concurrent submitters
	Timeout           time.Duration // HTTP request timeout
	Seed              uint64        // Generator seed; equal seeds give equal totals
	OutputFile        string        // Optional JSON dump of generated sessions
	Verbose           bool          // Log each failure
}

// Session is the body posted to POST /api/achievements.
type Session struct {
	EventID  string  `json:"eventId"`
	MemberID string  `json:"memberId"`
	UserName string  `json:"userName"`
	TeamID   string  `json:"teamId,omitempty"`
	Points   float64 `json:"points"`
}

// Entry is one leaderboard row as served by the API.
type Entry struct {
	MemberID    string  `json:"memberId"`
	DisplayName string  `json:"displayName"`
	Points      float64 `json:"points"`
	Rank        int     `json:"rank"`
}

// League is the subset of GET /api/league the simulation checks.
type League struct {
	WeeklyRankings  []Entry `json:"weeklyRankings"`
	AllTimeRankings []Entry `json:"allTimeRankings"`
	TeamRankings    []Entry `json:"teamRankings"`
}

type sessionAck struct {
	MemberID  string `json:"memberId"`
	Duplicate bool   `json:"duplicate"`
}

// Stats holds run statistics.
type Stats struct {
	SessionsGenerated int
	Submitted         int
	Recorded          int
	Duplicates        int
	Failed            int
	Mismatches        []string
	StartTime         time.Time
	Duration          time.Duration
}

// OK reports whether every session was accepted and every check passed.
func (s *Stats) OK() bool { return s.Failed == 0 && len(s.Mismatches) == 0 }
