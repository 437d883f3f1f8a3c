package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/engage/internal/simulate"
	"github.com/okian/engage/pkg/logger"
)

// Default configuration constants.
const (
	defaultMembers         = 200
	defaultTeams           = 5
	defaultSessions        = 8
	defaultDuplicates      = 50
	defaultLeaderboardSize = 10
	defaultTimeout         = 30 * time.Second
	defaultRunTimeout      = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		members    = flag.Int("members", defaultMembers, "Number of members to generate")
		teams      = flag.Int("teams", defaultTeams, "Number of teams (0 for none)")
		sessions   = flag.Int("sessions", defaultSessions, "Maximum sessions per member")
		duplicates = flag.Int("duplicates", defaultDuplicates, "Sessions to re-post with the same event id")
		boardSize  = flag.Int("leaderboard-size", defaultLeaderboardSize, "Leaderboard size the service is configured with")
		workers    = flag.Int("workers", runtime.NumCPU()*2, "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		seed       = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Generator seed") //nolint:gosec // non-negative
		output     = flag.String("output", "", "Write generated sessions to this JSON file")
		logFormat  = flag.String("log-format", "text", "Log format: text or json")
		verbose    = flag.Bool("verbose", false, "Log every failed request")
	)
	flag.Usage = func() {
		os.Stderr.WriteString(`Engagement ledger simulator

Generates members and session histories, posts them to a running service
started on an empty store, then fetches /api/league and checks the weekly,
all-time and team boards against the expected order and viewer append.

Usage:
  go run ./cmd/simulate [options]

Options:
`)
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:           *baseURL,
		Members:           *members,
		Teams:             *teams,
		SessionsPerMember: *sessions,
		Duplicates:        *duplicates,
		LeaderboardSize:   *boardSize,
		Workers:           *workers,
		Timeout:           *timeout,
		Seed:              *seed,
		OutputFile:        *output,
		Verbose:           *verbose,
	}
	if _, err := simulate.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
