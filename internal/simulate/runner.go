package simulate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/engage/pkg/logger"
)

// ErrVerification is returned when the served boards disagree with the plan.
var ErrVerification = errors.New("simulation verification failed")

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run executes a complete simulation against a running service. The service
// is expected to start from an empty store.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("simulate")
	stats := &Stats{StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting engagement simulation",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("members", cfg.Members),
		logger.Int("teams", cfg.Teams),
		logger.Int("workers", cfg.Workers),
		logger.Int64("seed", int64(cfg.Seed)), //nolint:gosec // logged only
	)

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	plan := Generate(cfg)
	stats.SessionsGenerated = len(plan.Sessions)
	if len(plan.Sessions) == 0 {
		return stats, errors.New("nothing to simulate: no members")
	}

	submit(ctx, cfg, client, plan.Sessions, stats)

	// Retries of already recorded events must be acknowledged but not counted.
	if n := min(cfg.Duplicates, len(plan.Sessions)); n > 0 {
		before := stats.Duplicates
		submit(ctx, cfg, client, plan.Sessions[:n], stats)
		if got := stats.Duplicates - before; got != n {
			stats.Mismatches = append(stats.Mismatches, fmt.Sprintf("duplicates: got %d acknowledgements, want %d", got, n))
		}
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	ordered := plan.Ordered()
	viewer := ordered[len(ordered)-1].MemberID
	league, err := client.League(ctx, viewer)
	if err != nil {
		return stats, fmt.Errorf("league retrieval failed: %w", err)
	}

	limit := cfg.LeaderboardSize
	stats.Mismatches = append(stats.Mismatches, verifyBoard("weekly", league.WeeklyRankings, ordered, limit, true, viewer)...)
	stats.Mismatches = append(stats.Mismatches, verifyBoard("all_time", league.AllTimeRankings, ordered, limit, false, viewer)...)
	if team := plan.Teams[viewer]; team != "" {
		var mates []Expected
		for _, e := range ordered {
			if plan.Teams[e.MemberID] == team {
				mates = append(mates, e)
			}
		}
		stats.Mismatches = append(stats.Mismatches, verifyBoard("team_all_time", league.TeamRankings, mates, limit, false, viewer)...)
	}

	if cfg.OutputFile != "" {
		if err := saveSessions(cfg.OutputFile, plan.Sessions); err != nil {
			log.Warn(ctx, "failed to save sessions to file", logger.Error(err))
		}
	}

	stats.Duration = time.Since(stats.StartTime)
	logStats(ctx, log, stats)
	for _, m := range stats.Mismatches {
		log.Error(ctx, "mismatch", logger.String("detail", m))
	}
	if !stats.OK() {
		return stats, fmt.Errorf("%w: %d failed sessions, %d mismatches", ErrVerification, stats.Failed, len(stats.Mismatches))
	}
	log.Info(ctx, "simulation completed successfully")
	return stats, nil
}

func saveSessions(filename string, sessions []Session) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

func logStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("sessions_generated", stats.SessionsGenerated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("recorded", stats.Recorded),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("failed", stats.Failed),
		logger.Int("mismatches", len(stats.Mismatches)),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("sessions_per_second", perSecond),
	)
}
