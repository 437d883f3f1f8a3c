package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/okian/engage/internal/domain/model"
)

// PostgresStore keeps the ledger in PostgreSQL via a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and pings it.
func NewPostgresStore(ctx context.Context, dsn string, opts ...Option) (*PostgresStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database url is empty")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}
	cfg.MaxConns = o.maxConns

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_achievements (
			member_id TEXT PRIMARY KEY,
			team_id TEXT,
			user_name TEXT NOT NULL DEFAULT '',
			user_picture TEXT,
			current_streak INTEGER NOT NULL DEFAULT 0,
			longest_streak INTEGER NOT NULL DEFAULT 0,
			daily_points JSONB NOT NULL DEFAULT '{}'::jsonb,
			total_sessions INTEGER NOT NULL DEFAULT 0,
			sessions_today INTEGER NOT NULL DEFAULT 0,
			sessions_this_week INTEGER NOT NULL DEFAULT 0,
			sessions_this_month INTEGER NOT NULL DEFAULT 0,
			last_session_date TEXT NOT NULL DEFAULT '',
			unlocked_badges JSONB NOT NULL DEFAULT '[]'::jsonb,
			weekly_reset_at TIMESTAMPTZ,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_achievements_team ON user_achievements(team_id)`,
		`CREATE INDEX IF NOT EXISTS idx_user_achievements_reset ON user_achievements(weekly_reset_at)`,
		`CREATE TABLE IF NOT EXISTS practice_streaks (
			member_id TEXT NOT NULL,
			practice_date DATE NOT NULL,
			PRIMARY KEY(member_id, practice_date)
		)`,
		`CREATE TABLE IF NOT EXISTS activity_sessions (
			id BIGSERIAL PRIMARY KEY,
			member_id TEXT NOT NULL,
			session_date TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_activity_sessions_member ON activity_sessions(member_id, session_date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

const pgMemberColumns = `member_id, team_id, user_name, user_picture, current_streak, longest_streak,
	daily_points, total_sessions, sessions_today, sessions_this_week, sessions_this_month,
	last_session_date, unlocked_badges, weekly_reset_at, updated_at`

func scanPostgresMember(row pgx.Row) (model.MemberState, error) {
	var (
		m              model.MemberState
		team, picture  *string
		points, badges []byte
		reset          *time.Time
	)
	err := row.Scan(&m.MemberID, &team, &m.UserName, &picture, &m.CurrentStreak, &m.LongestStreak,
		&points, &m.TotalSessions, &m.SessionsToday, &m.SessionsThisWeek, &m.SessionsThisMonth,
		&m.LastSessionDate, &badges, &reset, &m.UpdatedAt)
	if err != nil {
		return model.MemberState{}, err
	}
	if team != nil {
		m.TeamID = *team
	}
	if picture != nil {
		m.UserPicture = *picture
	}
	if reset != nil {
		m.WeeklyResetAt = reset.UTC()
	}
	m.UpdatedAt = m.UpdatedAt.UTC()
	m.DailyPoints = decodePoints(points)
	m.UnlockedBadges = decodeBadges(badges)
	return m, nil
}

func (s *PostgresStore) GetMember(ctx context.Context, memberID string) (model.MemberState, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgMemberColumns+` FROM user_achievements WHERE member_id = $1`, memberID)
	m, err := scanPostgresMember(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.MemberState{}, ErrNotFound
	}
	if err != nil {
		return model.MemberState{}, err
	}
	return m, nil
}

func (s *PostgresStore) SaveMember(ctx context.Context, m model.MemberState) error {
	if strings.TrimSpace(m.MemberID) == "" {
		return ErrInvalidMember
	}
	var reset *time.Time
	if !m.WeeklyResetAt.IsZero() {
		t := m.WeeklyResetAt.UTC()
		reset = &t
	}
	updated := m.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	points, badges, err := encodeMember(m)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO user_achievements(`+pgMemberColumns+`)
		VALUES($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, $6, $7::jsonb, $8, $9, $10, $11, $12, $13::jsonb, $14, $15)
		ON CONFLICT (member_id) DO UPDATE SET
			team_id = EXCLUDED.team_id,
			user_name = EXCLUDED.user_name,
			user_picture = COALESCE(EXCLUDED.user_picture, user_achievements.user_picture),
			current_streak = EXCLUDED.current_streak,
			longest_streak = EXCLUDED.longest_streak,
			daily_points = EXCLUDED.daily_points,
			total_sessions = EXCLUDED.total_sessions,
			sessions_today = EXCLUDED.sessions_today,
			sessions_this_week = EXCLUDED.sessions_this_week,
			sessions_this_month = EXCLUDED.sessions_this_month,
			last_session_date = EXCLUDED.last_session_date,
			unlocked_badges = CASE
				WHEN jsonb_typeof(user_achievements.unlocked_badges) = 'array' THEN EXCLUDED.unlocked_badges
				ELSE user_achievements.unlocked_badges
			END,
			weekly_reset_at = EXCLUDED.weekly_reset_at,
			updated_at = EXCLUDED.updated_at
	`,
		m.MemberID, m.TeamID, m.UserName, m.UserPicture, m.CurrentStreak, m.LongestStreak,
		points, m.TotalSessions, m.SessionsToday, m.SessionsThisWeek, m.SessionsThisMonth,
		m.LastSessionDate, badges, reset, updated.UTC(),
	)
	return err
}

func (s *PostgresStore) ListMembers(ctx context.Context, f MemberFilter) ([]model.MemberState, error) {
	query := `SELECT ` + pgMemberColumns + ` FROM user_achievements WHERE TRUE`
	var args []any
	if f.TeamID != "" {
		args = append(args, f.TeamID)
		query += fmt.Sprintf(` AND team_id = $%d`, len(args))
	}
	if !f.WeeklyResetAt.IsZero() {
		args = append(args, f.WeeklyResetAt.UTC())
		query += fmt.Sprintf(` AND weekly_reset_at = $%d`, len(args))
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MemberState
	for rows.Next() {
		m, err := scanPostgresMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountMembers(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_achievements`).Scan(&n)
	return n, err
}

func (s *PostgresStore) AddPracticeDay(ctx context.Context, memberID, day string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO practice_streaks(member_id, practice_date) VALUES($1, $2::date) ON CONFLICT DO NOTHING`,
		memberID, day)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) PracticeDays(ctx context.Context, memberID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT to_char(practice_date, 'YYYY-MM-DD') FROM practice_streaks WHERE member_id = $1 ORDER BY practice_date`,
		memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AddActivitySession(ctx context.Context, memberID string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO activity_sessions(member_id, session_date) VALUES($1, $2)`, memberID, at.UTC())
	return err
}

func (s *PostgresStore) ActivitySessions(ctx context.Context, memberID string, since time.Time) ([]time.Time, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT session_date FROM activity_sessions WHERE member_id = $1 AND session_date >= $2 ORDER BY session_date`,
		memberID, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t.UTC())
	}
	return out, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
