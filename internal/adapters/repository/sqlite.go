package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/engage/internal/domain/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore is an embedded single-file store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database file at path.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, o.busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A single writer avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_achievements (
			member_id TEXT PRIMARY KEY,
			team_id TEXT,
			user_name TEXT NOT NULL DEFAULT '',
			user_picture TEXT,
			current_streak INTEGER NOT NULL DEFAULT 0,
			longest_streak INTEGER NOT NULL DEFAULT 0,
			daily_points TEXT NOT NULL DEFAULT '{}',
			total_sessions INTEGER NOT NULL DEFAULT 0,
			sessions_today INTEGER NOT NULL DEFAULT 0,
			sessions_this_week INTEGER NOT NULL DEFAULT 0,
			sessions_this_month INTEGER NOT NULL DEFAULT 0,
			last_session_date TEXT NOT NULL DEFAULT '',
			unlocked_badges TEXT NOT NULL DEFAULT '[]',
			weekly_reset_at TEXT,
			updated_at TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_user_achievements_team ON user_achievements(team_id);`,
		`CREATE INDEX IF NOT EXISTS idx_user_achievements_reset ON user_achievements(weekly_reset_at);`,
		`CREATE TABLE IF NOT EXISTS practice_streaks (
			member_id TEXT NOT NULL,
			practice_date TEXT NOT NULL,
			PRIMARY KEY(member_id, practice_date)
		);`,
		`CREATE TABLE IF NOT EXISTS activity_sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			member_id TEXT NOT NULL,
			session_date TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_activity_sessions_member ON activity_sessions(member_id, session_date);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

const sqliteMemberColumns = `member_id, team_id, user_name, user_picture, current_streak, longest_streak,
	daily_points, total_sessions, sessions_today, sessions_this_week, sessions_this_month,
	last_session_date, unlocked_badges, weekly_reset_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteMember(row rowScanner) (model.MemberState, error) {
	var (
		m                    model.MemberState
		team, picture, reset sql.NullString
		points, badges       string
		updated              string
	)
	err := row.Scan(&m.MemberID, &team, &m.UserName, &picture, &m.CurrentStreak, &m.LongestStreak,
		&points, &m.TotalSessions, &m.SessionsToday, &m.SessionsThisWeek, &m.SessionsThisMonth,
		&m.LastSessionDate, &badges, &reset, &updated)
	if err != nil {
		return model.MemberState{}, err
	}
	m.TeamID = team.String
	m.UserPicture = picture.String
	m.DailyPoints = decodePoints([]byte(points))
	m.UnlockedBadges = decodeBadges([]byte(badges))
	m.WeeklyResetAt = parseTS(reset.String)
	m.UpdatedAt = parseTS(updated)
	return m, nil
}

func (s *SQLiteStore) GetMember(ctx context.Context, memberID string) (model.MemberState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteMemberColumns+` FROM user_achievements WHERE member_id = ?`, memberID)
	m, err := scanSQLiteMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MemberState{}, ErrNotFound
	}
	if err != nil {
		return model.MemberState{}, err
	}
	return m, nil
}

func (s *SQLiteStore) SaveMember(ctx context.Context, m model.MemberState) error {
	if strings.TrimSpace(m.MemberID) == "" {
		return ErrInvalidMember
	}
	var reset any
	if !m.WeeklyResetAt.IsZero() {
		reset = formatTS(m.WeeklyResetAt)
	}
	updated := m.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	points, badges, err := encodeMember(m)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_achievements(`+sqliteMemberColumns+`)
		VALUES(?, NULLIF(?, ''), ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(member_id) DO UPDATE SET
			team_id = excluded.team_id,
			user_name = excluded.user_name,
			user_picture = COALESCE(excluded.user_picture, user_achievements.user_picture),
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			daily_points = excluded.daily_points,
			total_sessions = excluded.total_sessions,
			sessions_today = excluded.sessions_today,
			sessions_this_week = excluded.sessions_this_week,
			sessions_this_month = excluded.sessions_this_month,
			last_session_date = excluded.last_session_date,
			unlocked_badges = CASE
				WHEN json_valid(user_achievements.unlocked_badges) = 0 THEN user_achievements.unlocked_badges
				WHEN json_type(user_achievements.unlocked_badges) <> 'array' THEN user_achievements.unlocked_badges
				ELSE excluded.unlocked_badges
			END,
			weekly_reset_at = excluded.weekly_reset_at,
			updated_at = excluded.updated_at
	`,
		m.MemberID, m.TeamID, m.UserName, m.UserPicture, m.CurrentStreak, m.LongestStreak,
		points, m.TotalSessions, m.SessionsToday, m.SessionsThisWeek, m.SessionsThisMonth,
		m.LastSessionDate, badges, reset, formatTS(updated),
	)
	return err
}

func (s *SQLiteStore) ListMembers(ctx context.Context, f MemberFilter) ([]model.MemberState, error) {
	query := `SELECT ` + sqliteMemberColumns + ` FROM user_achievements WHERE 1=1`
	var args []any
	if f.TeamID != "" {
		query += ` AND team_id = ?`
		args = append(args, f.TeamID)
	}
	if !f.WeeklyResetAt.IsZero() {
		query += ` AND weekly_reset_at = ?`
		args = append(args, formatTS(f.WeeklyResetAt))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MemberState
	for rows.Next() {
		m, err := scanSQLiteMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountMembers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM user_achievements`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) AddPracticeDay(ctx context.Context, memberID, day string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO practice_streaks(member_id, practice_date) VALUES(?, ?) ON CONFLICT DO NOTHING`,
		memberID, day)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) PracticeDays(ctx context.Context, memberID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT practice_date FROM practice_streaks WHERE member_id = ? ORDER BY practice_date`, memberID)
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

func (s *SQLiteStore) AddActivitySession(ctx context.Context, memberID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity_sessions(member_id, session_date) VALUES(?, ?)`, memberID, formatTS(at))
	return err
}

func (s *SQLiteStore) ActivitySessions(ctx context.Context, memberID string, since time.Time) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_date FROM activity_sessions WHERE member_id = ? AND session_date >= ? ORDER BY session_date`,
		memberID, formatTS(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var ts string
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		out = append(out, parseTS(ts))
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }
