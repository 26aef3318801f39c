package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// rebind converts ? placeholders to $1, $2, ... for PostgreSQL.
func rebind(query string) string {
	n := 1
	out := strings.Builder{}
	for _, ch := range query {
		if ch == '?' {
			fmt.Fprintf(&out, "$%d", n)
			n++
		} else {
			out.WriteRune(ch)
		}
	}
	return out.String()
}

// NewPostgres creates a PostgreSQL-backed repository.
func NewPostgres(dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &SQLStore{db: db, dialect: DriverPostgres}
	if err := s.exec(postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		last_seen_at BIGINT NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at BIGINT NOT NULL,
		last_active_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_user_active ON sessions(user_id, last_active_at);

	CREATE TABLE IF NOT EXISTS messages (
		seq BIGSERIAL PRIMARY KEY,
		id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq);

	CREATE TABLE IF NOT EXISTS session_state (
		session_id TEXT PRIMARY KEY,
		profile_json TEXT NOT NULL,
		mode_json TEXT NOT NULL,
		planned_json TEXT NOT NULL,
		expect TEXT NOT NULL DEFAULT '',
		updated_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id TEXT,
		message_id TEXT,
		rating INTEGER NOT NULL CHECK (rating IN (1, 5)),
		comment TEXT,
		created_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_feedback_session ON feedback(session_id);

	CREATE TABLE IF NOT EXISTS leads (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		user_id TEXT,
		name TEXT,
		contact_info TEXT,
		source TEXT,
		status TEXT NOT NULL,
		created_at BIGINT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_leads_session ON leads(session_id);
	`
