package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/nux-coach/internal/domain"
	"github.com/ashureev/nux-coach/internal/shared"
)

// ErrNotFound is returned by updates that matched no row.
var ErrNotFound = errors.New("not found")

// SQLStore implements Repository on database/sql for SQLite and PostgreSQL.
// Queries are written with ? placeholders and rebound for PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect string
	stateMu sync.Mutex // serializes snapshot writes to avoid SQLITE_BUSY
}

var _ Repository = (*SQLStore)(nil)

const (
	maxRetries     = 3
	retryBaseDelay = 100 * time.Millisecond
)

func (s *SQLStore) q(query string) string {
	if s.dialect == DriverPostgres {
		return rebind(query)
	}
	return query
}

func (s *SQLStore) exec(query string) error {
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// withRetry runs op again with exponential backoff (100ms, 200ms) while it
// fails with a storage conflict.
func (s *SQLStore) withRetry(ctx context.Context, name string, op func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		err = op()
		if err == nil {
			return nil
		}
		if !shared.IsConflictError(err) || i == maxRetries-1 {
			break
		}
		delay := retryBaseDelay * time.Duration(1<<i)
		slog.Debug("storage conflict, retrying", "op", name, "attempt", i+1, "delay", delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// Ping verifies database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// GetUser retrieves a user by their user ID.
func (s *SQLStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	var user domain.User
	var lastSeen, createdAt, updatedAt int64
	err := s.db.QueryRowContext(ctx, s.q(query), userID).Scan(
		&user.UserID, &user.Username, &lastSeen, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, s.q(query),
		user.UserID, user.Username, user.LastSeenAt.Unix(),
		user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, s.q(query), lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}
	return nil
}

// CreateSession stores a new chat session.
func (s *SQLStore) CreateSession(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, name, created_at, last_active_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, s.q(query),
		session.ID, session.UserID, session.Name,
		session.CreatedAt.Unix(), session.LastActiveAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *SQLStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `SELECT id, user_id, name, created_at, last_active_at FROM sessions WHERE id = ?`
	session, err := scanSession(s.db.QueryRowContext(ctx, s.q(query), sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}
	return session, nil
}

// ListSessions returns the most recently active sessions of a user.
func (s *SQLStore) ListSessions(ctx context.Context, userID string, limit int) ([]*domain.Session, error) {
	query := `
		SELECT id, user_id, name, created_at, last_active_at
		FROM sessions WHERE user_id = ?
		ORDER BY last_active_at DESC, created_at DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, s.q(query), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer closeRows(rows, "sessions")

	sessions := []*domain.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// RenameSession changes the display name of a session.
func (s *SQLStore) RenameSession(ctx context.Context, sessionID, name string) error {
	query := `UPDATE sessions SET name = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, s.q(query), name, sessionID)
	if err != nil {
		return fmt.Errorf("rename session: %w", err)
	}
	return requireRow(result, "session")
}

// TouchSession moves last_active_at of a session forward.
func (s *SQLStore) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	query := `UPDATE sessions SET last_active_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, s.q(query), at.Unix(), sessionID)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("TouchSession affected 0 rows", "session_id", sessionID)
	}
	return nil
}

// sessionTables lists every table keyed by session_id.
var sessionTables = []string{"messages", "session_state", "feedback", "leads"}

// DeleteSession removes a session and every row that belongs to it.
func (s *SQLStore) DeleteSession(ctx context.Context, sessionID string) error {
	return s.withRetry(ctx, "DeleteSession", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin delete session: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, table := range sessionTables {
			if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM `+table+` WHERE session_id = ?`), sessionID); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		result, err := tx.ExecContext(ctx, s.q(`DELETE FROM sessions WHERE id = ?`), sessionID)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if err := requireRow(result, "session"); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// SaveMessage appends a message to a session transcript.
func (s *SQLStore) SaveMessage(ctx context.Context, msg *domain.ChatMessage) error {
	query := `
		INSERT INTO messages (id, session_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`
	return s.withRetry(ctx, "SaveMessage", func() error {
		_, err := s.db.ExecContext(ctx, s.q(query),
			msg.ID, msg.SessionID, string(msg.Role), msg.Content, msg.CreatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("save message: %w", err)
		}
		return nil
	})
}

// LoadHistory returns the latest limit messages of a session, oldest first.
func (s *SQLStore) LoadHistory(ctx context.Context, sessionID string, limit int) ([]domain.ChatMessage, error) {
	query := `
		SELECT id, session_id, role, content, created_at FROM (
			SELECT seq, id, session_id, role, content, created_at
			FROM messages WHERE session_id = ?
			ORDER BY seq DESC
			LIMIT ?
		) recent
		ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, s.q(query), sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer closeRows(rows, "messages")

	messages := []domain.ChatMessage{}
	for rows.Next() {
		var msg domain.ChatMessage
		var role string
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		msg.Role = domain.Role(role)
		msg.CreatedAt = time.Unix(createdAt, 0)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// DeleteMessages clears the transcript of a session.
func (s *SQLStore) DeleteMessages(ctx context.Context, sessionID string) error {
	return s.withRetry(ctx, "DeleteMessages", func() error {
		if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM messages WHERE session_id = ?`), sessionID); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		return nil
	})
}

// GetSessionState retrieves the inference snapshot of a session.
func (s *SQLStore) GetSessionState(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	query := `
		SELECT session_id, profile_json, mode_json, planned_json, expect, updated_at
		FROM session_state WHERE session_id = ?`

	var state domain.SessionState
	var profileJSON, modeJSON, plannedJSON string
	var updatedAt int64
	err := s.db.QueryRowContext(ctx, s.q(query), sessionID).Scan(
		&state.SessionID, &profileJSON, &modeJSON, &plannedJSON, &state.Expect, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session state: %w", err)
	}

	if err := json.Unmarshal([]byte(profileJSON), &state.Profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if err := json.Unmarshal([]byte(modeJSON), &state.Mode); err != nil {
		return nil, fmt.Errorf("decode mode: %w", err)
	}
	if err := json.Unmarshal([]byte(plannedJSON), &state.Planned); err != nil {
		return nil, fmt.Errorf("decode planned modes: %w", err)
	}
	state.UpdatedAt = time.Unix(updatedAt, 0)
	return &state, nil
}

// UpsertSessionState creates or replaces the inference snapshot.
func (s *SQLStore) UpsertSessionState(ctx context.Context, state *domain.SessionState) error {
	profileJSON, err := json.Marshal(state.Profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	modeJSON, err := json.Marshal(state.Mode)
	if err != nil {
		return fmt.Errorf("encode mode: %w", err)
	}
	planned := state.Planned
	if planned == nil {
		planned = []domain.ModeType{}
	}
	plannedJSON, err := json.Marshal(planned)
	if err != nil {
		return fmt.Errorf("encode planned modes: %w", err)
	}

	query := `
		INSERT INTO session_state (session_id, profile_json, mode_json, planned_json, expect, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			profile_json = excluded.profile_json,
			mode_json = excluded.mode_json,
			planned_json = excluded.planned_json,
			expect = excluded.expect,
			updated_at = excluded.updated_at`

	return s.withRetry(ctx, "UpsertSessionState", func() error {
		s.stateMu.Lock()
		defer s.stateMu.Unlock()

		_, err := s.db.ExecContext(ctx, s.q(query),
			state.SessionID, string(profileJSON), string(modeJSON), string(plannedJSON),
			state.Expect, time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert session state: %w", err)
		}
		return nil
	})
}

// DeleteSessionState removes the inference snapshot.
func (s *SQLStore) DeleteSessionState(ctx context.Context, sessionID string) error {
	return s.withRetry(ctx, "DeleteSessionState", func() error {
		s.stateMu.Lock()
		defer s.stateMu.Unlock()

		if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM session_state WHERE session_id = ?`), sessionID); err != nil {
			return fmt.Errorf("delete session state: %w", err)
		}
		return nil
	})
}

// SaveFeedback records a rating.
func (s *SQLStore) SaveFeedback(ctx context.Context, fb *domain.Feedback) error {
	query := `
		INSERT INTO feedback (id, session_id, user_id, message_id, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, s.q(query),
		fb.ID, fb.SessionID, nullable(fb.UserID), nullable(fb.MessageID),
		fb.Rating, nullable(fb.Comment), fb.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save feedback: %w", err)
	}
	return nil
}

// SaveLead records a tracked lead.
func (s *SQLStore) SaveLead(ctx context.Context, lead *domain.Lead) error {
	query := `
		INSERT INTO leads (id, session_id, user_id, name, contact_info, source, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, s.q(query),
		lead.ID, lead.SessionID, nullable(lead.UserID), nullable(lead.Name),
		nullable(lead.ContactInfo), nullable(lead.Source), string(lead.Status), lead.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save lead: %w", err)
	}
	return nil
}

// ListLeads returns the leads of a session in creation order.
func (s *SQLStore) ListLeads(ctx context.Context, sessionID string) ([]domain.Lead, error) {
	query := `
		SELECT id, session_id, user_id, name, contact_info, source, status, created_at
		FROM leads WHERE session_id = ?
		ORDER BY created_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, s.q(query), sessionID)
	if err != nil {
		return nil, fmt.Errorf("query leads: %w", err)
	}
	defer closeRows(rows, "leads")
	return scanLeads(rows)
}

// ListLeadsByUser returns the leads of every session owned by userID,
// newest first.
func (s *SQLStore) ListLeadsByUser(ctx context.Context, userID string) ([]domain.Lead, error) {
	query := `
		SELECT l.id, l.session_id, l.user_id, l.name, l.contact_info, l.source, l.status, l.created_at
		FROM leads l
		JOIN sessions s ON s.id = l.session_id
		WHERE s.user_id = ?
		ORDER BY l.created_at DESC, l.id DESC`

	rows, err := s.db.QueryContext(ctx, s.q(query), userID)
	if err != nil {
		return nil, fmt.Errorf("query user leads: %w", err)
	}
	defer closeRows(rows, "user leads")
	return scanLeads(rows)
}

func scanLeads(rows *sql.Rows) ([]domain.Lead, error) {
	leads := []domain.Lead{}
	for rows.Next() {
		var lead domain.Lead
		var userID, name, contact, source sql.NullString
		var status string
		var createdAt int64
		if err := rows.Scan(&lead.ID, &lead.SessionID, &userID, &name, &contact, &source, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan lead row: %w", err)
		}
		lead.UserID = userID.String
		lead.Name = name.String
		lead.ContactInfo = contact.String
		lead.Source = source.String
		lead.Status = domain.LeadStatus(status)
		lead.CreatedAt = time.Unix(createdAt, 0)
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leads: %w", err)
	}
	return leads, nil
}

// UpdateLeadStatus moves a lead to another pipeline stage.
func (s *SQLStore) UpdateLeadStatus(ctx context.Context, leadID string, status domain.LeadStatus) error {
	result, err := s.db.ExecContext(ctx, s.q(`UPDATE leads SET status = ? WHERE id = ?`), string(status), leadID)
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	return requireRow(result, "lead")
}

// SessionStats summarizes messages, ratings and leads of a session.
func (s *SQLStore) SessionStats(ctx context.Context, sessionID string) (*domain.SessionStats, error) {
	stats := &domain.SessionStats{LeadsByStatus: map[string]int{}}

	roleRows, err := s.db.QueryContext(ctx,
		s.q(`SELECT role, COUNT(*) FROM messages WHERE session_id = ? GROUP BY role`), sessionID)
	if err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}
	defer closeRows(roleRows, "message counts")
	for roleRows.Next() {
		var role string
		var n int
		if err := roleRows.Scan(&role, &n); err != nil {
			return nil, fmt.Errorf("scan message count: %w", err)
		}
		stats.TotalMessages += n
		switch domain.Role(role) {
		case domain.RoleUser:
			stats.UserMessages = n
		case domain.RoleAssistant:
			stats.AssistantMessages = n
		}
	}
	if err := roleRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate message counts: %w", err)
	}

	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx,
		s.q(`SELECT AVG(rating) FROM feedback WHERE session_id = ?`), sessionID).Scan(&avg); err != nil {
		return nil, fmt.Errorf("average rating: %w", err)
	}
	if avg.Valid {
		v := avg.Float64
		stats.AverageRating = &v
	}

	leadRows, err := s.db.QueryContext(ctx,
		s.q(`SELECT status, COUNT(*) FROM leads WHERE session_id = ? GROUP BY status`), sessionID)
	if err != nil {
		return nil, fmt.Errorf("count leads: %w", err)
	}
	defer closeRows(leadRows, "lead counts")
	for leadRows.Next() {
		var status string
		var n int
		if err := leadRows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan lead count: %w", err)
		}
		stats.LeadsByStatus[status] = n
		stats.TotalLeads += n
	}
	if err := leadRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lead counts: %w", err)
	}

	return stats, nil
}

// UserStats totals the activity of all sessions owned by userID.
func (s *SQLStore) UserStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM sessions WHERE user_id = ?),
			(SELECT COUNT(*) FROM messages m JOIN sessions s ON s.id = m.session_id WHERE s.user_id = ?),
			(SELECT COUNT(*) FROM leads l JOIN sessions s ON s.id = l.session_id WHERE s.user_id = ?),
			(SELECT COUNT(*) FROM feedback f JOIN sessions s ON s.id = f.session_id WHERE s.user_id = ?),
			(SELECT MAX(last_active_at) FROM sessions WHERE user_id = ?)`

	var stats domain.UserStats
	var lastActive sql.NullInt64
	err := s.db.QueryRowContext(ctx, s.q(query), userID, userID, userID, userID, userID).Scan(
		&stats.TotalSessions, &stats.TotalMessages, &stats.TotalLeads, &stats.TotalFeedback, &lastActive,
	)
	if err != nil {
		return nil, fmt.Errorf("user stats: %w", err)
	}
	if lastActive.Valid {
		t := time.Unix(lastActive.Int64, 0)
		stats.LastActive = &t
	}
	return &stats, nil
}

// CleanupOldSessions removes sessions inactive for longer than age along
// with their rows in the session-keyed tables.
func (s *SQLStore) CleanupOldSessions(ctx context.Context, age time.Duration) (int64, error) {
	threshold := time.Now().Add(-age).Unix()
	var removed int64

	err := s.withRetry(ctx, "CleanupOldSessions", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin cleanup: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		for _, table := range sessionTables {
			query := `DELETE FROM ` + table + ` WHERE session_id IN (SELECT id FROM sessions WHERE last_active_at < ?)`
			if _, err := tx.ExecContext(ctx, s.q(query), threshold); err != nil {
				return fmt.Errorf("cleanup %s: %w", table, err)
			}
		}
		result, err := tx.ExecContext(ctx, s.q(`DELETE FROM sessions WHERE last_active_at < ?`), threshold)
		if err != nil {
			return fmt.Errorf("cleanup sessions: %w", err)
		}
		if removed, err = result.RowsAffected(); err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var session domain.Session
	var createdAt, lastActive int64
	if err := row.Scan(&session.ID, &session.UserID, &session.Name, &createdAt, &lastActive); err != nil {
		return nil, err
	}
	session.CreatedAt = time.Unix(createdAt, 0)
	session.LastActiveAt = time.Unix(lastActive, 0)
	return &session, nil
}

func requireRow(result sql.Result, what string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func closeRows(rows *sql.Rows, what string) {
	if err := rows.Close(); err != nil {
		slog.Warn("failed to close rows", "query", what, "error", err)
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
