// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/nux-coach/internal/domain"
)

// Repository defines the interface for persisting users, chat sessions and
// everything recorded inside them.
type Repository interface {
	// GetUser retrieves a user by their user ID.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// CreateSession stores a new chat session.
	CreateSession(ctx context.Context, session *domain.Session) error

	// GetSession retrieves a session by ID. It returns nil, nil when missing.
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)

	// ListSessions returns the most recently active sessions of a user.
	ListSessions(ctx context.Context, userID string, limit int) ([]*domain.Session, error)

	// RenameSession changes the display name of a session.
	RenameSession(ctx context.Context, sessionID, name string) error

	// TouchSession moves last_active_at of a session forward.
	TouchSession(ctx context.Context, sessionID string, at time.Time) error

	// DeleteSession removes a session together with its messages, state,
	// feedback and leads.
	DeleteSession(ctx context.Context, sessionID string) error

	// SaveMessage appends a message to a session transcript.
	SaveMessage(ctx context.Context, msg *domain.ChatMessage) error

	// LoadHistory returns the latest limit messages of a session, oldest first.
	LoadHistory(ctx context.Context, sessionID string, limit int) ([]domain.ChatMessage, error)

	// DeleteMessages clears the transcript of a session.
	DeleteMessages(ctx context.Context, sessionID string) error

	// GetSessionState retrieves the inference snapshot of a session.
	GetSessionState(ctx context.Context, sessionID string) (*domain.SessionState, error)

	// UpsertSessionState creates or replaces the inference snapshot.
	UpsertSessionState(ctx context.Context, state *domain.SessionState) error

	// DeleteSessionState removes the inference snapshot.
	DeleteSessionState(ctx context.Context, sessionID string) error

	// SaveFeedback records a rating.
	SaveFeedback(ctx context.Context, fb *domain.Feedback) error

	// SaveLead records a tracked lead.
	SaveLead(ctx context.Context, lead *domain.Lead) error

	// ListLeads returns the leads of a session in creation order.
	ListLeads(ctx context.Context, sessionID string) ([]domain.Lead, error)

	// ListLeadsByUser returns the leads of all sessions of a user, newest first.
	ListLeadsByUser(ctx context.Context, userID string) ([]domain.Lead, error)

	// UpdateLeadStatus moves a lead to another pipeline stage.
	UpdateLeadStatus(ctx context.Context, leadID string, status domain.LeadStatus) error

	// SessionStats summarizes messages, ratings and leads of a session.
	SessionStats(ctx context.Context, sessionID string) (*domain.SessionStats, error)

	// UserStats totals sessions, messages, leads and feedback of a user.
	UserStats(ctx context.Context, userID string) (*domain.UserStats, error)

	// CleanupOldSessions removes sessions inactive for longer than age.
	CleanupOldSessions(ctx context.Context, age time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open returns the repository for driver. For SQLite target is a file path,
// for Postgres a connection string.
func Open(driver, target string) (Repository, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLite(target)
	case DriverPostgres:
		return NewPostgres(target)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
