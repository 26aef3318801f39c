package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/nux-coach/internal/domain"
	"github.com/ashureev/nux-coach/internal/identity"
)

var (
	// ErrInvalidSession is returned for a malformed session ID.
	ErrInvalidSession = errors.New("invalid session id")
	// ErrSessionNotFound hides sessions owned by another user.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionUnavailable is returned when ownership cannot be checked.
	ErrSessionUnavailable = errors.New("session store unavailable")
)

// SessionStore is the part of the repository session resolution needs.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*domain.Session, error)
	CreateSession(ctx context.Context, session *domain.Session) error
}

// ResolveSession returns the session a chat turn of userID belongs to.
//
// An empty or default ID starts a new session. An unknown ID is created for
// the caller. When the store cannot be read the lookup fails with
// ErrSessionUnavailable: engine state is keyed by session ID alone, so a turn
// must never run against a session whose owner is unknown. A failed create
// is only logged, the chat then lives in memory.
func ResolveSession(ctx context.Context, repo SessionStore, userID, id string, now time.Time) (*domain.Session, error) {
	if id == "" || id == identity.DefaultSessionIDValue {
		id = uuid.NewString()
	} else {
		if !identity.ValidSessionID(id) {
			return nil, ErrInvalidSession
		}
		existing, err := repo.GetSession(ctx, id)
		if err != nil {
			slog.Error("Failed to load session", "session_id", id, "user_id", userID, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrSessionUnavailable, err)
		}
		if existing != nil {
			if existing.UserID != userID {
				return nil, ErrSessionNotFound
			}
			return existing, nil
		}
	}

	session := &domain.Session{
		ID:           id,
		UserID:       userID,
		Name:         SessionName(now),
		CreatedAt:    now,
		LastActiveAt: now,
	}
	if err := repo.CreateSession(ctx, session); err != nil {
		slog.Warn("Failed to persist session, continuing in memory", "session_id", id, "error", err)
	}
	return session, nil
}
