package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/nux-coach/internal/domain"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "nux.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func createSession(t *testing.T, s *SQLStore, id, userID string, lastActive time.Time) {
	t.Helper()
	require.NoError(t, s.CreateSession(context.Background(), &domain.Session{
		ID: id, UserID: userID, Name: "Chat " + id,
		CreatedAt: lastActive, LastActiveAt: lastActive,
	}))
}

func TestRebind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SELECT * FROM t WHERE a = $1 AND b = $2", rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
	assert.Equal(t, "SELECT 1", rebind("SELECT 1"))
}

func TestOpen_UnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open("mysql", "whatever")
	require.Error(t, err)
}

func TestSQLStore_Users(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetUser(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	now := time.Unix(1700000000, 0)
	require.NoError(t, s.UpsertUser(ctx, &domain.User{
		UserID: "u1", Username: "anon", LastSeenAt: now, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, s.UpdateLastSeen(ctx, "u1", now.Add(time.Hour)))

	got, err = s.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "anon", got.Username)
	assert.Equal(t, now.Add(time.Hour).Unix(), got.LastSeenAt.Unix())
}

func TestSQLStore_SessionsOrderedByActivity(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	createSession(t, s, "a", "u1", base)
	createSession(t, s, "b", "u1", base.Add(time.Minute))
	createSession(t, s, "c", "u2", base)
	require.NoError(t, s.TouchSession(ctx, "a", base.Add(2*time.Minute)))

	sessions, err := s.ListSessions(ctx, "u1", 20)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].ID)
	assert.Equal(t, "b", sessions[1].ID)

	require.NoError(t, s.RenameSession(ctx, "b", "Neu"))
	got, err := s.GetSession(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Neu", got.Name)

	require.ErrorIs(t, s.RenameSession(ctx, "nope", "x"), ErrNotFound)
}

func TestSQLStore_LoadHistoryReturnsLatestInOrder(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	createSession(t, s, "s1", "u1", time.Now())

	for i := 0; i < 10; i++ {
		role := domain.RoleUser
		if i%2 == 1 {
			role = domain.RoleAssistant
		}
		require.NoError(t, s.SaveMessage(ctx, &domain.ChatMessage{
			ID: fmt.Sprintf("m%d", i), SessionID: "s1", Role: role,
			Content: fmt.Sprintf("msg %d", i), CreatedAt: time.Now(),
		}))
	}

	history, err := s.LoadHistory(ctx, "s1", 4)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "msg 6", history[0].Content)
	assert.Equal(t, "msg 9", history[3].Content)
	assert.Equal(t, domain.RoleAssistant, history[3].Role)

	require.NoError(t, s.DeleteMessages(ctx, "s1"))
	history, err = s.LoadHistory(ctx, "s1", 4)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSQLStore_SessionStateRoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetSessionState(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)

	state := &domain.SessionState{
		SessionID: "s1",
		Profile: domain.UserProfile{
			OldLeadsCount: domain.Int(150),
			LeadSources:   []string{"Facebook Ads", "Facebook Ads"},
			HasAutomation: domain.Bool(true),
		},
		Mode:    domain.NuxMode{Type: domain.ModeReaktivierung, Confidence: 1, Triggers: []string{"alte kontakte"}},
		Planned: []domain.ModeType{domain.ModeReaktivierung},
		Expect:  "leadSources",
	}
	require.NoError(t, s.UpsertSessionState(ctx, state))

	state.Expect = ""
	require.NoError(t, s.UpsertSessionState(ctx, state))

	got, err = s.GetSessionState(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, state.Profile, got.Profile)
	assert.Equal(t, state.Mode, got.Mode)
	assert.Equal(t, state.Planned, got.Planned)
	assert.Empty(t, got.Expect)

	require.NoError(t, s.DeleteSessionState(ctx, "s1"))
	got, err = s.GetSessionState(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLStore_StatsAndLeads(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	createSession(t, s, "s1", "u1", now)

	for i, role := range []domain.Role{domain.RoleUser, domain.RoleAssistant, domain.RoleUser} {
		require.NoError(t, s.SaveMessage(ctx, &domain.ChatMessage{
			ID: fmt.Sprintf("m%d", i), SessionID: "s1", Role: role, Content: "x", CreatedAt: now,
		}))
	}
	require.NoError(t, s.SaveFeedback(ctx, &domain.Feedback{ID: "f1", SessionID: "s1", Rating: 5, CreatedAt: now}))
	require.NoError(t, s.SaveFeedback(ctx, &domain.Feedback{ID: "f2", SessionID: "s1", MessageID: "m1", Rating: 1, CreatedAt: now}))
	require.NoError(t, s.SaveLead(ctx, &domain.Lead{ID: "l1", SessionID: "s1", Name: "Meier", Status: domain.LeadNew, CreatedAt: now}))
	require.NoError(t, s.SaveLead(ctx, &domain.Lead{ID: "l2", SessionID: "s1", Status: domain.LeadNew, CreatedAt: now}))
	require.NoError(t, s.UpdateLeadStatus(ctx, "l2", domain.LeadReactivated))
	require.ErrorIs(t, s.UpdateLeadStatus(ctx, "l9", domain.LeadLost), ErrNotFound)

	stats, err := s.SessionStats(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalMessages)
	assert.Equal(t, 2, stats.UserMessages)
	assert.Equal(t, 1, stats.AssistantMessages)
	require.NotNil(t, stats.AverageRating)
	assert.InDelta(t, 3.0, *stats.AverageRating, 1e-9)
	assert.Equal(t, 2, stats.TotalLeads)
	assert.Equal(t, map[string]int{"neu": 1, "reaktiviert": 1}, stats.LeadsByStatus)

	leads, err := s.ListLeads(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "Meier", leads[0].Name)

	empty, err := s.SessionStats(ctx, "other")
	require.NoError(t, err)
	assert.Nil(t, empty.AverageRating)
	assert.Zero(t, empty.TotalMessages)
}

func TestSQLStore_UserStatsAndLeads(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	earlier := time.Unix(1700000000, 0)
	later := earlier.Add(time.Hour)
	createSession(t, s, "a1", "u1", earlier)
	createSession(t, s, "a2", "u1", later)
	createSession(t, s, "b1", "u2", later.Add(time.Hour))

	for i, sessionID := range []string{"a1", "a1", "a2", "b1"} {
		require.NoError(t, s.SaveMessage(ctx, &domain.ChatMessage{
			ID: fmt.Sprintf("m%d", i), SessionID: sessionID, Role: domain.RoleUser, Content: "x", CreatedAt: earlier,
		}))
	}
	require.NoError(t, s.SaveFeedback(ctx, &domain.Feedback{ID: "f1", SessionID: "a2", Rating: 5, CreatedAt: later}))
	require.NoError(t, s.SaveFeedback(ctx, &domain.Feedback{ID: "f2", SessionID: "b1", Rating: 1, CreatedAt: later}))
	require.NoError(t, s.SaveLead(ctx, &domain.Lead{ID: "l1", SessionID: "a1", Name: "Alt", Status: domain.LeadNew, CreatedAt: earlier}))
	require.NoError(t, s.SaveLead(ctx, &domain.Lead{ID: "l2", SessionID: "a2", Name: "Neu", Status: domain.LeadNew, CreatedAt: later}))
	require.NoError(t, s.SaveLead(ctx, &domain.Lead{ID: "l3", SessionID: "b1", Name: "Fremd", Status: domain.LeadNew, CreatedAt: later}))

	stats, err := s.UserStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 3, stats.TotalMessages)
	assert.Equal(t, 2, stats.TotalLeads)
	assert.Equal(t, 1, stats.TotalFeedback)
	require.NotNil(t, stats.LastActive)
	assert.Equal(t, later.Unix(), stats.LastActive.Unix())

	leads, err := s.ListLeadsByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "Neu", leads[0].Name, "newest first")
	assert.Equal(t, "Alt", leads[1].Name)

	none, err := s.UserStats(ctx, "nobody")
	require.NoError(t, err)
	assert.Zero(t, none.TotalSessions)
	assert.Nil(t, none.LastActive)

	leads, err = s.ListLeadsByUser(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, leads)
	assert.NotNil(t, leads)
}

func TestSQLStore_DeleteSessionCascades(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	createSession(t, s, "s1", "u1", now)
	require.NoError(t, s.SaveMessage(ctx, &domain.ChatMessage{ID: "m1", SessionID: "s1", Role: domain.RoleUser, Content: "x", CreatedAt: now}))
	require.NoError(t, s.UpsertSessionState(ctx, &domain.SessionState{SessionID: "s1", Mode: domain.InitialMode()}))

	require.NoError(t, s.DeleteSession(ctx, "s1"))

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
	history, err := s.LoadHistory(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
	state, err := s.GetSessionState(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, state)

	require.ErrorIs(t, s.DeleteSession(ctx, "s1"), ErrNotFound)
}

func TestSQLStore_CleanupOldSessions(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	createSession(t, s, "old", "u1", time.Now().Add(-40*24*time.Hour))
	createSession(t, s, "fresh", "u1", time.Now())
	require.NoError(t, s.SaveMessage(ctx, &domain.ChatMessage{ID: "m1", SessionID: "old", Role: domain.RoleUser, Content: "x", CreatedAt: time.Now()}))

	n, err := s.CleanupOldSessions(ctx, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	sessions, err := s.ListSessions(ctx, "u1", 20)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "fresh", sessions[0].ID)

	history, err := s.LoadHistory(ctx, "old", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}
