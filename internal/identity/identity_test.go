package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/nux-coach/internal/domain"
)

type memUsers struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	lastSeen int
}

func (m *memUsers) GetUser(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id], nil
}

func (m *memUsers) UpsertUser(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.UserID] = u
	return nil
}

func (m *memUsers) UpdateLastSeen(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSeen++
	m.users[id].LastSeenAt = at
	return nil
}

func serve(t *testing.T, repo UserStore, req *http.Request) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	var userID, sessionID string
	h := Middleware(repo, true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		userID = UserIDFromContext(r.Context())
		sessionID = SessionIDFromContext(r.Context())
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w, userID, sessionID
}

func TestMiddleware_IssuesCookieAndCreatesUser(t *testing.T) {
	t.Parallel()

	repo := &memUsers{users: map[string]*domain.User{}}
	w, userID, sessionID := serve(t, repo, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Regexp(t, `^anon_[a-f0-9]{32}$`, userID)
	assert.Equal(t, DefaultSessionIDValue, sessionID)
	require.Contains(t, repo.users, userID)
	assert.Equal(t, deriveUsername(userID), repo.users[userID].Username)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AnonCookieName, cookies[0].Name)
	assert.Equal(t, userID, cookies[0].Value)
	assert.False(t, cookies[0].Secure)
}

func TestMiddleware_ReusesCookieAndReadsSessionHeader(t *testing.T) {
	t.Parallel()

	id := "anon_0123456789abcdef0123456789abcdef"
	repo := &memUsers{users: map[string]*domain.User{
		id: {UserID: id, LastSeenAt: time.Now().Add(-time.Hour)},
	}}

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: id})
	req.Header.Set(SessionHeaderName, "5b0f6c1e-0d7b-4d8e-9a55-1f2e3d4c5b6a")

	_, userID, sessionID := serve(t, repo, req)
	assert.Equal(t, id, userID)
	assert.Equal(t, "5b0f6c1e-0d7b-4d8e-9a55-1f2e3d4c5b6a", sessionID)
	assert.Equal(t, 1, repo.lastSeen)
}

func TestMiddleware_RejectsForgedValues(t *testing.T) {
	t.Parallel()

	repo := &memUsers{users: map[string]*domain.User{}}
	req := httptest.NewRequest(http.MethodGet, "/api/chat?session_id=../../etc/passwd", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "anon_not-hex"})

	_, userID, sessionID := serve(t, repo, req)
	assert.NotEqual(t, "anon_not-hex", userID)
	assert.Equal(t, DefaultSessionIDValue, sessionID)
}

func TestWithIdentity(t *testing.T) {
	t.Parallel()

	ctx := WithIdentity(context.Background(), "anon_0123456789abcdef0123456789abcdef", "s-1")
	assert.Equal(t, "anon_0123456789abcdef0123456789abcdef", UserIDFromContext(ctx))
	assert.Equal(t, "anon-89abcdef", UsernameFromContext(ctx))
	assert.Equal(t, "s-1", SessionIDFromContext(ctx))
	assert.Equal(t, DefaultSessionIDValue, SessionIDFromContext(context.Background()))
}
