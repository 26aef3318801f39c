package conversation

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ashureev/nux-coach/internal/domain"
	"github.com/ashureev/nux-coach/internal/nux"
)

// session is the in-memory inference state of one conversation. mu is held
// for the whole of a turn.
type session struct {
	mu sync.Mutex

	loaded     bool
	evicted    bool
	profile    domain.UserProfile
	mode       domain.NuxMode
	planned    nux.Planned
	expect     string
	transcript []domain.ChatMessage
	userTexts  []string
	lastActive time.Time
}

func newSession(now time.Time) *session {
	return &session{
		mode:       domain.InitialMode(),
		planned:    nux.Planned{},
		lastActive: now,
	}
}

// record appends msg to the local buffer, keeping at most limit entries.
func (s *session) record(msg domain.ChatMessage, limit int) {
	s.transcript = append(s.transcript, msg)
	if len(s.transcript) > limit {
		s.transcript = slices.Clone(s.transcript[len(s.transcript)-limit:])
	}
	if msg.Role == domain.RoleUser {
		s.userTexts = append(s.userTexts, msg.Content)
		if len(s.userTexts) > limit {
			s.userTexts = slices.Clone(s.userTexts[len(s.userTexts)-limit:])
		}
	}
}

func (s *session) texts() []string {
	out := make([]string, len(s.transcript))
	for i, m := range s.transcript {
		out[i] = m.Content
	}
	return out
}

func (s *session) recent(n int) []domain.ChatMessage {
	if len(s.transcript) <= n {
		return slices.Clone(s.transcript)
	}
	return slices.Clone(s.transcript[len(s.transcript)-n:])
}

func (s *session) last() *domain.ChatMessage {
	if len(s.transcript) == 0 {
		return nil
	}
	m := s.transcript[len(s.transcript)-1]
	return &m
}

func (s *session) snapshot(sessionID string, now time.Time) *domain.SessionState {
	planned := make([]domain.ModeType, 0, len(s.planned))
	for mode, done := range s.planned {
		if done {
			planned = append(planned, mode)
		}
	}
	slices.Sort(planned)
	return &domain.SessionState{
		SessionID: sessionID,
		Profile:   s.profile.Clone(),
		Mode:      s.mode.Clone(),
		Planned:   planned,
		Expect:    s.expect,
		UpdatedAt: now,
	}
}

func (s *session) reset(now time.Time) {
	s.profile = domain.UserProfile{}
	s.mode = domain.InitialMode()
	s.planned = nux.Planned{}
	s.expect = ""
	s.transcript = nil
	s.userTexts = nil
	s.lastActive = now
}

// acquire returns the locked session for id, restoring it from the store on
// first use.
func (e *Engine) acquire(ctx context.Context, id string) *session {
	for {
		s := e.lookup(id)
		s.mu.Lock()
		if s.evicted {
			s.mu.Unlock()
			continue
		}
		if !s.loaded {
			e.restore(ctx, id, s)
			s.loaded = true
		}
		return s
	}
}

func (e *Engine) lookup(id string) *session {
	e.mu.Lock()
	s, ok := e.sessions[id]
	if !ok {
		s = newSession(e.opts.Now())
		e.sessions[id] = s
		if e.opts.Metrics != nil {
			e.opts.Metrics.ActiveSessions.Set(float64(len(e.sessions)))
		}
	}
	e.mu.Unlock()
	return s
}

// restore loads history and the last snapshot. Without a snapshot the
// profile and mode are rebuilt by replaying the user messages.
func (e *Engine) restore(ctx context.Context, id string, s *session) {
	if e.opts.Store == nil {
		return
	}

	history, err := e.opts.Store.LoadHistory(ctx, id, e.opts.HistoryLimit)
	if err != nil {
		e.persistFailed("load_history", id, err)
	}
	for _, m := range history {
		s.record(m, e.opts.HistoryLimit)
	}

	state, err := e.opts.Store.GetSessionState(ctx, id)
	if err != nil {
		e.persistFailed("load_state", id, err)
	}
	if state != nil {
		s.profile = state.Profile.Clone()
		s.mode = state.Mode.Clone()
		if s.mode.Type == "" {
			s.mode = domain.InitialMode()
		}
		for _, mode := range state.Planned {
			s.planned[mode] = true
		}
		s.expect = state.Expect
		return
	}
	if len(s.userTexts) > 0 {
		s.replay()
		e.logger.Info("session state rebuilt from history", "session_id", id, "messages", len(history))
	}
}

func (s *session) replay() {
	seen := make([]string, 0, len(s.userTexts))
	for _, text := range s.userTexts {
		seen = append(seen, text)
		s.profile = nux.Extract(text, seen, s.profile)
		s.mode = nux.Adopt(s.mode, nux.Detect(text, seen, s.profile))
	}
}
