package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/nux-coach/internal/convlog"
	"github.com/ashureev/nux-coach/internal/domain"
	"github.com/ashureev/nux-coach/internal/llm"
	"github.com/ashureev/nux-coach/internal/nux"
)

// Snapshot is a read-only view of a session.
type Snapshot struct {
	SessionID    string                  `json:"session_id"`
	Profile      domain.UserProfile      `json:"profile"`
	Mode         domain.NuxMode          `json:"mode"`
	Context      nux.ConversationContext `json:"context"`
	Planned      []domain.ModeType       `json:"planned"`
	Expect       string                  `json:"expect,omitempty"`
	MessageCount int                     `json:"message_count"`
}

// AudioResult pairs a transcription with the turn it triggered. Turn is nil
// when the transcription failed or was empty.
type AudioResult struct {
	Transcription llm.TranscriptionResult `json:"transcription"`
	Turn          *TurnResult             `json:"turn,omitempty"`
}

// Snapshot returns the current state of a session.
func (e *Engine) Snapshot(ctx context.Context, sessionID string) Snapshot {
	s := e.acquire(ctx, sessionID)
	defer s.mu.Unlock()
	return e.view(sessionID, s)
}

func (e *Engine) view(sessionID string, s *session) Snapshot {
	state := s.snapshot(sessionID, e.opts.Now())
	return Snapshot{
		SessionID:    sessionID,
		Profile:      state.Profile,
		Mode:         state.Mode,
		Context:      nux.BuildContext(s.texts(), s.profile, s.mode),
		Planned:      state.Planned,
		Expect:       state.Expect,
		MessageCount: len(s.transcript),
	}
}

// Reset clears the conversation of a session, both in memory and in the store.
func (e *Engine) Reset(ctx context.Context, sessionID string) Snapshot {
	s := e.acquire(ctx, sessionID)
	defer s.mu.Unlock()

	s.reset(e.opts.Now())
	if e.opts.Store != nil {
		if err := e.opts.Store.DeleteMessages(ctx, sessionID); err != nil {
			e.persistFailed("delete_messages", sessionID, err)
		}
		if err := e.opts.Store.DeleteSessionState(ctx, sessionID); err != nil {
			e.persistFailed("delete_state", sessionID, err)
		}
	}
	e.logger.Info("session reset", "session_id", sessionID)
	return e.view(sessionID, s)
}

// UpdateProfile merges patch into the session profile.
func (e *Engine) UpdateProfile(ctx context.Context, sessionID string, patch domain.UserProfile) Snapshot {
	s := e.acquire(ctx, sessionID)
	defer s.mu.Unlock()

	s.profile = s.profile.Merge(patch)
	e.saveState(ctx, sessionID, s)
	return e.view(sessionID, s)
}

// ForceMode pins the session to mode with full confidence.
func (e *Engine) ForceMode(ctx context.Context, sessionID string, mode domain.ModeType) (Snapshot, error) {
	if !mode.Valid() {
		return Snapshot{}, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	s := e.acquire(ctx, sessionID)
	defer s.mu.Unlock()

	prev := s.mode.Type
	s.mode = domain.NuxMode{Type: mode, Confidence: 1.0, Triggers: []string{}}
	if prev != mode && e.opts.Metrics != nil {
		e.opts.Metrics.ModeAdoptions.WithLabelValues(string(prev), string(mode)).Inc()
	}
	e.saveState(ctx, sessionID, s)
	return e.view(sessionID, s), nil
}

// HandleAudio transcribes audio and runs the text as a normal turn.
func (e *Engine) HandleAudio(ctx context.Context, turn Turn, audio []byte, filename string) (*AudioResult, error) {
	if e.opts.Transcriber == nil {
		return nil, ErrTranscriptionUnavailable
	}
	res := e.opts.Transcriber.Transcribe(ctx, audio, filename)
	if !res.Success || res.Text == "" {
		e.countTranscription("failure")
		e.logger.Warn("transcription failed", "session_id", turn.SessionID, "error", res.Error)
		if res.Error == "" {
			res.Error = nux.TranscriptionFailed
		}
		return &AudioResult{Transcription: res}, nil
	}
	e.countTranscription("success")

	if turn.Channel == "" {
		turn.Channel = convlog.ChannelVoice
	}
	e.logEvent(turn, convlog.DirectionOutbound, convlog.EventTranscription, res.Text, map[string]any{"filename": filename})
	turn.Text = res.Text
	result, err := e.HandleTurn(ctx, turn)
	if err != nil {
		return nil, err
	}
	return &AudioResult{Transcription: res, Turn: result}, nil
}

func (e *Engine) countTranscription(result string) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.Transcriptions.WithLabelValues(result).Inc()
	}
}

// Forget drops a session from memory without touching the store.
func (e *Engine) Forget(sessionID string) {
	e.mu.Lock()
	s, ok := e.sessions[sessionID]
	delete(e.sessions, sessionID)
	n := len(e.sessions)
	e.mu.Unlock()

	if ok {
		s.mu.Lock()
		s.evicted = true
		s.mu.Unlock()
	}
	if e.opts.Metrics != nil {
		e.opts.Metrics.ActiveSessions.Set(float64(n))
	}
}

// ActiveSessions returns the number of sessions held in memory.
func (e *Engine) ActiveSessions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// EvictIdle drops sessions idle for longer than ttl. Sessions in the middle
// of a turn are skipped. Their state stays in the store and is restored on
// the next turn.
func (e *Engine) EvictIdle(ttl time.Duration) int {
	cutoff := e.opts.Now().Add(-ttl)

	e.mu.Lock()
	evicted := 0
	for id, s := range e.sessions {
		if !s.mu.TryLock() {
			continue
		}
		if s.lastActive.Before(cutoff) {
			s.evicted = true
			delete(e.sessions, id)
			evicted++
		}
		s.mu.Unlock()
	}
	n := len(e.sessions)
	e.mu.Unlock()

	if e.opts.Metrics != nil {
		e.opts.Metrics.ActiveSessions.Set(float64(n))
		e.opts.Metrics.SessionsEvicted.Add(float64(evicted))
	}
	return evicted
}

// EstimateResponseTime is the typing delay shown to the client: two seconds,
// plus 30ms per input character capped at three seconds, plus up to one
// second of jitter in [0,1).
func EstimateResponseTime(chars int, jitter float64) time.Duration {
	perChar := min(time.Duration(chars)*30*time.Millisecond, 3*time.Second)
	return 2*time.Second + perChar + time.Duration(jitter*float64(time.Second))
}

var germanMonths = [...]string{
	"Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember",
}

// SessionName is the default name of a session created at t, e.g.
// "Chat vom 3. März".
func SessionName(t time.Time) string {
	return fmt.Sprintf("Chat vom %d. %s", t.Day(), germanMonths[t.Month()-1])
}
