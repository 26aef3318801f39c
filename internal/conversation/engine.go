// Package conversation runs chat turns: it owns the per-session inference
// state, calls the text generator where the scripted flow allows it and
// persists everything on a best-effort basis.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/nux-coach/internal/convlog"
	"github.com/ashureev/nux-coach/internal/domain"
	"github.com/ashureev/nux-coach/internal/llm"
	"github.com/ashureev/nux-coach/internal/metrics"
	"github.com/ashureev/nux-coach/internal/nux"
)

var (
	// ErrEmptyMessage is returned for blank user input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrTranscriptionUnavailable is returned when no transcriber is configured.
	ErrTranscriptionUnavailable = errors.New("transcription not configured")
	// ErrInvalidMode is returned by ForceMode for unknown modes.
	ErrInvalidMode = errors.New("invalid mode")
)

// Generation policies.
const (
	GenerateDelegated = "scripted"
	GenerateAlways    = "llm"
)

// Reply sources.
const (
	SourceScripted  = "scripted"
	SourceGenerated = "generated"
	SourceFallback  = "fallback"
)

// Store is the persistence the engine needs. store.Repository satisfies it.
type Store interface {
	LoadHistory(ctx context.Context, sessionID string, limit int) ([]domain.ChatMessage, error)
	SaveMessage(ctx context.Context, msg *domain.ChatMessage) error
	DeleteMessages(ctx context.Context, sessionID string) error
	GetSessionState(ctx context.Context, sessionID string) (*domain.SessionState, error)
	UpsertSessionState(ctx context.Context, state *domain.SessionState) error
	DeleteSessionState(ctx context.Context, sessionID string) error
	TouchSession(ctx context.Context, sessionID string, at time.Time) error
}

// Options configures an Engine. Every collaborator is optional.
type Options struct {
	Store       Store
	Generator   llm.Generator
	Transcriber llm.Transcriber
	ConvLog     convlog.Logger
	Metrics     *metrics.Metrics
	Logger      *slog.Logger

	Generation    string
	HistoryLimit  int
	ContextWindow int

	Now    func() time.Time
	Jitter func() float64
}

// Turn is one user input.
type Turn struct {
	SessionID string
	UserID    string
	Text      string
	Channel   string
}

// TurnResult is everything produced by one turn.
type TurnResult struct {
	SessionID     string                  `json:"session_id"`
	UserMessage   domain.ChatMessage      `json:"user_message"`
	Message       domain.ChatMessage      `json:"message"`
	Reply         nux.Reply               `json:"reply"`
	Mode          domain.NuxMode          `json:"mode"`
	Profile       domain.UserProfile      `json:"profile"`
	Context       nux.ConversationContext `json:"context"`
	Source        string                  `json:"source"`
	EstimatedTime int64                   `json:"estimated_time_ms"`
}

// Engine processes turns for many sessions concurrently while keeping a
// single writer per session.
type Engine struct {
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates an engine.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.ConvLog == nil {
		opts.ConvLog = convlog.Noop{}
	}
	if opts.Generation == "" {
		opts.Generation = GenerateDelegated
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	if opts.ContextWindow <= 0 {
		opts.ContextWindow = 8
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Jitter == nil {
		opts.Jitter = rand.Float64
	}
	return &Engine{
		opts:     opts,
		logger:   opts.Logger,
		sessions: make(map[string]*session),
	}
}

// TranscriptionEnabled reports whether HandleAudio can succeed.
func (e *Engine) TranscriptionEnabled() bool { return e.opts.Transcriber != nil }

// GenerationEnabled reports whether a text generator is configured.
func (e *Engine) GenerationEnabled() bool { return e.opts.Generator != nil }

// HandleTurn processes one user message to completion.
func (e *Engine) HandleTurn(ctx context.Context, turn Turn) (*TurnResult, error) {
	text := strings.TrimSpace(turn.Text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if turn.Channel == "" {
		turn.Channel = convlog.ChannelHTTP
	}
	start := e.opts.Now()

	s := e.acquire(ctx, turn.SessionID)
	defer s.mu.Unlock()

	userMsg := e.newMessage(turn.SessionID, domain.RoleUser, text)
	s.record(userMsg, e.opts.HistoryLimit)
	e.saveMessage(ctx, &userMsg)
	e.logEvent(turn, convlog.DirectionOutbound, convlog.EventUserMessage, text, nil)

	s.profile = nux.Capture(s.expect, text, s.profile)
	s.profile = nux.Extract(text, s.userTexts, s.profile)
	prev := s.mode
	s.mode = nux.Adopt(s.mode, nux.Detect(text, s.userTexts, s.profile))
	if s.mode.Type != prev.Type && e.opts.Metrics != nil {
		e.opts.Metrics.ModeAdoptions.WithLabelValues(string(prev.Type), string(s.mode.Type)).Inc()
	}

	c := nux.BuildContext(s.texts(), s.profile, s.mode)
	reply := nux.Select(text, c, s.planned)
	if reply.State == nux.StatePlan {
		s.planned[reply.Mode] = true
		if e.opts.Metrics != nil {
			e.opts.Metrics.PlansDelivered.WithLabelValues(string(reply.Mode)).Inc()
		}
	}
	s.expect = reply.Expect

	answer, source := e.respond(ctx, turn.SessionID, s, c, reply)

	assistantMsg := e.newMessage(turn.SessionID, domain.RoleAssistant, answer)
	s.record(assistantMsg, e.opts.HistoryLimit)
	s.lastActive = e.opts.Now()
	e.saveMessage(ctx, &assistantMsg)
	e.saveState(ctx, turn.SessionID, s)
	e.touch(ctx, turn.SessionID, s.lastActive)
	e.logEvent(turn, convlog.DirectionInbound, convlog.EventAssistantMessage, answer, map[string]any{
		"mode":   string(s.mode.Type),
		"state":  string(reply.State),
		"source": source,
	})

	if e.opts.Metrics != nil {
		e.opts.Metrics.TurnsTotal.WithLabelValues(string(s.mode.Type), string(reply.State), source).Inc()
		e.opts.Metrics.TurnDuration.WithLabelValues(source).Observe(e.opts.Now().Sub(start).Seconds())
	}

	return &TurnResult{
		SessionID:     turn.SessionID,
		UserMessage:   userMsg,
		Message:       assistantMsg,
		Reply:         reply,
		Mode:          s.mode.Clone(),
		Profile:       s.profile.Clone(),
		Context:       c,
		Source:        source,
		EstimatedTime: EstimateResponseTime(len([]rune(text)), e.opts.Jitter()).Milliseconds(),
	}, nil
}

// respond decides between the scripted text and a generated one. Any
// generation failure falls back to the scripted text.
func (e *Engine) respond(ctx context.Context, sessionID string, s *session, c nux.ConversationContext, reply nux.Reply) (string, string) {
	scripted := reply.Text
	if scripted == "" {
		scripted = nux.Apology
	}
	if e.opts.Generator == nil || !(reply.Delegate || e.opts.Generation == GenerateAlways) {
		return scripted, SourceScripted
	}

	messages := e.promptMessages(ctx, sessionID, s, c)
	start := e.opts.Now()
	text, err := e.opts.Generator.Generate(ctx, messages)
	if e.opts.Metrics != nil {
		e.opts.Metrics.GenerationLatency.Observe(e.opts.Now().Sub(start).Seconds())
	}
	if err != nil || strings.TrimSpace(text) == "" {
		e.logger.Warn("generation failed, using scripted reply", "session_id", sessionID, "error", err)
		e.countGeneration("failure")
		return scripted, SourceFallback
	}
	e.countGeneration("success")
	return strings.TrimSpace(text), SourceGenerated
}

func (e *Engine) countGeneration(result string) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.GenerationRequests.WithLabelValues(result).Inc()
	}
}

// promptMessages builds the generator input: the system prompt with the
// context summary, then the recent conversation. The store is asked first;
// on error or an empty answer the local buffer is used.
func (e *Engine) promptMessages(ctx context.Context, sessionID string, s *session, c nux.ConversationContext) []llm.Message {
	recent := e.recentFromStore(ctx, sessionID)
	if len(recent) == 0 {
		recent = s.recent(e.opts.ContextWindow)
	}
	if last := s.last(); last != nil && (len(recent) == 0 || recent[len(recent)-1].ID != last.ID) {
		recent = append(recent, *last)
	}

	out := make([]llm.Message, 0, len(recent)+1)
	out = append(out, llm.Message{
		Role:    domain.RoleSystem,
		Content: nux.SystemPrompt + "\n\nGesprächskontext:\n" + c.Summary(),
	})
	for _, m := range recent {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func (e *Engine) recentFromStore(ctx context.Context, sessionID string) []domain.ChatMessage {
	if e.opts.Store == nil {
		return nil
	}
	msgs, err := e.opts.Store.LoadHistory(ctx, sessionID, e.opts.ContextWindow)
	if err != nil {
		e.persistFailed("load_history", sessionID, err)
		return nil
	}
	return msgs
}

func (e *Engine) newMessage(sessionID string, role domain.Role, content string) domain.ChatMessage {
	return domain.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: e.opts.Now(),
	}
}

func (e *Engine) saveMessage(ctx context.Context, msg *domain.ChatMessage) {
	if e.opts.Store == nil {
		return
	}
	if err := e.opts.Store.SaveMessage(ctx, msg); err != nil {
		e.persistFailed("save_message", msg.SessionID, err)
	}
}

func (e *Engine) saveState(ctx context.Context, sessionID string, s *session) {
	if e.opts.Store == nil {
		return
	}
	if err := e.opts.Store.UpsertSessionState(ctx, s.snapshot(sessionID, e.opts.Now())); err != nil {
		e.persistFailed("save_state", sessionID, err)
	}
}

func (e *Engine) touch(ctx context.Context, sessionID string, at time.Time) {
	if e.opts.Store == nil {
		return
	}
	if err := e.opts.Store.TouchSession(ctx, sessionID, at); err != nil {
		e.persistFailed("touch_session", sessionID, err)
	}
}

func (e *Engine) persistFailed(op, sessionID string, err error) {
	e.logger.Warn("persistence failed, continuing in memory", "op", op, "session_id", sessionID, "error", err)
	if e.opts.Metrics != nil {
		e.opts.Metrics.PersistenceErrors.WithLabelValues(op).Inc()
	}
}

func (e *Engine) logEvent(turn Turn, direction, eventType, content string, meta map[string]any) {
	e.opts.ConvLog.Log(convlog.Event{
		Timestamp:  e.opts.Now().UTC().Format(time.RFC3339Nano),
		UserID:     turn.UserID,
		SessionID:  turn.SessionID,
		Channel:    turn.Channel,
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Content:    convlog.Clean(content),
		Meta:       meta,
	})
}
