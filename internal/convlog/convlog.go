// Package convlog writes chat transcripts as NDJSON, one file per session
// plus an optional global file.
package convlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Event is one logged conversation entry.
type Event struct {
	Timestamp  string         `json:"ts"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id"`
	Channel    string         `json:"channel"`
	Direction  string         `json:"direction"`
	EventType  string         `json:"event_type"`
	ContentRaw string         `json:"content_raw"`
	Content    string         `json:"content"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// Channels and event types.
const (
	ChannelHTTP      = "chat_http"
	ChannelWebSocket = "chat_ws"
	ChannelVoice     = "voice"

	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"

	EventUserMessage      = "chat_user_message"
	EventAssistantMessage = "chat_assistant_message"
	EventTranscription    = "transcription"
)

// Logger accepts conversation events.
type Logger interface {
	Log(event Event)
	Close() error
}

// Config controls the NDJSON logger.
type Config struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Noop discards every event.
type Noop struct{}

// Log implements Logger.
func (Noop) Log(Event) {}

// Close implements Logger.
func (Noop) Close() error { return nil }

// NDJSONLogger writes events from a bounded queue on a single goroutine.
// Events are dropped when the queue is full so chat requests never block.
type NDJSONLogger struct {
	cfg    Config
	logger *slog.Logger
	queue  chan Event
	done   chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// New returns Noop when logging is disabled.
func New(cfg Config, logger *slog.Logger) (Logger, error) {
	if !cfg.Enabled {
		return Noop{}, nil
	}
	return NewNDJSON(cfg, logger)
}

// NewNDJSON creates the log directory and starts the writer goroutine.
func NewNDJSON(cfg Config, logger *slog.Logger) (*NDJSONLogger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}
	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0o755); err != nil {
			return nil, fmt.Errorf("create global conversation log dir: %w", err)
		}
	}

	l := &NDJSONLogger{
		cfg:    cfg,
		logger: logger,
		queue:  make(chan Event, cfg.QueueSize),
		done:   make(chan struct{}),
	}
	go l.run()
	return l, nil
}

// Log enqueues an event.
func (l *NDJSONLogger) Log(event Event) {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if event.Content == "" {
		event.Content = Clean(event.ContentRaw)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.queue <- event:
	default:
		l.logger.Warn("conversation log queue full, dropping event",
			"session_id", event.SessionID, "event_type", event.EventType)
	}
}

// Close drains the queue and stops the writer.
func (l *NDJSONLogger) Close() error {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closed = true
		close(l.queue)
		l.mu.Unlock()
	})
	<-l.done
	return nil
}

func (l *NDJSONLogger) run() {
	defer close(l.done)
	for event := range l.queue {
		line, err := json.Marshal(event)
		if err != nil {
			l.logger.Warn("failed to encode conversation event", "error", err)
			continue
		}
		line = append(line, '\n')

		path := filepath.Join(l.cfg.Dir, safeName(event.UserID), safeName(event.SessionID)+".ndjson")
		if err := appendLine(path, line); err != nil {
			l.logger.Warn("failed to write conversation log", "path", path, "error", err)
		}
		if l.cfg.GlobalEnabled {
			if err := appendLine(l.cfg.GlobalPath, line); err != nil {
				l.logger.Warn("failed to write global conversation log", "path", l.cfg.GlobalPath, "error", err)
			}
		}
	}
}

func appendLine(path string, line []byte) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, f.Close()) }()
	_, err = f.Write(line)
	return err
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

func safeName(s string) string {
	s = unsafeChars.ReplaceAllString(s, "_")
	s = strings.Trim(s, ".")
	if s == "" {
		return "unknown"
	}
	return s
}

var (
	ansiSeq    = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	controlSeq = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
	blankRuns  = regexp.MustCompile(`[ \t]+`)
)

// Clean strips terminal escapes and control characters and collapses runs
// of blanks so transcripts stay readable.
func Clean(s string) string {
	s = ansiSeq.ReplaceAllString(s, "")
	s = controlSeq.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = blankRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
