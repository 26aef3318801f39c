// Package sweeper runs the periodic housekeeping of chat sessions: idle
// sessions are dropped from memory and old sessions are removed from the
// store.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/nux-coach/internal/metrics"
)

const defaultInterval = 5 * time.Minute

// Evictor drops idle in-memory sessions.
type Evictor interface {
	EvictIdle(ttl time.Duration) int
}

// Cleaner deletes sessions that have been inactive for longer than age.
type Cleaner interface {
	CleanupOldSessions(ctx context.Context, age time.Duration) (int64, error)
}

// Config controls the sweep cadence.
type Config struct {
	Interval  time.Duration
	IdleTTL   time.Duration
	Retention time.Duration
}

// Sweeper evicts idle sessions and cleans up old ones on a ticker.
type Sweeper struct {
	cfg     Config
	evictor Evictor
	cleaner Cleaner
	metrics *metrics.Metrics
}

// New creates a sweeper. cleaner and m may be nil.
func New(cfg Config, evictor Evictor, cleaner Cleaner, m *metrics.Metrics) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	return &Sweeper{cfg: cfg, evictor: evictor, cleaner: cleaner, metrics: m}
}

// Run sweeps every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	slog.Info("Session sweeper started",
		"interval", s.cfg.Interval, "idle_ttl", s.cfg.IdleTTL, "retention", s.cfg.Retention)

	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			slog.Info("Session sweeper shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

// Sweep runs one pass and reports what it removed.
func (s *Sweeper) Sweep(ctx context.Context) (evicted int, cleaned int64) {
	if s.evictor != nil && s.cfg.IdleTTL > 0 {
		evicted = s.evictor.EvictIdle(s.cfg.IdleTTL)
		if evicted > 0 {
			slog.Info("Session sweeper evicted idle sessions", "count", evicted)
		}
	}

	if s.cleaner == nil || s.cfg.Retention <= 0 {
		return evicted, 0
	}
	cleaned, err := s.cleaner.CleanupOldSessions(ctx, s.cfg.Retention)
	if err != nil {
		if ctx.Err() != nil {
			slog.Debug("Session sweeper canceled during cleanup", "error", err)
			return evicted, 0
		}
		slog.Error("Session sweeper failed to clean up old sessions", "error", err)
		return evicted, 0
	}
	if cleaned > 0 {
		slog.Info("Session sweeper removed old sessions", "count", cleaned, "retention", s.cfg.Retention)
		if s.metrics != nil {
			s.metrics.SessionsCleanedUp.Add(float64(cleaned))
		}
	}
	return evicted, cleaned
}
