package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEvictor struct {
	calls atomic.Int32
	n     int
	ttl   time.Duration
}

func (c *countingEvictor) EvictIdle(ttl time.Duration) int {
	c.calls.Add(1)
	c.ttl = ttl
	return c.n
}

type fakeCleaner struct {
	age time.Duration
	n   int64
	err error
}

func (f *fakeCleaner) CleanupOldSessions(_ context.Context, age time.Duration) (int64, error) {
	f.age = age
	return f.n, f.err
}

func TestSweep(t *testing.T) {
	t.Parallel()

	ev := &countingEvictor{n: 2}
	cl := &fakeCleaner{n: 5}
	s := New(Config{IdleTTL: time.Hour, Retention: 30 * 24 * time.Hour}, ev, cl, nil)

	evicted, cleaned := s.Sweep(context.Background())
	assert.Equal(t, 2, evicted)
	assert.Equal(t, int64(5), cleaned)
	assert.Equal(t, time.Hour, ev.ttl)
	assert.Equal(t, 30*24*time.Hour, cl.age)
}

func TestSweep_CleanupErrorIsLogged(t *testing.T) {
	t.Parallel()

	s := New(Config{IdleTTL: time.Hour, Retention: time.Hour}, &countingEvictor{}, &fakeCleaner{err: errors.New("locked")}, nil)
	evicted, cleaned := s.Sweep(context.Background())
	assert.Zero(t, evicted)
	assert.Zero(t, cleaned)
}

func TestSweep_WithoutRetentionSkipsCleanup(t *testing.T) {
	t.Parallel()

	cl := &fakeCleaner{n: 9}
	_, cleaned := New(Config{IdleTTL: time.Hour}, &countingEvictor{}, cl, nil).Sweep(context.Background())
	assert.Zero(t, cleaned)
	assert.Zero(t, cl.age)
}

func TestRun_StopsWithContext(t *testing.T) {
	t.Parallel()

	ev := &countingEvictor{}
	s := New(Config{Interval: 10 * time.Millisecond, IdleTTL: time.Minute}, ev, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return ev.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
