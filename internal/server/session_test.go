package server

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCloser struct {
	n atomic.Int32
}

func (c *countingCloser) Close() error {
	c.n.Add(1)
	return nil
}

func TestSessionLifecycle(t *testing.T) {
	m := NewSessionManager(SessionManagerConfig{})
	s, err := m.Acquire("")
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)
	assert.Equal(t, "active", s.State())

	s.Drain()
	assert.Equal(t, "closed", s.State(), "idle session drains straight to closed")

	require.ErrorIs(t, s.Do(func() {}), ErrSessionClosed)
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestAcquireReturnsExistingSession(t *testing.T) {
	m := NewSessionManager(SessionManagerConfig{})
	defer func() { _ = m.Shutdown(context.Background()) }()

	a, err := m.Acquire("client-1")
	require.NoError(t, err)
	b, err := m.Acquire("client-1")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Equal(t, 1, m.Len())
}

func TestSameSessionInvocationsSerialize(t *testing.T) {
	m := NewSessionManager(SessionManagerConfig{})
	defer func() { _ = m.Shutdown(context.Background()) }()

	s, err := m.Acquire("client-1")
	require.NoError(t, err)

	var inFlight, maxInFlight atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Do(func() {
				cur := inFlight.Add(1)
				for {
					prev := maxInFlight.Load()
					if cur <= prev || maxInFlight.CompareAndSwap(prev, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				inFlight.Add(-1)
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestDrainWaitsForInFlightWork(t *testing.T) {
	m := NewSessionManager(SessionManagerConfig{Grace: time.Second})
	s, err := m.Acquire("client-1")
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		_ = s.Do(func() {
			close(started)
			<-release
		})
		close(finished)
	}()
	<-started

	s.Drain()
	assert.Equal(t, "draining", s.State())
	require.ErrorIs(t, s.Do(func() {}), ErrSessionClosed, "draining session accepts no new invocations")

	close(release)
	<-finished
	require.Eventually(t, func() bool { return s.State() == "closed" },
		time.Second, 5*time.Millisecond)
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestShutdownBlocksUntilInFlightCompletes(t *testing.T) {
	closer := &countingCloser{}
	m := NewSessionManager(SessionManagerConfig{Grace: 2 * time.Second, Closer: closer})

	s, err := m.Acquire("client-1")
	require.NoError(t, err)

	started := make(chan struct{})
	var workDone atomic.Bool
	go func() {
		_ = s.Do(func() {
			close(started)
			time.Sleep(50 * time.Millisecond)
			workDone.Store(true)
		})
	}()
	<-started

	require.NoError(t, m.Shutdown(context.Background()))
	assert.True(t, workDone.Load(), "shutdown returned before in-flight work completed")
	assert.Equal(t, int32(1), closer.n.Load())

	// A second shutdown must not release the closer again.
	require.NoError(t, m.Shutdown(context.Background()))
	assert.Equal(t, int32(1), closer.n.Load())
}

func TestShutdownForceClosesAfterGrace(t *testing.T) {
	closer := &countingCloser{}
	m := NewSessionManager(SessionManagerConfig{Grace: 30 * time.Millisecond, Closer: closer})

	s, err := m.Acquire("client-1")
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	go func() {
		_ = s.Do(func() {
			close(started)
			<-release // holds well past the grace period
		})
	}()
	<-started

	start := time.Now()
	require.NoError(t, m.Shutdown(context.Background()))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, "closed", s.State())
	assert.Equal(t, int32(1), closer.n.Load())
}

func TestAcquireFailsDuringShutdown(t *testing.T) {
	m := NewSessionManager(SessionManagerConfig{})
	require.NoError(t, m.Shutdown(context.Background()))
	_, err := m.Acquire("late")
	require.ErrorIs(t, err, ErrShuttingDown)
}

func TestIdleSessionsAreDrained(t *testing.T) {
	m := NewSessionManager(SessionManagerConfig{IdleTimeout: 20 * time.Millisecond})
	defer func() { _ = m.Shutdown(context.Background()) }()

	s, err := m.Acquire("client-1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return s.State() == "closed" },
		2*time.Second, 10*time.Millisecond)
}

func TestTerminate(t *testing.T) {
	m := NewSessionManager(SessionManagerConfig{})
	defer func() { _ = m.Shutdown(context.Background()) }()

	s, err := m.Acquire("client-1")
	require.NoError(t, err)
	assert.True(t, m.Terminate("client-1"))
	assert.Equal(t, "closed", s.State())
	assert.False(t, m.Terminate("never-seen"))
}
