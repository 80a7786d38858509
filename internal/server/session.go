package server

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrSessionClosed is returned when an invocation reaches a session that
	// is draining or closed.
	ErrSessionClosed = errors.New("session closed")
	// ErrShuttingDown is returned when a new session is requested during
	// manager shutdown.
	ErrShuttingDown = errors.New("server shutting down")
)

type sessionState int

const (
	stateActive sessionState = iota
	stateDraining
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateActive:
		return "active"
	case stateDraining:
		return "draining"
	default:
		return "closed"
	}
}

// Session is one logical client of the streaming-http transport.
// Invocations within a session are serialized; once the session leaves the
// active state no further invocations are accepted.
type Session struct {
	ID        string
	CreatedAt time.Time

	// runMu serializes invocations belonging to this session.
	runMu sync.Mutex

	mu       sync.Mutex
	state    sessionState
	inflight int
	lastSeen time.Time
	done     chan struct{}
	onClose  func()
}

func newSession(id string, onClose func()) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		CreatedAt: now,
		lastSeen:  now,
		done:      make(chan struct{}),
		onClose:   onClose,
	}
}

// Do runs fn as one invocation, serialized against other invocations of the
// same session. It fails with ErrSessionClosed if the session no longer
// accepts work.
func (s *Session) Do(fn func()) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()
	s.runMu.Lock()
	defer s.runMu.Unlock()
	fn()
	return nil
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateActive {
		return ErrSessionClosed
	}
	s.inflight++
	s.lastSeen = time.Now()
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	s.lastSeen = time.Now()
	if s.state == stateDraining && s.inflight == 0 {
		s.close()
	}
}

// Drain stops the session from accepting invocations. The session becomes
// closed once in-flight work completes, immediately when idle.
func (s *Session) Drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateActive {
		return
	}
	s.state = stateDraining
	if s.inflight == 0 {
		s.close()
	}
}

// forceClose abandons in-flight work and closes the session.
func (s *Session) forceClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.close()
}

// close finalizes the session. Callers hold s.mu.
func (s *Session) close() {
	if s.state == stateClosed {
		return
	}
	s.state = stateClosed
	close(s.done)
	if s.onClose != nil {
		s.onClose()
	}
}

// State reports the session lifecycle state as a string.
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.String()
}

// Done is closed when the session reaches the closed state.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateActive && s.inflight == 0 && s.lastSeen.Before(cutoff)
}

// SessionManagerConfig configures a SessionManager.
type SessionManagerConfig struct {
	// Grace bounds how long Shutdown waits for draining sessions.
	Grace time.Duration
	// IdleTimeout drains sessions with no invocations for this long.
	// Zero disables idle sweeping.
	IdleTimeout time.Duration
	// Closer is released exactly once after all sessions close, typically
	// the provider client's connection resource.
	Closer io.Closer
}

const defaultGrace = 10 * time.Second

// SessionManager owns the lifecycle of streaming-http sessions: creation on
// first request, per-session serialization, idle draining, and an orderly
// drain-then-release shutdown.
type SessionManager struct {
	grace       time.Duration
	idleTimeout time.Duration
	closer      io.Closer
	closeOnce   sync.Once
	log         *logrus.Entry

	mu       sync.Mutex
	sessions map[string]*Session
	draining bool

	sweepStop chan struct{}
	sweepDone chan struct{}
}

// NewSessionManager returns a running manager. When cfg.IdleTimeout is set,
// a background sweeper drains idle sessions.
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	grace := cfg.Grace
	if grace <= 0 {
		grace = defaultGrace
	}
	m := &SessionManager{
		grace:       grace,
		idleTimeout: cfg.IdleTimeout,
		closer:      cfg.Closer,
		log:         logrus.WithField("component", "sessions"),
		sessions:    make(map[string]*Session),
		sweepStop:   make(chan struct{}),
		sweepDone:   make(chan struct{}),
	}
	if m.idleTimeout > 0 {
		go m.sweep()
	} else {
		close(m.sweepDone)
	}
	return m
}

// Acquire returns the session for id, creating it when absent. An empty id
// mints a fresh session.
func (m *SessionManager) Acquire(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.draining {
		return nil, ErrShuttingDown
	}
	if id == "" {
		id = uuid.NewString()
	}
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}
	s := newSession(id, func() { activeSessions.Dec() })
	m.sessions[id] = s
	activeSessions.Inc()
	m.log.WithField("session", id).Debug("session created")
	return s, nil
}

// Terminate drains the session with the given id, reporting whether it was
// known to the manager.
func (m *SessionManager) Terminate(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.Drain()
	m.log.WithField("session", id).Info("session terminated by client")
	return true
}

// Len reports the number of tracked sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown drains every session, waits up to the grace period for in-flight
// work, force-closes stragglers, then releases the closer. It is safe to
// call more than once.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	alreadyDraining := m.draining
	m.draining = true
	list := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		list = append(list, s)
	}
	m.mu.Unlock()

	if !alreadyDraining {
		close(m.sweepStop)
	}
	<-m.sweepDone

	for _, s := range list {
		s.Drain()
	}
	graceCtx, cancel := context.WithTimeout(ctx, m.grace)
	defer cancel()
	forced := 0
	for _, s := range list {
		select {
		case <-s.Done():
		case <-graceCtx.Done():
			s.forceClose()
			forced++
		}
	}
	if forced > 0 {
		m.log.WithField("sessions", forced).Warn("grace period elapsed; sessions force-closed")
	}
	m.closeOnce.Do(func() {
		if m.closer != nil {
			if err := m.closer.Close(); err != nil {
				m.log.WithError(err).Warn("releasing provider connections")
			}
		}
	})
	m.log.Info("session manager stopped")
	return nil
}

// sweep drains idle sessions and evicts closed ones.
func (m *SessionManager) sweep() {
	defer close(m.sweepDone)
	interval := m.idleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.sweepStop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-m.idleTimeout)
			m.mu.Lock()
			snapshot := make([]*Session, 0, len(m.sessions))
			for _, s := range m.sessions {
				snapshot = append(snapshot, s)
			}
			m.mu.Unlock()

			var evict []string
			for _, s := range snapshot {
				if s.idleSince(cutoff) {
					m.log.WithField("session", s.ID).Debug("draining idle session")
					s.Drain()
				}
				if s.State() == "closed" {
					evict = append(evict, s.ID)
				}
			}
			if len(evict) > 0 {
				m.mu.Lock()
				for _, id := range evict {
					delete(m.sessions, id)
				}
				m.mu.Unlock()
			}
		}
	}
}
