package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager owns at most one live Session per attempt in this process. A
// second tab or reconnect for the same attempt gets the existing session
// rather than a competing copy; committed sessions are evicted so the next
// load produces a fresh read-only review session.
type Manager struct {
	mu       sync.Mutex
	loader   *Loader
	sessions map[uuid.UUID]*Session
	log      zerolog.Logger
}

func NewManager(loader *Loader, log zerolog.Logger) *Manager {
	return &Manager{
		loader:   loader,
		sessions: make(map[uuid.UUID]*Session),
		log:      log.With().Str("component", "session_manager").Logger(),
	}
}

// Acquire returns the live session for (assessment, learner), loading one if
// none is active. A newly loaded open session has its clock started before
// it is handed out; review sessions are returned directly and never cached.
func (m *Manager) Acquire(ctx context.Context, assessmentID uuid.UUID, learnerID int, start bool) (*Session, error) {
	m.mu.Lock()
	for _, s := range m.sessions {
		if s.attempt.AssessmentID == assessmentID && s.attempt.LearnerID == learnerID && !s.Committed() {
			m.mu.Unlock()
			return s, nil
		}
	}
	m.mu.Unlock()

	s, err := m.loader.Load(ctx, assessmentID, learnerID, start)
	if err != nil {
		return nil, err
	}
	if s.Committed() {
		return s, nil
	}

	m.mu.Lock()
	// Another goroutine may have loaded the same attempt while we were.
	if existing, ok := m.sessions[s.attempt.ID]; ok && !existing.Committed() {
		m.mu.Unlock()
		return existing, nil
	}
	attemptID := s.attempt.ID
	s.onCommitted = func() { m.evict(attemptID) }
	m.sessions[attemptID] = s
	m.mu.Unlock()

	s.StartClock()
	m.log.Debug().Str("attempt_id", attemptID.String()).Msg("Session activated")
	return s, nil
}

// Get returns the live session for an attempt, or nil.
func (m *Manager) Get(attemptID uuid.UUID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[attemptID]
}

// Extend forwards an instructor-granted extension to the live session, if
// one is active. The stored record is updated by the caller regardless.
func (m *Manager) Extend(attemptID uuid.UUID, minutes int) {
	if s := m.Get(attemptID); s != nil {
		s.Extend(minutes)
	}
}

func (m *Manager) evict(attemptID uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, attemptID)
	m.mu.Unlock()
	m.log.Debug().Str("attempt_id", attemptID.String()).Msg("Session evicted")
}

// Shutdown stops every live clock. Open attempts stay open server-side;
// their deadlines are absolute and survive a restart.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.clock != nil {
			s.clock.Stop()
		}
	}
}
