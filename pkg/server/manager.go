package server

import (
	"sync"
	"sync/atomic"
)

// SessionManager tracks all live sessions.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	maxSessions  int
	totalCreated atomic.Uint64
	totalClosed  atomic.Uint64
	peak         int
}

// NewSessionManager creates a SessionManager. A maxSessions of zero or
// below means no limit.
func NewSessionManager(maxSessions int) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
	}
}

// Add registers a session. Reports false when the session limit is hit.
func (m *SessionManager) Add(s *Session) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return false
	}
	m.sessions[s.ID] = s
	m.totalCreated.Add(1)
	if len(m.sessions) > m.peak {
		m.peak = len(m.sessions)
	}
	return true
}

// Remove unregisters a session by id.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.totalClosed.Add(1)
	}
}

// Get returns the session by id.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Each calls fn for every live session. fn must not block.
func (m *SessionManager) Each(fn func(*Session)) {
	m.mu.RLock()
	snapshot := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		snapshot = append(snapshot, s)
	}
	m.mu.RUnlock()

	for _, s := range snapshot {
		fn(s)
	}
}

// CloseAll closes every session. Used during shutdown.
func (m *SessionManager) CloseAll() {
	m.Each(func(s *Session) { s.Close() })
}

// Stats returns lifetime counters.
func (m *SessionManager) Stats() (active int, created, closed uint64, peak int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions), m.totalCreated.Load(), m.totalClosed.Load(), m.peak
}
