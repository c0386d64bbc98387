package server

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrMaxSessionsReached is returned when the session limit is hit.
var ErrMaxSessionsReached = errors.New("server: maximum sessions reached")

// SessionManager tracks the live sessions by id.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	maxSessions int

	totalCreated atomic.Uint64
	totalClosed  atomic.Uint64
}

// NewSessionManager creates an empty manager. maxSessions of 0 means no
// limit.
func NewSessionManager(maxSessions int) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
	}
}

// Add registers a session. It fails once the limit is reached.
func (m *SessionManager) Add(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return ErrMaxSessionsReached
	}
	m.sessions[s.ID] = s
	m.totalCreated.Add(1)
	return nil
}

// Get returns the session with the given id, or nil.
func (m *SessionManager) Get(id string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Remove drops the session from the table. The session itself is not
// closed.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		m.totalClosed.Add(1)
	}
	m.mu.Unlock()
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Range calls fn for each live session until fn returns false.
func (m *SessionManager) Range(fn func(*Session) bool) {
	m.mu.RLock()
	snapshot := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		snapshot = append(snapshot, s)
	}
	m.mu.RUnlock()

	for _, s := range snapshot {
		if !fn(s) {
			return
		}
	}
}

// CloseAll closes every session and empties the table.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	snapshot := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		snapshot = append(snapshot, s)
	}
	m.sessions = make(map[string]*Session)
	m.totalClosed.Add(uint64(len(snapshot)))
	m.mu.Unlock()

	for _, s := range snapshot {
		s.Close()
	}
}

// ManagerStats is a point-in-time summary of session churn.
type ManagerStats struct {
	Active       int    `json:"active"`
	TotalCreated uint64 `json:"total_created"`
	TotalClosed  uint64 `json:"total_closed"`
}

// Stats returns current counters.
func (m *SessionManager) Stats() ManagerStats {
	m.mu.RLock()
	active := len(m.sessions)
	m.mu.RUnlock()
	return ManagerStats{
		Active:       active,
		TotalCreated: m.totalCreated.Load(),
		TotalClosed:  m.totalClosed.Load(),
	}
}
