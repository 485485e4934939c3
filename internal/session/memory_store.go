package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// sweepInterval bounds how often Create scans for expired sessions.
const sweepInterval = time.Minute

// MemoryStore keeps sessions in process memory. It is used when no Redis
// address is configured and in tests. Expired sessions are evicted on lookup
// and by a sweep that Create runs at most once per sweepInterval.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]Session
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session), now: time.Now}
}

func (m *MemoryStore) Create(_ context.Context, s Session) error {
	if s.ID == "" {
		return fmt.Errorf("session: missing session id")
	}
	if !s.ExpiresAt.After(m.now()) {
		return fmt.Errorf("session: expires_at must be in the future")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	m.sessions[s.ID] = clone(s)
	return nil
}

func (m *MemoryStore) sweepLocked() {
	now := m.now()
	if now.Sub(m.lastSweep) < sweepInterval {
		return
	}
	m.lastSweep = now
	for id, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, id)
		}
	}
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	if s.Expired(m.now()) {
		delete(m.sessions, sessionID)
		return nil, nil
	}
	c := clone(s)
	return &c, nil
}

func (m *MemoryStore) Update(_ context.Context, s Session) error {
	if s.ID == "" {
		return fmt.Errorf("session: missing session id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Expired(m.now()) {
		delete(m.sessions, s.ID)
		return nil
	}
	m.sessions[s.ID] = clone(s)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// clone copies the flash slice so callers never share it with the store.
func clone(s Session) Session {
	if s.Flashes != nil {
		s.Flashes = append([]Flash(nil), s.Flashes...)
	}
	return s
}
