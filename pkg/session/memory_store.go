package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with an in-process map. It is intended for
// tests and single-node demo deployments; nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session // keyed by sessionID
	closed   bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

// Save creates or updates a session record.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	m.sessions[s.SessionID] = s.Clone()
	return nil
}

// Find retrieves a session by its composite key.
func (m *MemoryStore) Find(_ context.Context, sessionID, userID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	s, ok := m.sessions[sessionID]
	if !ok || s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

// FindByUser returns all sessions owned by a user.
func (m *MemoryStore) FindByUser(_ context.Context, userID string) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	var out []*Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

// FindStaleActive returns active sessions idle since before the cutoff.
func (m *MemoryStore) FindStaleActive(_ context.Context, cutoff time.Time) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrStoreClosed
	}
	var out []*Session
	for _, s := range m.sessions {
		if s.Status == StatusActive && s.LastActivity.Before(cutoff) {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

// SaveAll persists a batch of sessions.
func (m *MemoryStore) SaveAll(ctx context.Context, sessions []*Session) error {
	for _, s := range sessions {
		if err := m.Save(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a session record if the composite key matches.
func (m *MemoryStore) Delete(_ context.Context, sessionID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrStoreClosed
	}
	if s, ok := m.sessions[sessionID]; ok && s.UserID == userID {
		delete(m.sessions, sessionID)
	}
	return nil
}

// Ping reports whether the store is usable.
func (m *MemoryStore) Ping(context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close marks the store unusable.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
