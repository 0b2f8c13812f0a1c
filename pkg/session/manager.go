package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Manager owns the session lifecycle: create, fetch, resume-or-create,
// append message, terminate and expire. All store failures propagate to
// the caller; the manager performs no retries.
//
// The manager holds no per-session locks. Concurrent turns against the
// same session read-modify-write the stored document; the last writer
// wins.
type Manager struct {
	store Store
}

// NewManager creates a session manager on top of a store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Create starts a fresh active session for a user and persists it.
func (m *Manager) Create(ctx context.Context, userID string) (*Session, error) {
	s := New(userID)
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	log.Printf("session: created %s for user %s", s.SessionID, userID)
	return s, nil
}

// Get retrieves a session by its composite key. A miss is reported as
// ErrSessionNotFound, not as a failure.
func (m *Manager) Get(ctx context.Context, sessionID, userID string) (*Session, error) {
	return m.store.Find(ctx, sessionID, userID)
}

// GetOrCreate resumes an existing session when sessionID is set and
// resolves for this user; otherwise it creates a new one. An existing
// session always takes precedence over creation.
func (m *Manager) GetOrCreate(ctx context.Context, sessionID, userID string) (*Session, error) {
	if sessionID != "" {
		s, err := m.Get(ctx, sessionID, userID)
		if err == nil {
			return s, nil
		}
		if !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
	}
	return m.Create(ctx, userID)
}

// AddMessage resolves (or creates) the session, appends the message and
// persists the updated record. This is the sole mutation path for
// conversation history, used identically for user and bot turns.
func (m *Manager) AddMessage(ctx context.Context, sessionID, userID string, msg Message) (*Session, error) {
	s, err := m.GetOrCreate(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	s.Append(msg)
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return s, nil
}

// ListByUser returns all sessions owned by a user.
func (m *Manager) ListByUser(ctx context.Context, userID string) ([]*Session, error) {
	return m.store.FindByUser(ctx, userID)
}

// Terminate marks a session terminated. A miss is a silent no-op;
// terminate is idempotent and never fails on an unknown session.
func (m *Manager) Terminate(ctx context.Context, sessionID, userID string) error {
	s, err := m.Get(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}

	s.Status = StatusTerminated
	if err := m.store.Save(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	log.Printf("session: terminated %s for user %s", sessionID, userID)
	return nil
}

// CleanupExpired marks active sessions idle since before the cutoff as
// expired. It is a maintenance sweep, run out-of-band of chat turns, and
// returns the number of sessions it retired.
func (m *Manager) CleanupExpired(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := m.store.FindStaleActive(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find stale sessions: %w", err)
	}
	if len(stale) == 0 {
		return 0, nil
	}

	for _, s := range stale {
		s.Status = StatusExpired
	}
	if err := m.store.SaveAll(ctx, stale); err != nil {
		return 0, fmt.Errorf("save expired sessions: %w", err)
	}

	log.Printf("session: marked %d sessions as expired", len(stale))
	return len(stale), nil
}
