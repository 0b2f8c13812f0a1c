package session

import (
	"context"
	"errors"
	"time"
)

// Common errors for store operations.
var (
	// ErrSessionNotFound is returned when no session matches the
	// (sessionID, userID) composite key.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoreClosed is returned when operating on a closed store.
	ErrStoreClosed = errors.New("session store is closed")
)

// Store abstracts session persistence. Sessions are keyed by the pair
// (sessionID, userID): a session is only visible to its owning user.
// Implementations must be safe for concurrent use.
//
// Save is a whole-document upsert. Concurrent turns against the same
// session read-modify-write the document; the last writer wins.
type Store interface {
	// Save creates or updates a session record.
	Save(ctx context.Context, s *Session) error

	// Find retrieves a session by its composite key.
	// Returns ErrSessionNotFound if no session matches.
	Find(ctx context.Context, sessionID, userID string) (*Session, error)

	// FindByUser returns all sessions owned by a user, in no particular
	// order.
	FindByUser(ctx context.Context, userID string) ([]*Session, error)

	// FindStaleActive returns active sessions whose last activity is
	// before the cutoff.
	FindStaleActive(ctx context.Context, cutoff time.Time) ([]*Session, error)

	// SaveAll persists a batch of sessions.
	SaveAll(ctx context.Context, sessions []*Session) error

	// Delete removes a session record. Unused by turn orchestration;
	// sessions are normally retired via status changes.
	Delete(ctx context.Context, sessionID, userID string) error

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
