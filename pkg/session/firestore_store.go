package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore implements Store on Cloud Firestore. Each session is a
// single document in one collection, keyed by sessionID; owner and
// staleness lookups are Firestore queries over the userId, status and
// lastActivity fields.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	mu         sync.RWMutex
	closed     bool
}

// FirestoreConfig holds Firestore connection configuration.
type FirestoreConfig struct {
	// ProjectID is the GCP project (required).
	ProjectID string `yaml:"project_id"`
	// CredentialsFile is a path to service account credentials (optional;
	// application default credentials are used when empty).
	CredentialsFile string `yaml:"credentials_file"`
	// Collection is the session collection name (default: "sessions").
	Collection string `yaml:"collection"`
}

// NewFirestoreStore creates a Firestore-backed session store.
func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore project ID is required")
	}

	collection := cfg.Collection
	if collection == "" {
		collection = "sessions"
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	return &FirestoreStore{
		client:     client,
		collection: collection,
	}, nil
}

func (f *FirestoreStore) checkOpen() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return ErrStoreClosed
	}
	return nil
}

func (f *FirestoreStore) doc(sessionID string) *firestore.DocumentRef {
	return f.client.Collection(f.collection).Doc(sessionID)
}

// Save creates or updates a session document.
func (f *FirestoreStore) Save(ctx context.Context, s *Session) error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	if _, err := f.doc(s.SessionID).Set(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Find retrieves a session by its composite key.
func (f *FirestoreStore) Find(ctx context.Context, sessionID, userID string) (*Session, error) {
	if err := f.checkOpen(); err != nil {
		return nil, err
	}

	snap, err := f.doc(sessionID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var s Session
	if err := snap.DataTo(&s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// FindByUser returns all sessions owned by a user.
func (f *FirestoreStore) FindByUser(ctx context.Context, userID string) ([]*Session, error) {
	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	query := f.client.Collection(f.collection).Where("userId", "==", userID)
	return f.collect(ctx, query)
}

// FindStaleActive returns active sessions idle since before the cutoff.
func (f *FirestoreStore) FindStaleActive(ctx context.Context, cutoff time.Time) ([]*Session, error) {
	if err := f.checkOpen(); err != nil {
		return nil, err
	}
	query := f.client.Collection(f.collection).
		Where("status", "==", string(StatusActive)).
		Where("lastActivity", "<", cutoff)
	return f.collect(ctx, query)
}

func (f *FirestoreStore) collect(ctx context.Context, query firestore.Query) ([]*Session, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var sessions []*Session
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterate sessions: %w", err)
		}
		var s Session
		if err := snap.DataTo(&s); err != nil {
			return nil, fmt.Errorf("decode session: %w", err)
		}
		sessions = append(sessions, &s)
	}
	return sessions, nil
}

// SaveAll persists a batch of sessions with a BulkWriter.
func (f *FirestoreStore) SaveAll(ctx context.Context, sessions []*Session) error {
	if err := f.checkOpen(); err != nil {
		return err
	}

	bw := f.client.BulkWriter(ctx)
	for _, s := range sessions {
		if _, err := bw.Set(f.doc(s.SessionID), s); err != nil {
			return fmt.Errorf("queue session write: %w", err)
		}
	}
	bw.End()
	return nil
}

// Delete removes a session document if the composite key matches.
func (f *FirestoreStore) Delete(ctx context.Context, sessionID, userID string) error {
	if err := f.checkOpen(); err != nil {
		return err
	}

	_, err := f.Find(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}

	if _, err := f.doc(sessionID).Delete(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Ping verifies the Firestore connection with a cheap read.
func (f *FirestoreStore) Ping(ctx context.Context) error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	iter := f.client.Collection(f.collection).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (f *FirestoreStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.client.Close()
}
