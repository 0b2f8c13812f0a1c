package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store using Redis. Sessions are stored as JSON
// documents with set-based indexes per user and for the active status, so
// owner listing and the staleness sweep avoid full keyspace scans.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	mu     sync.RWMutex
	closed bool
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string `yaml:"addr"`
	// Password is the Redis password (optional).
	Password string `yaml:"password"`
	// DB is the Redis database number.
	DB int `yaml:"db"`
	// Prefix is the key prefix for all session keys (default: "chatgo:session:").
	Prefix string `yaml:"prefix"`
	// SessionTTL is the record expiry duration (0 = never expire).
	SessionTTL Duration `yaml:"session_ttl"`
	// PoolSize is the connection pool size (default: 10).
	PoolSize int `yaml:"pool_size"`
}

// NewRedisStore creates a new Redis session store and verifies connectivity.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "chatgo:session:"
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    cfg.SessionTTL.Std(),
	}, nil
}

// NewRedisStoreFromClient creates a Redis store from an existing client.
// This is useful for testing with miniredis.
func NewRedisStoreFromClient(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "chatgo:session:"
	}
	return &RedisStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Key helpers
func (r *RedisStore) docKey(sessionID string) string {
	return r.prefix + "doc:" + sessionID
}

func (r *RedisStore) userIndexKey(userID string) string {
	return r.prefix + "user:" + userID
}

func (r *RedisStore) activeIndexKey() string {
	return r.prefix + "status:active"
}

func (r *RedisStore) checkOpen() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrStoreClosed
	}
	return nil
}

// Save creates or updates a session record and maintains the indexes.
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.docKey(s.SessionID), data, r.ttl)
	pipe.SAdd(ctx, r.userIndexKey(s.UserID), s.SessionID)
	if s.Status == StatusActive {
		pipe.SAdd(ctx, r.activeIndexKey(), s.SessionID)
	} else {
		pipe.SRem(ctx, r.activeIndexKey(), s.SessionID)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Find retrieves a session by its composite key. The document is keyed by
// sessionID alone; ownership is enforced by comparing the stored userId.
func (r *RedisStore) Find(ctx context.Context, sessionID, userID string) (*Session, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	data, err := r.client.Get(ctx, r.docKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if s.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return &s, nil
}

// FindByUser returns all sessions owned by a user via the user index.
func (r *RedisStore) FindByUser(ctx context.Context, userID string) ([]*Session, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	ids, err := r.client.SMembers(ctx, r.userIndexKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}

	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		s, err := r.Find(ctx, id, userID)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				// Document expired or was deleted, clean up the index.
				r.client.SRem(ctx, r.userIndexKey(userID), id)
				continue
			}
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// FindStaleActive returns active sessions idle since before the cutoff.
func (r *RedisStore) FindStaleActive(ctx context.Context, cutoff time.Time) ([]*Session, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	ids, err := r.client.SMembers(ctx, r.activeIndexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}

	var stale []*Session
	for _, id := range ids {
		data, err := r.client.Get(ctx, r.docKey(id)).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				r.client.SRem(ctx, r.activeIndexKey(), id)
				continue
			}
			return nil, fmt.Errorf("get session: %w", err)
		}
		var s Session
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("unmarshal session: %w", err)
		}
		if s.Status == StatusActive && s.LastActivity.Before(cutoff) {
			stale = append(stale, &s)
		}
	}
	return stale, nil
}

// SaveAll persists a batch of sessions in a single pipeline.
func (r *RedisStore) SaveAll(ctx context.Context, sessions []*Session) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	pipe := r.client.Pipeline()
	for _, s := range sessions {
		data, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		pipe.Set(ctx, r.docKey(s.SessionID), data, r.ttl)
		pipe.SAdd(ctx, r.userIndexKey(s.UserID), s.SessionID)
		if s.Status == StatusActive {
			pipe.SAdd(ctx, r.activeIndexKey(), s.SessionID)
		} else {
			pipe.SRem(ctx, r.activeIndexKey(), s.SessionID)
		}
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save sessions: %w", err)
	}
	return nil
}

// Delete removes a session document and its index entries.
func (r *RedisStore) Delete(ctx context.Context, sessionID, userID string) error {
	if err := r.checkOpen(); err != nil {
		return err
	}

	// Load first so a non-owner delete is a no-op.
	_, err := r.Find(ctx, sessionID, userID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.docKey(sessionID))
	pipe.SRem(ctx, r.userIndexKey(userID), sessionID)
	pipe.SRem(ctx, r.activeIndexKey(), sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Ping checks if the Redis connection is alive.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.client.Close()
}
