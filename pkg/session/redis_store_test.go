package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisStore(t *testing.T) *RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	store := NewRedisStoreFromClient(client, "test:", 0)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisStoreSaveAndFind(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	s := New("user-1")
	s.Append(NewMessage("hello", MessageTypeUser, "user-1"))

	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Find(ctx, s.SessionID, "user-1")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if loaded.SessionID != s.SessionID {
		t.Errorf("SessionID = %s, want %s", loaded.SessionID, s.SessionID)
	}
	if len(loaded.Messages) != 1 || loaded.Messages[0].Content != "hello" {
		t.Errorf("Messages = %+v, want single hello message", loaded.Messages)
	}

	// Ownership is part of the key.
	if _, err := store.Find(ctx, s.SessionID, "user-2"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Find() wrong owner error = %v, want ErrSessionNotFound", err)
	}
	if _, err := store.Find(ctx, "no-such-session", "user-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Find() unknown id error = %v, want ErrSessionNotFound", err)
	}
}

func TestRedisStoreFindByUser(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	var want []string
	for i := 0; i < 3; i++ {
		s := New("user-1")
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		want = append(want, s.SessionID)
	}
	other := New("user-2")
	if err := store.Save(ctx, other); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	sessions, err := store.FindByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("FindByUser() error = %v", err)
	}
	if len(sessions) != len(want) {
		t.Fatalf("FindByUser() = %d sessions, want %d", len(sessions), len(want))
	}
	for _, s := range sessions {
		if s.UserID != "user-1" {
			t.Errorf("FindByUser() returned session owned by %s", s.UserID)
		}
	}
}

func TestRedisStoreFindStaleActive(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	stale := New("user-1")
	stale.LastActivity = time.Now().UTC().Add(-48 * time.Hour)

	fresh := New("user-1")

	expired := New("user-1")
	expired.Status = StatusExpired
	expired.LastActivity = time.Now().UTC().Add(-48 * time.Hour)

	for _, s := range []*Session{stale, fresh, expired} {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	got, err := store.FindStaleActive(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("FindStaleActive() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("FindStaleActive() = %d sessions, want 1", len(got))
	}
	if got[0].SessionID != stale.SessionID {
		t.Errorf("FindStaleActive() = %s, want %s", got[0].SessionID, stale.SessionID)
	}
}

func TestRedisStoreSaveAll(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	a := New("user-1")
	b := New("user-1")
	b.Status = StatusExpired

	if err := store.SaveAll(ctx, []*Session{a, b}); err != nil {
		t.Fatalf("SaveAll() error = %v", err)
	}

	gotA, err := store.Find(ctx, a.SessionID, "user-1")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if gotA.Status != StatusActive {
		t.Errorf("a.Status = %q, want %q", gotA.Status, StatusActive)
	}

	gotB, err := store.Find(ctx, b.SessionID, "user-1")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if gotB.Status != StatusExpired {
		t.Errorf("b.Status = %q, want %q", gotB.Status, StatusExpired)
	}

	// Expired sessions leave the active index.
	active, err := store.FindStaleActive(ctx, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("FindStaleActive() error = %v", err)
	}
	for _, s := range active {
		if s.SessionID == b.SessionID {
			t.Error("expired session still in active index")
		}
	}
}

func TestRedisStoreDelete(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	s := New("user-1")
	if err := store.Save(ctx, s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Non-owner delete is a no-op.
	if err := store.Delete(ctx, s.SessionID, "user-2"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Find(ctx, s.SessionID, "user-1"); err != nil {
		t.Fatalf("Find() after non-owner delete error = %v", err)
	}

	if err := store.Delete(ctx, s.SessionID, "user-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Find(ctx, s.SessionID, "user-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Find() after delete error = %v, want ErrSessionNotFound", err)
	}

	sessions, err := store.FindByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("FindByUser() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("FindByUser() after delete = %d sessions, want 0", len(sessions))
	}
}

func TestRedisStoreClosed(t *testing.T) {
	store := setupRedisStore(t)
	ctx := context.Background()

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := store.Save(ctx, New("user-1")); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Save() after close error = %v, want ErrStoreClosed", err)
	}
	if _, err := store.Find(ctx, "id", "user-1"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Find() after close error = %v, want ErrStoreClosed", err)
	}
	if err := store.Ping(ctx); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Ping() after close error = %v, want ErrStoreClosed", err)
	}
}
