// Package gateway is the public edge of the platform: it authenticates
// users, rate limits clients, and proxies authorized traffic to the
// session and NLU services with the caller's identity stamped on the
// X-User-Id header.
package gateway

import (
	"errors"
	"log"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
)

// UserStore holds registered users with bcrypt password hashes. It is
// in-memory, users do not survive a restart.
type UserStore struct {
	mu    sync.RWMutex
	users map[string][]byte
}

// NewUserStore creates a store seeded with the demo user.
func NewUserStore() *UserStore {
	s := &UserStore{users: make(map[string][]byte)}
	if err := s.Register("demo", "password123"); err != nil {
		panic(err)
	}
	return s
}

// Register adds a user. Registering an existing username fails with
// ErrUserExists.
func (s *UserStore) Register(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return ErrUserExists
	}
	s.users[username] = hash
	log.Printf("gateway: user registered: %s", username)
	return nil
}

// Authenticate checks a username/password pair. Unknown users and bad
// passwords both return ErrInvalidCredentials.
func (s *UserStore) Authenticate(username, password string) error {
	s.mu.RLock()
	hash, ok := s.users[username]
	s.mu.RUnlock()

	if !ok {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
