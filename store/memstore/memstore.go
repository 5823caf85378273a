// Package memstore is an in-process goSession.CredentialStore for tests,
// demos and single-node development.
package memstore

import (
	"context"
	"strings"
	"sync"

	goSession "github.com/MrEthical07/goSession"
	"github.com/google/uuid"
)

// Store keeps user records in maps guarded by one mutex. Update holds the
// mutex across the mutate callback, which gives it the same isolation as a
// row lock.
type Store struct {
	mu         sync.Mutex
	byID       map[string]*goSession.UserRecord
	byUsername map[string]string
	byEmail    map[string]string
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:       make(map[string]*goSession.UserRecord),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func (s *Store) FindByUsername(_ context.Context, username string) (*goSession.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, goSession.ErrUserNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *Store) FindByID(_ context.Context, userID string) (*goSession.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[userID]
	if !ok {
		return nil, goSession.ErrUserNotFound
	}
	return u.Clone(), nil
}

// Create stores user under a fresh id. Usernames and emails are unique;
// emails compare case-insensitively.
func (s *Store) Create(_ context.Context, user goSession.UserRecord) (*goSession.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	emailKey := strings.ToLower(user.Email)
	if _, taken := s.byUsername[user.Username]; taken {
		return nil, goSession.ErrAccountExists
	}
	if _, taken := s.byEmail[emailKey]; taken {
		return nil, goSession.ErrAccountExists
	}

	stored := user.Clone()
	if stored.UserID == "" {
		stored.UserID = uuid.NewString()
	}
	if _, taken := s.byID[stored.UserID]; taken {
		return nil, goSession.ErrAccountExists
	}

	s.byID[stored.UserID] = stored
	s.byUsername[stored.Username] = stored.UserID
	s.byEmail[emailKey] = stored.UserID
	return stored.Clone(), nil
}

// Update runs mutate on a copy of the record and stores the copy only when
// mutate succeeds. Identity fields (id, username, email) are not changed by
// Update.
func (s *Store) Update(_ context.Context, userID string, mutate func(*goSession.UserRecord) error) (*goSession.UserRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[userID]
	if !ok {
		return nil, goSession.ErrUserNotFound
	}

	working := current.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	working.UserID = current.UserID
	working.Username = current.Username
	working.Email = current.Email

	s.byID[userID] = working
	return working.Clone(), nil
}

// Len returns the number of stored users.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
