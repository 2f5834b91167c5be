package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/pallybot/internal/db"
)

// MemoryStore keeps accounts in process memory. It backs the server when no DATABASE_URL is
// configured and the interactive CLI.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]*db.User
	byEmail map[string]uuid.UUID
	now     func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[uuid.UUID]*db.User),
		byEmail: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *MemoryStore) CheckEmailExists(_ context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[emailKey(email)]
	return ok, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, name, email string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(email)
	if _, exists := s.byEmail[key]; exists {
		return uuid.Nil, db.ErrEmailTaken
	}

	now := s.now()
	u := &db.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     key,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.users[u.ID] = u
	s.byEmail[key] = u.ID
	return u.ID, nil
}

func (s *MemoryStore) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("failed to update password: user not found: %s", userID)
	}
	u.PasswordHash = passwordHash
	u.PasswordSet = true
	u.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) GetUser(_ context.Context, userID uuid.UUID) (*db.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[emailKey(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return s.GetUser(ctx, id)
}
