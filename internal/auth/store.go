// Package auth is the authentication provider: account registration and credential checks,
// signed session tokens, and the per-login Session that reports authentication state to the
// workspace.
package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonathan/pallybot/internal/db"
)

// UserStore is the account storage used by Service. *db.DB and *MemoryStore implement it.
// Lookups return a nil user without error when nothing matches.
type UserStore interface {
	CheckEmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, name, email string) (uuid.UUID, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	GetUser(ctx context.Context, userID uuid.UUID) (*db.User, error)
	GetUserByEmail(ctx context.Context, email string) (*db.User, error)
}

var (
	_ UserStore = (*db.DB)(nil)
	_ UserStore = (*MemoryStore)(nil)
)
