//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/google/uuid"
)

// CreateUserRequest represents the request to register a new account with password authentication.
type CreateUserRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest represents the login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// User represents an account for API responses. The password hash never leaves the store.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionUser is the identity carried by an authenticated session. All fields are optional.
type SessionUser struct {
	ID          uuid.UUID  `json:"id"`
	DisplayName string     `json:"display_name,omitempty"`
	Email       string     `json:"email,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// Label is the name shown in the workspace header: display name, then email, then "User".
func (u *SessionUser) Label() string {
	if u == nil {
		return "User"
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	if u.Email != "" {
		return u.Email
	}
	return "User"
}

// MemberSince formats the account creation date for the settings tab, or "N/A".
func (u *SessionUser) MemberSince() string {
	if u == nil || u.CreatedAt == nil || u.CreatedAt.IsZero() {
		return "N/A"
	}
	return u.CreatedAt.Format("2006-01-02")
}

// ToSessionUser converts an account into the identity carried by a session.
func (u *User) ToSessionUser() *SessionUser {
	if u == nil {
		return nil
	}
	su := &SessionUser{
		ID:          u.ID,
		DisplayName: u.Name,
		Email:       u.Email,
	}
	if !u.CreatedAt.IsZero() {
		created := u.CreatedAt
		su.CreatedAt = &created
	}
	return su
}

// LoginResponse represents the login/register response with user data and authentication token.
type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// Validate validates the CreateUserRequest using the validator.
func (r *CreateUserRequest) Validate() error {
	return Validator().Struct(r)
}

// Validate validates the LoginRequest using the validator.
func (r *LoginRequest) Validate() error {
	return Validator().Struct(r)
}
