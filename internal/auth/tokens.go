package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonathan/pallybot/internal/config"
)

// Claims represents JWT claims with user ID. The registered ID claim (jti) carries the
// workspace session ID.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	jwt.RegisteredClaims
}

// GetUserID returns the user ID from the claims.
func (c *Claims) GetUserID() uuid.UUID {
	return c.UserID
}

// GetSessionID returns the session ID carried in the jti claim.
func (c *Claims) GetSessionID() uuid.UUID {
	id, err := uuid.Parse(c.ID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// TokenIssuer signs and validates session tokens and tracks revoked sessions.
type TokenIssuer struct {
	config *config.JWTConfig
	now    func() time.Time

	mu      sync.Mutex
	revoked map[uuid.UUID]time.Time // session ID -> token expiry
}

// NewTokenIssuer creates a new issuer with the given configuration.
func NewTokenIssuer(cfg *config.JWTConfig) *TokenIssuer {
	return &TokenIssuer{
		config:  cfg,
		now:     time.Now,
		revoked: make(map[uuid.UUID]time.Time),
	}
}

// Issue generates a token for the given user and session and returns it with its expiry.
func (s *TokenIssuer) Issue(userID, sessionID uuid.UUID) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(time.Duration(s.config.ExpirationHours) * time.Hour)

	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Validate validates a token and returns its claims. Tokens of revoked sessions are rejected.
func (s *TokenIssuer) Validate(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, &ErrInvalidToken{Reason: "token string is empty"}
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, &ErrInvalidToken{Reason: "invalid signature", Cause: err}
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, &ErrInvalidToken{Reason: "expired", Cause: err}
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, &ErrInvalidToken{Reason: "malformed", Cause: err}
		default:
			return nil, &ErrInvalidToken{Reason: "failed to parse", Cause: err}
		}
	}
	if !token.Valid {
		return nil, &ErrInvalidToken{Reason: "not valid"}
	}

	sessionID := claims.GetSessionID()
	if sessionID == uuid.Nil {
		return nil, &ErrInvalidToken{Reason: "missing session id"}
	}
	if s.IsRevoked(sessionID) {
		return nil, &ErrInvalidToken{Reason: "session ended"}
	}

	return claims, nil
}

// Revoke rejects every token of the session from now on. expiresAt is when those tokens
// would have expired anyway; the revocation entry is dropped after it.
func (s *TokenIssuer) Revoke(sessionID uuid.UUID, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.revoked {
		if now.After(exp) {
			delete(s.revoked, id)
		}
	}
	if expiresAt.IsZero() {
		expiresAt = now.Add(time.Duration(s.config.ExpirationHours) * time.Hour)
	}
	s.revoked[sessionID] = expiresAt
}

// IsRevoked reports whether the session was revoked.
func (s *TokenIssuer) IsRevoked(sessionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[sessionID]
	return ok
}
