package shieldauth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// TokenType scopes a single-use token to the flow that issued it
type TokenType string

const (
	TokenTypeEmailVerification TokenType = "email_verification"
	TokenTypePasswordReset     TokenType = "password_reset"
)

// Default token expiry durations
const (
	TokenExpiryEmailVerification = 24 * time.Hour
	TokenExpiryPasswordReset     = 1 * time.Hour
)

// VerificationToken is a single-use secret row. The token string itself is
// the identifier; Email duplicates the target address so redemption flows
// know which identity was proven.
type VerificationToken struct {
	Token     string    `json:"token"`
	Type      TokenType `json:"type"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the token is past its expiry at the given instant
func (t *VerificationToken) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TokenStore persists verification tokens. Implementations must treat the
// token string as unique and must make ConsumeToken a conditional delete:
// only one caller may ever observe success for a given token.
type TokenStore interface {
	// InsertToken persists a new token row
	InsertToken(token *VerificationToken) error

	// FindToken returns the row matching token AND type whose expiry is
	// after now, or ErrTokenNotFound. It never mutates state.
	FindToken(token string, tokenType TokenType, now time.Time) (*VerificationToken, error)

	// ConsumeToken atomically deletes the row matching token AND type AND
	// expiry after now, returning it. ErrTokenNotFound when no live row
	// matched, including when a concurrent consumer won the delete.
	ConsumeToken(token string, tokenType TokenType, now time.Time) (*VerificationToken, error)

	// DeleteExpiredTokens removes rows whose expiry is before now,
	// optionally narrowed by userID and/or tokenType (empty means any).
	DeleteExpiredTokens(userID string, tokenType TokenType, now time.Time) error

	// DeleteUserTokens removes all rows for (userID, tokenType) regardless
	// of expiry, so a fresh issuance supersedes earlier live tokens.
	DeleteUserTokens(userID string, tokenType TokenType) error
}

// GenerateSecureToken generates a cryptographically secure random token
// with 256 bits of entropy
func GenerateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
