package shieldauth

import (
	"fmt"
	"log/slog"
	"time"
)

// TokenValidation is the outcome of a non-mutating token check. Absent,
// expired and wrong-type tokens all collapse to Valid=false so callers
// cannot tell the cases apart.
type TokenValidation struct {
	Valid  bool
	UserID string
	Email  string
}

// TokenConsumption is the outcome of redeeming a token
type TokenConsumption struct {
	Success bool
	UserID  string
	Email   string
}

// TokenService owns the lifecycle of verification and password-reset
// tokens: sweep-then-insert issuance, fail-closed validation, single-use
// consumption, and advisory cleanup.
type TokenService struct {
	Store TokenStore

	// Email dispatches verification and reset messages. Optional: when nil
	// the Send* helpers report failure without issuing a token.
	Email EmailSender

	// BaseURL for generating verification/reset links
	BaseURL string

	Logger *slog.Logger

	// Now is the clock; defaults to time.Now
	Now func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *TokenService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// CreateToken issues a fresh token for (userID, type). Any expired rows
// and any earlier live token of the same purpose for this user are purged
// first, so the returned token is the only live one immediately after the
// call. The raw token value is returned to the caller and never logged.
func (s *TokenService) CreateToken(userID, email string, tokenType TokenType, ttl time.Duration) (string, error) {
	now := s.now()
	s.CleanupExpiredTokens("", "")
	if err := s.Store.DeleteUserTokens(userID, tokenType); err != nil {
		return "", fmt.Errorf("failed to supersede tokens: %w", err)
	}

	token, err := GenerateSecureToken()
	if err != nil {
		return "", err
	}

	record := &VerificationToken{
		Token:     token,
		Type:      tokenType,
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.Store.InsertToken(record); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}

	s.logger().Info("token created", "user_id", userID, "type", tokenType, "expires_at", record.ExpiresAt)
	return token, nil
}

// ValidateToken checks a token without consuming it. Fail-closed: any
// store failure yields Valid=false.
func (s *TokenService) ValidateToken(token string, tokenType TokenType) TokenValidation {
	record, err := s.Store.FindToken(token, tokenType, s.now())
	if err != nil {
		if err != ErrTokenNotFound {
			s.logger().Error("token lookup failed", "type", tokenType, "error", err)
		}
		return TokenValidation{}
	}
	return TokenValidation{Valid: true, UserID: record.UserID, Email: record.Email}
}

// ConsumeToken redeems a token. The delete is conditional on the row still
// being live, so concurrent consumers of the same token see exactly one
// success between them.
func (s *TokenService) ConsumeToken(token string, tokenType TokenType) TokenConsumption {
	record, err := s.Store.ConsumeToken(token, tokenType, s.now())
	if err != nil {
		if err != ErrTokenNotFound {
			s.logger().Error("token consume failed", "type", tokenType, "error", err)
		}
		return TokenConsumption{}
	}
	return TokenConsumption{Success: true, UserID: record.UserID, Email: record.Email}
}

// CleanupExpiredTokens deletes expired rows, optionally narrowed by user
// and/or type. Housekeeping only: failures are logged and swallowed.
func (s *TokenService) CleanupExpiredTokens(userID string, tokenType TokenType) {
	if err := s.Store.DeleteExpiredTokens(userID, tokenType, s.now()); err != nil {
		s.logger().Error("token cleanup failed", "user_id", userID, "type", tokenType, "error", err)
	}
}

// SendEmailVerification creates a 24h verification token and dispatches it.
// Returns false instead of an error when either step fails so registration
// can proceed degraded.
func (s *TokenService) SendEmailVerification(userID, email, name, context string) bool {
	if s.Email == nil {
		return false
	}
	token, err := s.CreateToken(userID, email, TokenTypeEmailVerification, TokenExpiryEmailVerification)
	if err != nil {
		s.logger().Error("failed to create verification token", "user_id", userID, "error", err)
		return false
	}
	link := fmt.Sprintf("%s/auth/verify-email?token=%s", s.BaseURL, token)
	if err := s.Email.SendVerificationEmail(email, name, link, context); err != nil {
		s.logger().Error("failed to send verification email", "user_id", userID, "error", err)
		return false
	}
	return true
}

// SendPasswordReset creates a 1h reset token and dispatches it
func (s *TokenService) SendPasswordReset(userID, email, name string) bool {
	if s.Email == nil {
		return false
	}
	token, err := s.CreateToken(userID, email, TokenTypePasswordReset, TokenExpiryPasswordReset)
	if err != nil {
		s.logger().Error("failed to create reset token", "user_id", userID, "error", err)
		return false
	}
	link := fmt.Sprintf("%s/auth/reset-password?token=%s", s.BaseURL, token)
	if err := s.Email.SendPasswordResetEmail(email, name, link); err != nil {
		s.logger().Error("failed to send reset email", "user_id", userID, "error", err)
		return false
	}
	return true
}
