package shieldauth

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// PasswordResetOutcome reports a reset-email request: whether the message
// went out and where the caller should navigate next.
type PasswordResetOutcome struct {
	EmailSent   bool   `json:"email_sent"`
	RedirectURL string `json:"redirect_url"`
}

// AccountService redeems single-use tokens against account state: email
// verification and password reset, plus the authenticated request that
// starts a password change.
type AccountService struct {
	Users  UserStore
	Tokens *TokenService
	Logger *slog.Logger

	// CheckEmailURL is the page reset requests redirect to. Defaults to
	// "/auth/check-email".
	CheckEmailURL string

	// Now is the clock; defaults to time.Now
	Now func() time.Time
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AccountService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *AccountService) checkEmailURL() string {
	if s.CheckEmailURL != "" {
		return s.CheckEmailURL
	}
	return "/auth/check-email"
}

// VerifyEmail consumes an email-verification token and marks the owning
// user's email as proven.
func (s *AccountService) VerifyEmail(token string) *AuthError {
	consumed := s.Tokens.ConsumeToken(token, TokenTypeEmailVerification)
	if !consumed.Success {
		return NewAuthError(ErrCodeInvalidToken, "Invalid or expired token", "token")
	}

	user, err := s.Users.GetUserByID(consumed.UserID)
	if err != nil {
		if err == ErrUserNotFound {
			return NewAuthError(ErrCodeNotFound, "User not found", "")
		}
		s.logger().Error("verify email lookup failed", "user_id", consumed.UserID, "error", err)
		return NewAuthError(ErrCodeInternal, "Internal server error", "")
	}

	now := s.now()
	user.EmailVerifiedAt = &now
	user.UpdatedAt = now
	if err := s.Users.UpdateUser(user); err != nil {
		s.logger().Error("verify email update failed", "user_id", user.ID, "error", err)
		return NewAuthError(ErrCodeInternal, "Internal server error", "")
	}
	s.logger().Info("email verified", "user_id", user.ID)
	return nil
}

// RequestPasswordReset sends a reset email for the given address on behalf
// of an authenticated user. The address must belong to that user; asking
// for someone else's reset is Forbidden.
func (s *AccountService) RequestPasswordReset(current *SessionUser, email string) (*PasswordResetOutcome, *AuthError) {
	if current == nil {
		return nil, NewAuthError(ErrCodeUnauthenticated, "Authentication required", "")
	}
	if email == "" {
		return nil, NewAuthError(ErrCodeMissingField, "Email is required", "email")
	}

	user, err := s.Users.GetUserByEmail(email)
	if err != nil {
		if err == ErrUserNotFound {
			return nil, NewAuthError(ErrCodeNotFound, "User not found", "")
		}
		s.logger().Error("reset request lookup failed", "error", err)
		return nil, NewAuthError(ErrCodeInternal, "Internal server error", "")
	}
	if user.ID != current.ID {
		return nil, NewAuthError(ErrCodeForbidden, "Email does not match your account", "email")
	}

	sent := s.Tokens.SendPasswordReset(user.ID, user.Email, displayName(user))
	if !sent {
		return nil, NewAuthError(ErrCodeInternal, "Failed to send password reset email", "")
	}
	return &PasswordResetOutcome{
		EmailSent:   true,
		RedirectURL: checkEmailRedirect(s.checkEmailURL(), "password-change", email, true),
	}, nil
}

// ResetPassword consumes a password-reset token and replaces the owning
// user's password hash.
func (s *AccountService) ResetPassword(token, newPassword string) *AuthError {
	if token == "" || newPassword == "" {
		return NewAuthError(ErrCodeMissingField, "Token and password are required", "")
	}
	if len(newPassword) < MinPasswordLength {
		return NewAuthError(ErrCodeWeakPassword, fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength), "password")
	}

	consumed := s.Tokens.ConsumeToken(token, TokenTypePasswordReset)
	if !consumed.Success {
		return NewAuthError(ErrCodeInvalidToken, "Invalid or expired token", "token")
	}

	user, err := s.Users.GetUserByID(consumed.UserID)
	if err != nil {
		if err == ErrUserNotFound {
			return NewAuthError(ErrCodeNotFound, "User not found", "")
		}
		s.logger().Error("reset lookup failed", "user_id", consumed.UserID, "error", err)
		return NewAuthError(ErrCodeInternal, "Internal server error", "")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), passwordHashCost)
	if err != nil {
		s.logger().Error("password hash failed", "error", err)
		return NewAuthError(ErrCodeInternal, "Internal server error", "")
	}

	now := s.now()
	user.PasswordHash = string(hash)
	user.UpdatedAt = now
	if err := s.Users.UpdateUser(user); err != nil {
		s.logger().Error("password update failed", "user_id", user.ID, "error", err)
		return NewAuthError(ErrCodeInternal, "Internal server error", "")
	}
	s.logger().Info("password reset", "user_id", user.ID)
	return nil
}
