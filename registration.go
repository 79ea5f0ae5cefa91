package shieldauth

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the minimum accepted password length
const MinPasswordLength = 8

// passwordHashCost is the bcrypt work factor for stored credentials
const passwordHashCost = 12

// RegistrationOutcome is the discriminated result of a registration
// attempt: the created user (hash cleared), whether the verification email
// went out, and where the caller should navigate next. Navigation intent
// is data here, never an error.
type RegistrationOutcome struct {
	User        *User  `json:"user"`
	EmailSent   bool   `json:"email_verification_sent"`
	RedirectURL string `json:"redirect_url"`
}

// Registrar creates password-based accounts and kicks off email
// verification.
type Registrar struct {
	Users  UserStore
	Tokens *TokenService
	Logger *slog.Logger

	// CheckEmailURL is the page the outcome redirects to after signup.
	// Defaults to "/auth/check-email".
	CheckEmailURL string

	// Now is the clock; defaults to time.Now
	Now func() time.Time
}

func (r *Registrar) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Registrar) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Registrar) checkEmailURL() string {
	if r.CheckEmailURL != "" {
		return r.CheckEmailURL
	}
	return "/auth/check-email"
}

// Register validates the input, creates an unverified user and sends the
// verification email best-effort. A duplicate email is a conflict whether
// it is caught by the pre-check or by the store's unique constraint when
// two registrations race.
func (r *Registrar) Register(name, email, password string) (*RegistrationOutcome, *AuthError) {
	if name == "" || email == "" || password == "" {
		return nil, NewAuthError(ErrCodeMissingField, "Name, email, and password are required", "")
	}
	if len(password) < MinPasswordLength {
		return nil, NewAuthError(ErrCodeWeakPassword, fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength), "password")
	}

	if _, err := r.Users.GetUserByEmail(email); err == nil {
		return nil, NewAuthError(ErrCodeEmailExists, "User with this email already exists", "email")
	} else if err != ErrUserNotFound {
		r.logger().Error("registration lookup failed", "error", err)
		return nil, NewAuthError(ErrCodeInternal, "Internal server error", "")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	if err != nil {
		r.logger().Error("password hash failed", "error", err)
		return nil, NewAuthError(ErrCodeInternal, "Internal server error", "")
	}

	now := r.now()
	user := &User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.Users.CreateUser(user); err != nil {
		if err == ErrEmailExists {
			return nil, NewAuthError(ErrCodeEmailExists, "User with this email already exists", "email")
		}
		r.logger().Error("user insert failed", "error", err)
		return nil, NewAuthError(ErrCodeInternal, "Internal server error", "")
	}
	r.logger().Info("user registered", "user_id", user.ID)

	emailSent := false
	if r.Tokens != nil {
		emailSent = r.Tokens.SendEmailVerification(user.ID, user.Email, displayName(user), "registration")
	}

	created := *user
	created.PasswordHash = ""
	return &RegistrationOutcome{
		User:        &created,
		EmailSent:   emailSent,
		RedirectURL: checkEmailRedirect(r.checkEmailURL(), "registration", email, emailSent),
	}, nil
}

func displayName(u *User) string {
	if u.Name != "" {
		return u.Name
	}
	return "User"
}

func checkEmailRedirect(base, context, email string, sent bool) string {
	return fmt.Sprintf("%s?context=%s&email=%s&sent=%t", base, context, url.QueryEscape(email), sent)
}
