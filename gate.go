package shieldauth

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SignInAttempt is one inbound authentication attempt. Provider selects
// the path: ProviderCredentials uses Email/Password, the OAuth providers
// use Identity.
type SignInAttempt struct {
	Provider string
	Email    string
	Password string
	Identity *OAuthIdentity
}

// AuthUser is the minimal identity handed to the session layer on a
// successful attempt. It never carries the password hash.
type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// SessionUser is the enriched session payload: the session's carried email
// resolved against the current database state. Assembled once per read and
// returned by value, never mutated in place.
type SessionUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"is_active"`
}

// IsAdmin reports whether this session may use admin operations
func (u *SessionUser) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// AuthorizationGate decides, per sign-in attempt, whether the attempt is
// admitted. Credential attempts go through the password verifier; OAuth
// attempts are handed to the linker for reconciliation and then admitted.
// The gate is invoked synchronously by whatever transport receives the
// credentials.
type AuthorizationGate struct {
	Users  UserStore
	Linker *IdentityLinker
	Logger *slog.Logger

	// Now is the clock; defaults to time.Now
	Now func() time.Time
}

func (g *AuthorizationGate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *AuthorizationGate) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// Authorize admits or rejects a sign-in attempt
func (g *AuthorizationGate) Authorize(attempt *SignInAttempt) (*AuthUser, *AuthError) {
	switch attempt.Provider {
	case ProviderCredentials:
		return g.authorizeCredentials(attempt.Email, attempt.Password)
	case ProviderGoogle, ProviderGithub:
		return g.authorizeOAuth(attempt.Identity)
	default:
		g.logger().Info("rejected sign-in for unrecognized provider", "provider", attempt.Provider)
		return nil, NewAuthError(ErrCodeUnknownProvider, "Sign-in provider not supported", "")
	}
}

// authorizeCredentials verifies a password attempt. Unknown email, missing
// hash and wrong password all return the same generic message so callers
// cannot enumerate accounts. Unverified and deactivated accounts get
// distinct messages.
func (g *AuthorizationGate) authorizeCredentials(email, password string) (*AuthUser, *AuthError) {
	if email == "" || password == "" {
		return nil, NewAuthError(ErrCodeMissingField, "Email and password are required", "")
	}

	user, err := g.Users.GetUserByEmail(email)
	if err != nil {
		if err != ErrUserNotFound {
			g.logger().Error("credential lookup failed", "error", err)
		}
		return nil, invalidCredentials()
	}
	if !user.HasPassword() {
		return nil, invalidCredentials()
	}
	if !user.EmailVerified() {
		return nil, NewAuthError(ErrCodeEmailUnverified, "Please verify your email before logging in", "")
	}
	if !user.IsActive {
		return nil, NewAuthError(ErrCodeAccountDisabled, "Account is deactivated. Please contact support", "")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalidCredentials()
	}

	return &AuthUser{ID: user.ID, Email: user.Email, Name: user.Name}, nil
}

// authorizeOAuth admits a provider sign-in. An existing user sharing the
// email gets the identity linked by the linker; a first-time sign-in
// creates the user here, then the linker attaches the account as usual.
// The linker's job is bookkeeping, not admission control, so only a
// missing email blocks the sign-in.
func (g *AuthorizationGate) authorizeOAuth(identity *OAuthIdentity) (*AuthUser, *AuthError) {
	if identity == nil || identity.Email == "" {
		return nil, NewAuthError(ErrCodeMissingField, "OAuth sign-in requires an email", "email")
	}

	if _, err := g.Users.GetUserByEmail(identity.Email); err == ErrUserNotFound {
		if authErr := g.createOAuthUser(identity); authErr != nil {
			return nil, authErr
		}
	} else if err != nil {
		g.logger().Error("oauth sign-in lookup failed", "error", err)
		return nil, NewAuthError(ErrCodeInternal, "Sign-in failed", "")
	}

	if err := g.Linker.Link(identity); err != nil {
		if authErr, ok := err.(*AuthError); ok {
			return nil, authErr
		}
		return nil, NewAuthError(ErrCodeInternal, "Sign-in failed", "")
	}

	// The session carries the persisted row's identity, never the raw
	// provider payload.
	user, err := g.Users.GetUserByEmail(identity.Email)
	if err != nil {
		g.logger().Error("oauth sign-in lookup failed", "error", err)
		return nil, NewAuthError(ErrCodeInternal, "Sign-in failed", "")
	}
	return &AuthUser{ID: user.ID, Email: user.Email, Name: user.Name}, nil
}

// createOAuthUser provisions the local account for a first-time provider
// sign-in. The provider has vouched for the email, so the user starts out
// verified and active. Losing a concurrent create race is fine; the
// winner's row serves the sign-in.
func (g *AuthorizationGate) createOAuthUser(identity *OAuthIdentity) *AuthError {
	now := g.now()
	user := &User{
		ID:              uuid.NewString(),
		Name:            identity.Name,
		Email:           identity.Email,
		AvatarURL:       identity.AvatarURL,
		EmailVerifiedAt: &now,
		Role:            RoleUser,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := g.Users.CreateUser(user); err != nil {
		if err == ErrEmailExists {
			return nil
		}
		g.logger().Error("oauth user insert failed", "error", err)
		return NewAuthError(ErrCodeInternal, "Sign-in failed", "")
	}
	g.logger().Info("new user created via oauth sign-in", "user_id", user.ID, "provider", identity.Provider)
	return nil
}

// EnrichSession resolves the session's carried email to the current user
// row so downstream role and active-state checks reflect database state
// rather than a login-time snapshot.
func (g *AuthorizationGate) EnrichSession(email string) (*SessionUser, error) {
	user, err := g.Users.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	return &SessionUser{
		ID:       user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Role:     user.Role,
		IsActive: user.IsActive,
	}, nil
}

func invalidCredentials() *AuthError {
	return NewAuthError(ErrCodeInvalidCreds, "Invalid email or password", "")
}
