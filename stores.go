package shieldauth

import "time"

// Recognized sign-in providers
const (
	ProviderGoogle      = "google"
	ProviderGithub      = "github"
	ProviderCredentials = "credentials"
)

// Role is the coarse authorization level carried on a user record
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is a local account. Email uniquely identifies at most one user.
// PasswordHash is empty for accounts created purely through an OAuth
// provider.
type User struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	AvatarURL       string     `json:"avatar_url,omitempty"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	Role            Role       `json:"role"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HasPassword reports whether the account can authenticate with credentials
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// EmailVerified reports whether the account's email ownership has been proven
func (u *User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

// OAuthAccount links one provider identity to a user. The pair
// (Provider, ProviderAccountID) is unique, and a user holds at most one
// account per provider. The token material is persisted for adapter use
// only; the linker never validates it.
type OAuthAccount struct {
	UserID            string    `json:"user_id"`
	Type              string    `json:"type"`
	Provider          string    `json:"provider"`
	ProviderAccountID string    `json:"provider_account_id"`
	RefreshToken      string    `json:"-"`
	AccessToken       string    `json:"-"`
	ExpiresAt         int64     `json:"expires_at,omitempty"`
	TokenType         string    `json:"token_type,omitempty"`
	Scope             string    `json:"scope,omitempty"`
	IDToken           string    `json:"-"`
	SessionState      string    `json:"session_state,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// Session is a logged-in browser session. Its lifecycle is owned by the
// session adapter; the core only deletes rows when forcing a logout.
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserStore manages local user accounts
type UserStore interface {
	// GetUserByEmail returns ErrUserNotFound when no user has this email
	GetUserByEmail(email string) (*User, error)

	// GetUserByID returns ErrUserNotFound when the id is unknown
	GetUserByID(id string) (*User, error)

	// CreateUser inserts a new user. Returns ErrEmailExists when the email
	// unique constraint is violated.
	CreateUser(user *User) error

	// UpdateUser persists changes to an existing user
	UpdateUser(user *User) error
}

// OAuthAccountStore manages provider identity links
type OAuthAccountStore interface {
	// GetAccount returns ErrAccountNotFound when the user has no account
	// for this provider
	GetAccount(userID, provider string) (*OAuthAccount, error)

	// CreateAccount inserts a new link. Returns ErrAccountExists when the
	// (provider, providerAccountId) pair is already taken.
	CreateAccount(account *OAuthAccount) error
}

// SessionStore is the slice of the session adapter the core needs:
// deleting a user's sessions logs them out everywhere.
type SessionStore interface {
	DeleteUserSessions(userID string) error
}
