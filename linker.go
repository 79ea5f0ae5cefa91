package shieldauth

import (
	"log/slog"
	"time"
)

// OAuthIdentity is the reconciliation input handed over by a provider
// after a successful exchange: who the provider says this is, plus the
// opaque token material to persist on the account link.
type OAuthIdentity struct {
	Provider          string
	ProviderAccountID string
	Email             string
	Name              string
	AvatarURL         string

	AccessToken  string
	RefreshToken string
	IDToken      string
	TokenType    string
	Scope        string
	SessionState string
	ExpiresAt    int64
}

// IdentityLinker reconciles an incoming OAuth identity against the local
// user table. Linking is bookkeeping around an already-authenticated
// provider sign-in, so every failure past the email check is logged and
// swallowed rather than blocking the login.
type IdentityLinker struct {
	Users    UserStore
	Accounts OAuthAccountStore
	Logger   *slog.Logger

	// Now is the clock; defaults to time.Now
	Now func() time.Time
}

func (l *IdentityLinker) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *IdentityLinker) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// Link attaches the provider identity to an existing user sharing the same
// email, if there is one. When no local user exists the adapter's default
// create path takes over and Link does nothing. The only hard failure is a
// missing email: without an anchor there is nothing to reconcile against.
func (l *IdentityLinker) Link(identity *OAuthIdentity) error {
	if identity == nil || identity.Email == "" {
		return NewAuthError(ErrCodeMissingField, "OAuth identity has no email", "email")
	}

	existing, err := l.Users.GetUserByEmail(identity.Email)
	if err != nil {
		if err == ErrUserNotFound {
			l.logger().Info("no local account, adapter will create user", "provider", identity.Provider)
			return nil
		}
		l.logger().Error("linking lookup failed, sign-in allowed anyway", "provider", identity.Provider, "error", err)
		return nil
	}

	l.linkAccount(existing, identity)
	l.refreshProfile(existing, identity)
	return nil
}

// linkAccount inserts the provider link unless one already exists for this
// user and provider (idempotent).
func (l *IdentityLinker) linkAccount(user *User, identity *OAuthIdentity) {
	_, err := l.Accounts.GetAccount(user.ID, identity.Provider)
	if err == nil {
		return
	}
	if err != ErrAccountNotFound {
		l.logger().Error("account lookup failed, skipping link", "user_id", user.ID, "provider", identity.Provider, "error", err)
		return
	}

	account := &OAuthAccount{
		UserID:            user.ID,
		Type:              "oauth",
		Provider:          identity.Provider,
		ProviderAccountID: identity.ProviderAccountID,
		RefreshToken:      identity.RefreshToken,
		AccessToken:       identity.AccessToken,
		ExpiresAt:         identity.ExpiresAt,
		TokenType:         identity.TokenType,
		Scope:             identity.Scope,
		IDToken:           identity.IDToken,
		SessionState:      identity.SessionState,
		CreatedAt:         l.now(),
	}
	if err := l.Accounts.CreateAccount(account); err != nil {
		if err == ErrAccountExists {
			return
		}
		l.logger().Error("account link failed, sign-in allowed anyway", "user_id", user.ID, "provider", identity.Provider, "error", err)
		return
	}
	l.logger().Info("linked provider account to existing user", "user_id", user.ID, "provider", identity.Provider)
}

// refreshProfile treats the provider sign-in as email-ownership proof and
// copies profile data onto the user: name only when previously unset,
// avatar whenever the provider supplied one.
func (l *IdentityLinker) refreshProfile(user *User, identity *OAuthIdentity) {
	now := l.now()
	user.EmailVerifiedAt = &now
	if user.Name == "" {
		user.Name = identity.Name
	}
	if identity.AvatarURL != "" {
		user.AvatarURL = identity.AvatarURL
	}
	user.UpdatedAt = now

	if err := l.Users.UpdateUser(user); err != nil {
		l.logger().Error("profile refresh failed, sign-in allowed anyway", "user_id", user.ID, "error", err)
		return
	}
	l.logger().Info("refreshed existing user from provider profile", "user_id", user.ID, "provider", identity.Provider)
}
