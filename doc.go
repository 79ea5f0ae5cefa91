// Package shieldauth authenticates end users with password credentials and
// OAuth identity providers, and maintains the single-use tokens used for
// email verification and password reset.
//
// The core is built from four pieces that share a relational store:
//
// TokenService: issues, validates and consumes scoped single-use secrets.
// Tokens are opaque random values backed by verification_token rows; a new
// issuance for the same (user, type) supersedes any earlier live token.
//
// IdentityLinker: reconciles an incoming OAuth identity against the local
// user table. A user who registered with a password and later signs in with
// Google or GitHub using the same email gets the provider identity attached
// to their existing account, without creating a duplicate user.
//
// AuthorizationGate: makes the per-attempt admission decision. Credential
// attempts go through the password verifier (verified, active accounts
// only); OAuth attempts are delegated to the linker and admitted. The gate
// also produces the enriched session payload so that role and active-state
// checks always reflect current database state.
//
// Registrar, AccountService and AdminService cover the surrounding flows:
// registration with best-effort verification email, email verification and
// password reset redemption, and the admin status toggle.
//
// # Basic Usage
//
// Set up stores for users, oauth accounts, sessions, and tokens:
//
//	import (
//	    "github.com/shieldauth/shieldauth"
//	    "github.com/shieldauth/shieldauth/stores"
//	)
//
//	users := stores.NewMemoryUserStore()
//	accounts := stores.NewMemoryOAuthAccountStore()
//	sessions := stores.NewMemorySessionStore()
//	tokens := stores.NewMemoryTokenStore()
//
// Wire the core services and mount the HTTP surface:
//
//	auth := shieldauth.New("MyApp")
//	auth.Tokens = &shieldauth.TokenService{Store: tokens, Email: &shieldauth.ConsoleEmailSender{}, BaseURL: "https://myapp.example"}
//	auth.Gate = &shieldauth.AuthorizationGate{Users: users, Linker: &shieldauth.IdentityLinker{Users: users, Accounts: accounts}}
//	auth.Registrar = &shieldauth.Registrar{Users: users, Tokens: auth.Tokens}
//	http.Handle("/auth/", http.StripPrefix("/auth", auth.Handler()))
//
// For a relational deployment use the gorm stores in stores/gorm instead.
package shieldauth
