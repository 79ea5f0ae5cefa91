// Command shieldauthd runs a standalone authentication server backed by
// PostgreSQL. All configuration comes from environment variables:
//
//	DATABASE_URL                  Postgres DSN (required)
//	SHIELDAUTH_ADDR               Listen address, default ":8080"
//	SHIELDAUTH_BASE_URL           Public base URL for email links
//	SHIELDAUTH_JWT_SECRET_KEY     Enables the JWT bearer cookie when set
//	OAUTH2_GOOGLE_CLIENT_ID       Google OAuth credentials (optional)
//	OAUTH2_GOOGLE_CLIENT_SECRET
//	OAUTH2_GOOGLE_CALLBACK_URL
//	OAUTH2_GITHUB_CLIENT_ID       GitHub OAuth credentials (optional)
//	OAUTH2_GITHUB_CLIENT_SECRET
//	OAUTH2_GITHUB_CALLBACK_URL
package main

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"gorm.io/driver/postgres"

	sa "github.com/shieldauth/shieldauth"
	saoauth2 "github.com/shieldauth/shieldauth/oauth2"
	gormstore "github.com/shieldauth/shieldauth/stores/gorm"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := gormstore.Open(postgres.Open(dsn))
	if err != nil {
		logger.Error("database open failed", "error", err)
		os.Exit(1)
	}
	if err := gormstore.AutoMigrate(db); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	users := gormstore.NewUserStore(db)
	accounts := gormstore.NewOAuthAccountStore(db)
	sessions := gormstore.NewSessionStore(db)

	baseURL := os.Getenv("SHIELDAUTH_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	tokens := &sa.TokenService{
		Store:   gormstore.NewTokenStore(db),
		Email:   &sa.ConsoleEmailSender{Logger: logger},
		BaseURL: baseURL,
		Logger:  logger,
	}
	linker := &sa.IdentityLinker{Users: users, Accounts: accounts, Logger: logger}
	gate := &sa.AuthorizationGate{Users: users, Linker: linker, Logger: logger}

	auth := sa.New("ShieldAuth")
	auth.Gate = gate
	auth.Registrar = &sa.Registrar{Users: users, Tokens: tokens, Logger: logger}
	auth.Accounts = &sa.AccountService{Users: users, Tokens: tokens, Logger: logger}
	auth.Admin = &sa.AdminService{Users: users, Sessions: sessions, Logger: logger}
	auth.Tokens = tokens
	auth.Sessions = sessions
	auth.Logger = logger

	if os.Getenv("OAUTH2_GOOGLE_CLIENT_ID") != "" {
		google := saoauth2.NewGoogleOAuth2("", "", "", auth.HandleProviderUser)
		auth.AddProvider("/google", google.Handler())
	}
	if os.Getenv("OAUTH2_GITHUB_CLIENT_ID") != "" {
		github := saoauth2.NewGithubOAuth2("", "", "", auth.HandleProviderUser)
		auth.AddProvider("/github", github.Handler())
	}

	// Hourly sweep of expired tokens across all users
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			tokens.CleanupExpiredTokens("", "")
		}
	}()

	addr := os.Getenv("SHIELDAUTH_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	mux := http.NewServeMux()
	mux.Handle("/auth/", http.StripPrefix("/auth", auth.Handler()))

	logger.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
