//go:build !wasm
// +build !wasm

// Package gorm provides GORM-based implementations of the shieldauth store
// interfaces. It supports any database that GORM supports (PostgreSQL, MySQL,
// SQLite, etc.) and is suitable for production deployments requiring
// relational database storage.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - users: User accounts with credentials and role
//   - oauth_accounts: Provider identities linked to users
//   - sessions: Server-side session rows
//   - verification_tokens: Email verification and password reset tokens
//
// # Usage
//
//	db, _ := gormstore.Open(postgres.Open(dsn))
//	userStore := gormstore.NewUserStore(db)
//	tokenStore := gormstore.NewTokenStore(db)
package gorm
