//go:build !wasm
// +build !wasm

package gorm

import (
	"time"

	sa "github.com/shieldauth/shieldauth"
)

// UserModel is the GORM model for users
type UserModel struct {
	ID              string `gorm:"primaryKey;size:64"`
	Name            string `gorm:"size:255"`
	Email           string `gorm:"size:255;uniqueIndex"`
	PasswordHash    string `gorm:"size:128"`
	AvatarURL       string `gorm:"size:1024"`
	EmailVerifiedAt *time.Time
	Role            sa.Role   `gorm:"size:32;default:user"`
	IsActive        bool      `gorm:"default:true"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *sa.User {
	return &sa.User{
		ID:              m.ID,
		Name:            m.Name,
		Email:           m.Email,
		PasswordHash:    m.PasswordHash,
		AvatarURL:       m.AvatarURL,
		EmailVerifiedAt: m.EmailVerifiedAt,
		Role:            m.Role,
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func UserToModel(u *sa.User) *UserModel {
	return &UserModel{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		PasswordHash:    u.PasswordHash,
		AvatarURL:       u.AvatarURL,
		EmailVerifiedAt: u.EmailVerifiedAt,
		Role:            u.Role,
		IsActive:        u.IsActive,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

// OAuthAccountModel is the GORM model for provider identities
type OAuthAccountModel struct {
	UserID            string    `gorm:"size:64;index"`
	Type              string    `gorm:"size:32"`
	Provider          string    `gorm:"primaryKey;size:32"`
	ProviderAccountID string    `gorm:"primaryKey;size:255"`
	RefreshToken      string    `gorm:"size:2048"`
	AccessToken       string    `gorm:"size:2048"`
	ExpiresAt         int64     `gorm:""`
	TokenType         string    `gorm:"size:64"`
	Scope             string    `gorm:"size:1024"`
	IDToken           string    `gorm:"size:4096"`
	SessionState      string    `gorm:"size:255"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
}

func (OAuthAccountModel) TableName() string {
	return "oauth_accounts"
}

func (m *OAuthAccountModel) ToAccount() *sa.OAuthAccount {
	return &sa.OAuthAccount{
		UserID:            m.UserID,
		Type:              m.Type,
		Provider:          m.Provider,
		ProviderAccountID: m.ProviderAccountID,
		RefreshToken:      m.RefreshToken,
		AccessToken:       m.AccessToken,
		ExpiresAt:         m.ExpiresAt,
		TokenType:         m.TokenType,
		Scope:             m.Scope,
		IDToken:           m.IDToken,
		SessionState:      m.SessionState,
		CreatedAt:         m.CreatedAt,
	}
}

func AccountToModel(a *sa.OAuthAccount) *OAuthAccountModel {
	return &OAuthAccountModel{
		UserID:            a.UserID,
		Type:              a.Type,
		Provider:          a.Provider,
		ProviderAccountID: a.ProviderAccountID,
		RefreshToken:      a.RefreshToken,
		AccessToken:       a.AccessToken,
		ExpiresAt:         a.ExpiresAt,
		TokenType:         a.TokenType,
		Scope:             a.Scope,
		IDToken:           a.IDToken,
		SessionState:      a.SessionState,
		CreatedAt:         a.CreatedAt,
	}
}

// SessionModel is the GORM model for server-side sessions
type SessionModel struct {
	Token     string    `gorm:"primaryKey;size:128"`
	UserID    string    `gorm:"size:64;index"`
	ExpiresAt time.Time `gorm:"index"`
}

func (SessionModel) TableName() string {
	return "sessions"
}

func (m *SessionModel) ToSession() *sa.Session {
	return &sa.Session{
		Token:     m.Token,
		UserID:    m.UserID,
		ExpiresAt: m.ExpiresAt,
	}
}

func SessionToModel(s *sa.Session) *SessionModel {
	return &SessionModel{
		Token:     s.Token,
		UserID:    s.UserID,
		ExpiresAt: s.ExpiresAt,
	}
}

// VerificationTokenModel is the GORM model for single-use tokens
type VerificationTokenModel struct {
	Token     string       `gorm:"primaryKey;size:128"`
	Type      sa.TokenType `gorm:"size:32;index"`
	UserID    string       `gorm:"size:64;index"`
	Email     string       `gorm:"size:255"`
	CreatedAt time.Time    `gorm:"autoCreateTime"`
	ExpiresAt time.Time    `gorm:"index"`
}

func (VerificationTokenModel) TableName() string {
	return "verification_tokens"
}

func (m *VerificationTokenModel) ToToken() *sa.VerificationToken {
	return &sa.VerificationToken{
		Token:     m.Token,
		Type:      m.Type,
		UserID:    m.UserID,
		Email:     m.Email,
		CreatedAt: m.CreatedAt,
		ExpiresAt: m.ExpiresAt,
	}
}

func TokenToModel(t *sa.VerificationToken) *VerificationTokenModel {
	return &VerificationTokenModel{
		Token:     t.Token,
		Type:      t.Type,
		UserID:    t.UserID,
		Email:     t.Email,
		CreatedAt: t.CreatedAt,
		ExpiresAt: t.ExpiresAt,
	}
}
