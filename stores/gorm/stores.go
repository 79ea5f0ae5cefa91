//go:build !wasm
// +build !wasm

package gorm

import (
	"errors"
	"time"

	"gorm.io/gorm"

	sa "github.com/shieldauth/shieldauth"
)

// Open opens a GORM database with error translation enabled, so duplicate
// key violations surface as gorm.ErrDuplicatedKey regardless of driver.
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{TranslateError: true})
}

// AutoMigrate runs database migrations for all shieldauth tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&OAuthAccountModel{},
		&SessionModel{},
		&VerificationTokenModel{},
	)
}

// =============================================================================
// UserStore
// =============================================================================

// UserStore implements sa.UserStore using GORM
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUserByEmail(email string) (*sa.User, error) {
	var model UserModel
	if err := s.db.First(&model, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sa.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) GetUserByID(id string) (*sa.User, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sa.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) CreateUser(user *sa.User) error {
	if err := s.db.Create(UserToModel(user)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return sa.ErrEmailExists
		}
		return err
	}
	return nil
}

func (s *UserStore) UpdateUser(user *sa.User) error {
	result := s.db.Model(&UserModel{}).Where("id = ?", user.ID).Updates(map[string]any{
		"name":              user.Name,
		"email":             user.Email,
		"password_hash":     user.PasswordHash,
		"avatar_url":        user.AvatarURL,
		"email_verified_at": user.EmailVerifiedAt,
		"role":              user.Role,
		"is_active":         user.IsActive,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return sa.ErrUserNotFound
	}
	return nil
}

// =============================================================================
// OAuthAccountStore
// =============================================================================

// OAuthAccountStore implements sa.OAuthAccountStore using GORM
type OAuthAccountStore struct {
	db *gorm.DB
}

func NewOAuthAccountStore(db *gorm.DB) *OAuthAccountStore {
	return &OAuthAccountStore{db: db}
}

func (s *OAuthAccountStore) GetAccount(userID, provider string) (*sa.OAuthAccount, error) {
	var model OAuthAccountModel
	if err := s.db.First(&model, "user_id = ? AND provider = ?", userID, provider).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sa.ErrAccountNotFound
		}
		return nil, err
	}
	return model.ToAccount(), nil
}

func (s *OAuthAccountStore) CreateAccount(account *sa.OAuthAccount) error {
	if err := s.db.Create(AccountToModel(account)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return sa.ErrAccountExists
		}
		return err
	}
	return nil
}

// =============================================================================
// SessionStore
// =============================================================================

// SessionStore implements sa.SessionStore using GORM
type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) CreateSession(session *sa.Session) error {
	return s.db.Create(SessionToModel(session)).Error
}

func (s *SessionStore) DeleteUserSessions(userID string) error {
	return s.db.Delete(&SessionModel{}, "user_id = ?", userID).Error
}

// =============================================================================
// TokenStore
// =============================================================================

// TokenStore implements sa.TokenStore using GORM
type TokenStore struct {
	db *gorm.DB
}

func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) InsertToken(token *sa.VerificationToken) error {
	return s.db.Create(TokenToModel(token)).Error
}

func (s *TokenStore) FindToken(token string, tokenType sa.TokenType, now time.Time) (*sa.VerificationToken, error) {
	var model VerificationTokenModel
	err := s.db.First(&model, "token = ? AND type = ? AND expires_at > ?", token, tokenType, now).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sa.ErrTokenNotFound
		}
		return nil, err
	}
	return model.ToToken(), nil
}

// ConsumeToken removes a live token in one conditional delete. Concurrent
// callers race on the delete itself, so at most one of them gets the row.
func (s *TokenStore) ConsumeToken(token string, tokenType sa.TokenType, now time.Time) (*sa.VerificationToken, error) {
	var consumed *sa.VerificationToken
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model VerificationTokenModel
		if err := tx.First(&model, "token = ? AND type = ? AND expires_at > ?", token, tokenType, now).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return sa.ErrTokenNotFound
			}
			return err
		}
		result := tx.Delete(&VerificationTokenModel{}, "token = ? AND type = ? AND expires_at > ?", token, tokenType, now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return sa.ErrTokenNotFound
		}
		consumed = model.ToToken()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return consumed, nil
}

func (s *TokenStore) DeleteExpiredTokens(userID string, tokenType sa.TokenType, now time.Time) error {
	query := s.db.Where("expires_at < ?", now)
	if userID != "" {
		query = query.Where("user_id = ?", userID)
	}
	if tokenType != "" {
		query = query.Where("type = ?", tokenType)
	}
	return query.Delete(&VerificationTokenModel{}).Error
}

func (s *TokenStore) DeleteUserTokens(userID string, tokenType sa.TokenType) error {
	return s.db.Delete(&VerificationTokenModel{}, "user_id = ? AND type = ?", userID, tokenType).Error
}
