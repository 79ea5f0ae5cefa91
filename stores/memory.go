// Package stores provides in-memory implementations of the shieldauth
// store interfaces, for tests and development setups. For a relational
// deployment use stores/gorm.
package stores

import (
	"sync"
	"time"

	sa "github.com/shieldauth/shieldauth"
)

// MemoryUserStore implements sa.UserStore with a mutex-guarded map
type MemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[string]*sa.User
	byEmail map[string]*sa.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:    make(map[string]*sa.User),
		byEmail: make(map[string]*sa.User),
	}
}

func (s *MemoryUserStore) GetUserByEmail(email string) (*sa.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byEmail[email]
	if !ok {
		return nil, sa.ErrUserNotFound
	}
	out := *user
	return &out, nil
}

func (s *MemoryUserStore) GetUserByID(id string) (*sa.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byID[id]
	if !ok {
		return nil, sa.ErrUserNotFound
	}
	out := *user
	return &out, nil
}

func (s *MemoryUserStore) CreateUser(user *sa.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[user.Email]; ok {
		return sa.ErrEmailExists
	}
	stored := *user
	s.byID[stored.ID] = &stored
	s.byEmail[stored.Email] = &stored
	return nil
}

func (s *MemoryUserStore) UpdateUser(user *sa.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[user.ID]
	if !ok {
		return sa.ErrUserNotFound
	}
	delete(s.byEmail, existing.Email)
	stored := *user
	s.byID[stored.ID] = &stored
	s.byEmail[stored.Email] = &stored
	return nil
}

// MemoryOAuthAccountStore implements sa.OAuthAccountStore
type MemoryOAuthAccountStore struct {
	mu       sync.RWMutex
	accounts []*sa.OAuthAccount
}

func NewMemoryOAuthAccountStore() *MemoryOAuthAccountStore {
	return &MemoryOAuthAccountStore{}
}

func (s *MemoryOAuthAccountStore) GetAccount(userID, provider string) (*sa.OAuthAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if account.UserID == userID && account.Provider == provider {
			out := *account
			return &out, nil
		}
	}
	return nil, sa.ErrAccountNotFound
}

func (s *MemoryOAuthAccountStore) CreateAccount(account *sa.OAuthAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Provider == account.Provider && existing.ProviderAccountID == account.ProviderAccountID {
			return sa.ErrAccountExists
		}
	}
	stored := *account
	s.accounts = append(s.accounts, &stored)
	return nil
}

// CountAccounts reports how many links a user holds, optionally for one
// provider. Test helper.
func (s *MemoryOAuthAccountStore) CountAccounts(userID, provider string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, account := range s.accounts {
		if account.UserID == userID && (provider == "" || account.Provider == provider) {
			count++
		}
	}
	return count
}

// MemoryTokenStore implements sa.TokenStore. ConsumeToken holds the write
// lock across lookup and delete, so it is a true conditional delete.
type MemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[string]*sa.VerificationToken
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]*sa.VerificationToken)}
}

func (s *MemoryTokenStore) InsertToken(token *sa.VerificationToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *token
	s.tokens[stored.Token] = &stored
	return nil
}

func (s *MemoryTokenStore) FindToken(token string, tokenType sa.TokenType, now time.Time) (*sa.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.tokens[token]
	if !ok || record.Type != tokenType || !record.ExpiresAt.After(now) {
		return nil, sa.ErrTokenNotFound
	}
	out := *record
	return &out, nil
}

func (s *MemoryTokenStore) ConsumeToken(token string, tokenType sa.TokenType, now time.Time) (*sa.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.tokens[token]
	if !ok || record.Type != tokenType || !record.ExpiresAt.After(now) {
		return nil, sa.ErrTokenNotFound
	}
	delete(s.tokens, token)
	out := *record
	return &out, nil
}

func (s *MemoryTokenStore) DeleteExpiredTokens(userID string, tokenType sa.TokenType, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, record := range s.tokens {
		if !record.ExpiresAt.Before(now) {
			continue
		}
		if userID != "" && record.UserID != userID {
			continue
		}
		if tokenType != "" && record.Type != tokenType {
			continue
		}
		delete(s.tokens, key)
	}
	return nil
}

func (s *MemoryTokenStore) DeleteUserTokens(userID string, tokenType sa.TokenType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, record := range s.tokens {
		if record.UserID == userID && record.Type == tokenType {
			delete(s.tokens, key)
		}
	}
	return nil
}

// MemorySessionStore implements sa.SessionStore
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions []*sa.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

// AddSession records a session row. Test helper: in deployments the
// session adapter owns this table.
func (s *MemorySessionStore) AddSession(session *sa.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *session
	s.sessions = append(s.sessions, &stored)
}

func (s *MemorySessionStore) DeleteUserSessions(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining := s.sessions[:0]
	for _, session := range s.sessions {
		if session.UserID != userID {
			remaining = append(remaining, session)
		}
	}
	s.sessions = remaining
	return nil
}

// CountSessions reports how many sessions a user holds. Test helper.
func (s *MemorySessionStore) CountSessions(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, session := range s.sessions {
		if session.UserID == userID {
			count++
		}
	}
	return count
}
