package shieldauth_test

import (
	"errors"
	"testing"

	sa "github.com/shieldauth/shieldauth"
	"github.com/shieldauth/shieldauth/stores"
)

// failingUserStore wraps a store and fails selected operations
type failingUserStore struct {
	sa.UserStore
	failGet    bool
	failUpdate bool
}

var errDown = errors.New("database unavailable")

func (s *failingUserStore) GetUserByEmail(email string) (*sa.User, error) {
	if s.failGet {
		return nil, errDown
	}
	return s.UserStore.GetUserByEmail(email)
}

func (s *failingUserStore) UpdateUser(user *sa.User) error {
	if s.failUpdate {
		return errDown
	}
	return s.UserStore.UpdateUser(user)
}

type failingAccountStore struct {
	sa.OAuthAccountStore
	failCreate bool
}

func (s *failingAccountStore) CreateAccount(account *sa.OAuthAccount) error {
	if s.failCreate {
		return errDown
	}
	return s.OAuthAccountStore.CreateAccount(account)
}

func googleIdentity() *sa.OAuthIdentity {
	return &sa.OAuthIdentity{
		Provider:          sa.ProviderGoogle,
		ProviderAccountID: "g-123",
		Email:             "u@example.com",
		Name:              "Uma Google",
		AvatarURL:         "https://lh3.example.com/photo.jpg",
		AccessToken:       "ya29.token",
	}
}

func setupLinker(t *testing.T) (*sa.IdentityLinker, *stores.MemoryUserStore, *stores.MemoryOAuthAccountStore, *fakeClock) {
	t.Helper()
	users := stores.NewMemoryUserStore()
	accounts := stores.NewMemoryOAuthAccountStore()
	clock := newFakeClock()
	linker := &sa.IdentityLinker{Users: users, Accounts: accounts, Now: clock.Now}
	return linker, users, accounts, clock
}

func seedUser(t *testing.T, users sa.UserStore, user *sa.User) *sa.User {
	t.Helper()
	if user.ID == "" {
		user.ID = "user-1"
	}
	if err := users.CreateUser(user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestLinkRequiresEmail(t *testing.T) {
	linker, _, _, _ := setupLinker(t)

	for _, identity := range []*sa.OAuthIdentity{nil, {Provider: sa.ProviderGoogle, ProviderAccountID: "g-1"}} {
		err := linker.Link(identity)
		if err == nil {
			t.Fatal("expected an error for identity without email")
		}
		var authErr *sa.AuthError
		if !errors.As(err, &authErr) || authErr.Code != sa.ErrCodeMissingField {
			t.Errorf("expected missing_field error, got %v", err)
		}
	}
}

func TestLinkNoLocalUserIsNoop(t *testing.T) {
	linker, _, accounts, _ := setupLinker(t)

	if err := linker.Link(googleIdentity()); err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	if n := accounts.CountAccounts("", ""); n != 0 {
		t.Errorf("expected no accounts created, got %d", n)
	}
}

func TestLinkAttachesAccountToExistingUser(t *testing.T) {
	linker, users, accounts, clock := setupLinker(t)
	seedUser(t, users, &sa.User{ID: "user-1", Email: "u@example.com", Name: "Uma", IsActive: true})

	if err := linker.Link(googleIdentity()); err != nil {
		t.Fatalf("Link failed: %v", err)
	}

	account, err := accounts.GetAccount("user-1", sa.ProviderGoogle)
	if err != nil {
		t.Fatalf("account not linked: %v", err)
	}
	if account.ProviderAccountID != "g-123" || account.Type != "oauth" {
		t.Errorf("unexpected account: %+v", account)
	}

	user, _ := users.GetUserByID("user-1")
	if user.EmailVerifiedAt == nil || !user.EmailVerifiedAt.Equal(clock.Now()) {
		t.Error("linking should mark the email verified")
	}
}

func TestLinkIsIdempotentPerProvider(t *testing.T) {
	linker, users, accounts, _ := setupLinker(t)
	seedUser(t, users, &sa.User{ID: "user-1", Email: "u@example.com", IsActive: true})

	for i := 0; i < 3; i++ {
		if err := linker.Link(googleIdentity()); err != nil {
			t.Fatalf("Link %d failed: %v", i, err)
		}
	}
	if n := accounts.CountAccounts("user-1", sa.ProviderGoogle); n != 1 {
		t.Errorf("expected 1 google link, got %d", n)
	}

	// A second provider adds a second link
	github := googleIdentity()
	github.Provider = sa.ProviderGithub
	github.ProviderAccountID = "12345"
	if err := linker.Link(github); err != nil {
		t.Fatalf("Link github failed: %v", err)
	}
	if n := accounts.CountAccounts("user-1", ""); n != 2 {
		t.Errorf("expected 2 links total, got %d", n)
	}
}

func TestLinkProfileRefreshRules(t *testing.T) {
	t.Run("NameFilledOnlyIfEmpty", func(t *testing.T) {
		linker, users, _, _ := setupLinker(t)
		seedUser(t, users, &sa.User{ID: "user-1", Email: "u@example.com", Name: "Chosen Name", IsActive: true})

		if err := linker.Link(googleIdentity()); err != nil {
			t.Fatalf("Link failed: %v", err)
		}
		user, _ := users.GetUserByID("user-1")
		if user.Name != "Chosen Name" {
			t.Errorf("provider name overwrote user's name: %q", user.Name)
		}
		if user.AvatarURL != "https://lh3.example.com/photo.jpg" {
			t.Errorf("avatar not refreshed: %q", user.AvatarURL)
		}
	})

	t.Run("EmptyNameTakesProviderName", func(t *testing.T) {
		linker, users, _, _ := setupLinker(t)
		seedUser(t, users, &sa.User{ID: "user-1", Email: "u@example.com", IsActive: true})

		if err := linker.Link(googleIdentity()); err != nil {
			t.Fatalf("Link failed: %v", err)
		}
		user, _ := users.GetUserByID("user-1")
		if user.Name != "Uma Google" {
			t.Errorf("empty name not filled from provider: %q", user.Name)
		}
	})

	t.Run("MissingAvatarKeepsExisting", func(t *testing.T) {
		linker, users, _, _ := setupLinker(t)
		seedUser(t, users, &sa.User{ID: "user-1", Email: "u@example.com", AvatarURL: "https://old.example.com/a.png", IsActive: true})

		identity := googleIdentity()
		identity.AvatarURL = ""
		if err := linker.Link(identity); err != nil {
			t.Fatalf("Link failed: %v", err)
		}
		user, _ := users.GetUserByID("user-1")
		if user.AvatarURL != "https://old.example.com/a.png" {
			t.Errorf("existing avatar was cleared: %q", user.AvatarURL)
		}
	})
}

func TestLinkSwallowsStoreFailures(t *testing.T) {
	t.Run("LookupFailure", func(t *testing.T) {
		linker, users, _, _ := setupLinker(t)
		linker.Users = &failingUserStore{UserStore: users, failGet: true}
		if err := linker.Link(googleIdentity()); err != nil {
			t.Errorf("lookup failure should not block sign-in: %v", err)
		}
	})

	t.Run("LinkInsertFailure", func(t *testing.T) {
		linker, users, accounts, _ := setupLinker(t)
		seedUser(t, users, &sa.User{ID: "user-1", Email: "u@example.com", IsActive: true})
		linker.Accounts = &failingAccountStore{OAuthAccountStore: accounts, failCreate: true}
		if err := linker.Link(googleIdentity()); err != nil {
			t.Errorf("insert failure should not block sign-in: %v", err)
		}
	})

	t.Run("UpdateFailure", func(t *testing.T) {
		linker, users, _, _ := setupLinker(t)
		seedUser(t, users, &sa.User{ID: "user-1", Email: "u@example.com", IsActive: true})
		linker.Users = &failingUserStore{UserStore: users, failUpdate: true}
		if err := linker.Link(googleIdentity()); err != nil {
			t.Errorf("update failure should not block sign-in: %v", err)
		}
	})

	t.Run("DuplicateInsertRace", func(t *testing.T) {
		linker, users, accounts, _ := setupLinker(t)
		seedUser(t, users, &sa.User{ID: "user-1", Email: "u@example.com", IsActive: true})
		// Pre-insert the same link under a different user to force the
		// unique violation path.
		_ = accounts.CreateAccount(&sa.OAuthAccount{UserID: "user-2", Provider: sa.ProviderGoogle, ProviderAccountID: "g-123"})
		if err := linker.Link(googleIdentity()); err != nil {
			t.Errorf("duplicate link should not block sign-in: %v", err)
		}
	})
}
