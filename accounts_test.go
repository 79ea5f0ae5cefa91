package shieldauth_test

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	sa "github.com/shieldauth/shieldauth"
	"github.com/shieldauth/shieldauth/stores"
)

func setupAccounts(t *testing.T) (*sa.AccountService, *sa.TokenService, *stores.MemoryUserStore, *recordingEmailSender) {
	t.Helper()
	users := stores.NewMemoryUserStore()
	email := &recordingEmailSender{}
	tokens := &sa.TokenService{
		Store:   stores.NewMemoryTokenStore(),
		Email:   email,
		BaseURL: "https://app.example.com",
	}
	svc := &sa.AccountService{Users: users, Tokens: tokens}
	return svc, tokens, users, email
}

func TestVerifyEmail(t *testing.T) {
	svc, tokens, users, _ := setupAccounts(t)
	seedUser(t, users, &sa.User{ID: "user-1", Email: "u@example.com", IsActive: true})

	token, err := tokens.CreateToken("user-1", "u@example.com", sa.TokenTypeEmailVerification, sa.TokenExpiryEmailVerification)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}

	if authErr := svc.VerifyEmail(token); authErr != nil {
		t.Fatalf("VerifyEmail failed: %v", authErr)
	}
	user, _ := users.GetUserByID("user-1")
	if !user.EmailVerified() {
		t.Error("user still unverified")
	}

	// The token is gone after use
	if authErr := svc.VerifyEmail(token); authErr == nil || authErr.Code != sa.ErrCodeInvalidToken {
		t.Errorf("expected invalid_token on reuse, got %v", authErr)
	}
}

func TestVerifyEmailRejectsBadTokens(t *testing.T) {
	svc, tokens, users, _ := setupAccounts(t)
	seedUser(t, users, &sa.User{ID: "user-1", Email: "u@example.com", IsActive: true})

	t.Run("Unknown", func(t *testing.T) {
		if authErr := svc.VerifyEmail("deadbeef"); authErr == nil || authErr.Code != sa.ErrCodeInvalidToken {
			t.Errorf("expected invalid_token, got %v", authErr)
		}
	})

	t.Run("WrongPurpose", func(t *testing.T) {
		reset, err := tokens.CreateToken("user-1", "u@example.com", sa.TokenTypePasswordReset, sa.TokenExpiryPasswordReset)
		if err != nil {
			t.Fatalf("CreateToken failed: %v", err)
		}
		if authErr := svc.VerifyEmail(reset); authErr == nil || authErr.Code != sa.ErrCodeInvalidToken {
			t.Errorf("reset token verified an email: %v", authErr)
		}
	})
}

func TestRequestPasswordReset(t *testing.T) {
	svc, _, users, email := setupAccounts(t)
	seedUser(t, users, &sa.User{ID: "user-1", Email: "u@example.com", Name: "Uma", IsActive: true})
	seedUser(t, users, &sa.User{ID: "user-2", Email: "other@example.com", IsActive: true})
	current := &sa.SessionUser{ID: "user-1", Email: "u@example.com"}

	t.Run("Unauthenticated", func(t *testing.T) {
		_, authErr := svc.RequestPasswordReset(nil, "u@example.com")
		if authErr == nil || authErr.Code != sa.ErrCodeUnauthenticated {
			t.Errorf("expected unauthenticated, got %v", authErr)
		}
	})

	t.Run("MissingEmail", func(t *testing.T) {
		_, authErr := svc.RequestPasswordReset(current, "")
		if authErr == nil || authErr.Code != sa.ErrCodeMissingField {
			t.Errorf("expected missing_field, got %v", authErr)
		}
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		_, authErr := svc.RequestPasswordReset(current, "nobody@example.com")
		if authErr == nil || authErr.Code != sa.ErrCodeNotFound {
			t.Errorf("expected not_found, got %v", authErr)
		}
	})

	t.Run("SomeoneElsesEmail", func(t *testing.T) {
		_, authErr := svc.RequestPasswordReset(current, "other@example.com")
		if authErr == nil || authErr.Code != sa.ErrCodeForbidden {
			t.Errorf("expected forbidden, got %v", authErr)
		}
	})

	t.Run("Success", func(t *testing.T) {
		outcome, authErr := svc.RequestPasswordReset(current, "u@example.com")
		if authErr != nil {
			t.Fatalf("RequestPasswordReset failed: %v", authErr)
		}
		if !outcome.EmailSent {
			t.Error("EmailSent should be true")
		}
		if want := "/auth/check-email?context=password-change&email=u%40example.com&sent=true"; outcome.RedirectURL != want {
			t.Errorf("redirect = %q, want %q", outcome.RedirectURL, want)
		}
		if len(email.resets) != 1 {
			t.Errorf("expected 1 reset email, got %d", len(email.resets))
		}
	})

	t.Run("SendFailure", func(t *testing.T) {
		email.fail = true
		defer func() { email.fail = false }()
		_, authErr := svc.RequestPasswordReset(current, "u@example.com")
		if authErr == nil || authErr.Code != sa.ErrCodeInternal {
			t.Errorf("expected internal error, got %v", authErr)
		}
	})
}

func TestResetPassword(t *testing.T) {
	svc, _, users, email := setupAccounts(t)
	seedUser(t, users, &sa.User{
		ID:           "user-1",
		Email:        "u@example.com",
		Name:         "Uma",
		PasswordHash: hashPassword(t, "old-password"),
		IsActive:     true,
	})
	current := &sa.SessionUser{ID: "user-1", Email: "u@example.com"}

	if _, authErr := svc.RequestPasswordReset(current, "u@example.com"); authErr != nil {
		t.Fatalf("RequestPasswordReset failed: %v", authErr)
	}
	link := email.resets[0]
	token := strings.TrimPrefix(link, "https://app.example.com/auth/reset-password?token=")

	t.Run("ShortPassword", func(t *testing.T) {
		if authErr := svc.ResetPassword(token, "short"); authErr == nil || authErr.Code != sa.ErrCodeWeakPassword {
			t.Errorf("expected weak_password, got %v", authErr)
		}
	})

	t.Run("MissingFields", func(t *testing.T) {
		if authErr := svc.ResetPassword("", "new-password"); authErr == nil || authErr.Code != sa.ErrCodeMissingField {
			t.Errorf("expected missing_field, got %v", authErr)
		}
	})

	t.Run("Success", func(t *testing.T) {
		if authErr := svc.ResetPassword(token, "new-password"); authErr != nil {
			t.Fatalf("ResetPassword failed: %v", authErr)
		}
		user, _ := users.GetUserByID("user-1")
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("new-password")); err != nil {
			t.Error("new password does not verify")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("old-password")); err == nil {
			t.Error("old password still verifies")
		}
	})

	t.Run("TokenSingleUse", func(t *testing.T) {
		if authErr := svc.ResetPassword(token, "another-password"); authErr == nil || authErr.Code != sa.ErrCodeInvalidToken {
			t.Errorf("expected invalid_token on reuse, got %v", authErr)
		}
	})
}

func TestResetTokenExpiresInOneHour(t *testing.T) {
	svc, tokens, users, _ := setupAccounts(t)
	clock := newFakeClock()
	tokens.Now = clock.Now
	seedUser(t, users, &sa.User{ID: "user-1", Email: "u@example.com", IsActive: true})

	token, err := tokens.CreateToken("user-1", "u@example.com", sa.TokenTypePasswordReset, sa.TokenExpiryPasswordReset)
	if err != nil {
		t.Fatalf("CreateToken failed: %v", err)
	}
	clock.Advance(61 * time.Minute)

	if authErr := svc.ResetPassword(token, "new-password"); authErr == nil || authErr.Code != sa.ErrCodeInvalidToken {
		t.Errorf("expected expired token to be rejected, got %v", authErr)
	}
}
