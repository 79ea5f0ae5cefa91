package fs_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shieldauth/shieldauth/client"
	"github.com/shieldauth/shieldauth/client/stores/fs"
)

func testCredential() *client.ServerCredential {
	now := time.Now()
	return &client.ServerCredential{
		Token:     "bearer-token",
		UserID:    "user-1",
		UserEmail: "u@example.com",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
}

func TestFSCredentialStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store, err := fs.NewFSCredentialStore(path, "")
	if err != nil {
		t.Fatalf("NewFSCredentialStore: %v", err)
	}

	if cred, err := store.GetCredential("https://api.example.com"); err != nil || cred != nil {
		t.Fatalf("empty store returned %+v, %v", cred, err)
	}

	if err := store.SetCredential("https://api.example.com", testCredential()); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A fresh store reads the persisted file
	reloaded, err := fs.NewFSCredentialStore(path, "")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	cred, err := reloaded.GetCredential("https://api.example.com")
	if err != nil || cred == nil {
		t.Fatalf("GetCredential after reload = %+v, %v", cred, err)
	}
	if cred.Token != "bearer-token" || cred.UserEmail != "u@example.com" {
		t.Errorf("unexpected credential: %+v", cred)
	}
}

func TestFSCredentialStoreNormalizesServerURL(t *testing.T) {
	store, err := fs.NewFSCredentialStore(filepath.Join(t.TempDir(), "credentials.json"), "")
	if err != nil {
		t.Fatalf("NewFSCredentialStore: %v", err)
	}

	if err := store.SetCredential("https://api.example.com/some/path", testCredential()); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}
	cred, err := store.GetCredential("https://api.example.com")
	if err != nil || cred == nil {
		t.Errorf("path suffix not normalized away: %+v, %v", cred, err)
	}
}

func TestFSCredentialStoreRemoveAndList(t *testing.T) {
	store, err := fs.NewFSCredentialStore(filepath.Join(t.TempDir(), "credentials.json"), "")
	if err != nil {
		t.Fatalf("NewFSCredentialStore: %v", err)
	}

	_ = store.SetCredential("https://one.example.com", testCredential())
	_ = store.SetCredential("https://two.example.com", testCredential())

	servers, err := store.ListServers()
	if err != nil || len(servers) != 2 {
		t.Fatalf("ListServers = %v, %v", servers, err)
	}

	if err := store.RemoveCredential("https://one.example.com"); err != nil {
		t.Fatalf("RemoveCredential: %v", err)
	}
	if cred, _ := store.GetCredential("https://one.example.com"); cred != nil {
		t.Error("removed credential still present")
	}
	if cred, _ := store.GetCredential("https://two.example.com"); cred == nil {
		t.Error("unrelated credential removed")
	}
}

func TestFSCredentialStoreFilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	store, err := fs.NewFSCredentialStore(path, "")
	if err != nil {
		t.Fatalf("NewFSCredentialStore: %v", err)
	}
	_ = store.SetCredential("https://api.example.com", testCredential())
	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("credential file mode = %o, want 600", perm)
	}
}

func TestFSCredentialStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := fs.NewFSCredentialStore(path, ""); err == nil {
		t.Error("corrupt file accepted")
	}
}
