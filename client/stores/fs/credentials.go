// Package fs provides a file system-based credential store for the
// shieldauth client.
package fs

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/shieldauth/shieldauth/client"
)

// FSCredentialStore stores credentials as a JSON file on the filesystem
type FSCredentialStore struct {
	mu       sync.RWMutex
	path     string
	servers  map[string]*client.ServerCredential
	modified bool
}

// credentialFile is the JSON structure stored on disk
type credentialFile struct {
	Servers map[string]*client.ServerCredential `json:"servers"`
}

// NewFSCredentialStore creates a new FS-based credential store.
// If path is empty, defaults to ~/.config/<appName>/credentials.json
func NewFSCredentialStore(path string, appName string) (*FSCredentialStore, error) {
	if path == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("could not determine config directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
		if appName == "" {
			appName = "shieldauth"
		}
		path = filepath.Join(configDir, appName, "credentials.json")
	}

	store := &FSCredentialStore{
		path:    path,
		servers: make(map[string]*client.ServerCredential),
	}

	// Load existing credentials if file exists
	if err := store.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return store, nil
}

// load reads credentials from disk
func (s *FSCredentialStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var file credentialFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("corrupt credential file %s: %w", s.path, err)
	}

	if file.Servers != nil {
		s.servers = file.Servers
	}
	return nil
}

// normalizeServerURL canonicalizes a server URL for use as a map key
func normalizeServerURL(serverURL string) string {
	u, err := url.Parse(serverURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return serverURL
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host)
}

// GetCredential retrieves a credential for a server URL
func (s *FSCredentialStore) GetCredential(serverURL string) (*client.ServerCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.servers[normalizeServerURL(serverURL)]
	if !ok {
		return nil, nil
	}
	out := *cred
	return &out, nil
}

// SetCredential stores a credential for a server URL
func (s *FSCredentialStore) SetCredential(serverURL string, cred *client.ServerCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *cred
	s.servers[normalizeServerURL(serverURL)] = &stored
	s.modified = true
	return nil
}

// RemoveCredential removes a credential for a server URL
func (s *FSCredentialStore) RemoveCredential(serverURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalizeServerURL(serverURL)
	if _, ok := s.servers[key]; ok {
		delete(s.servers, key)
		s.modified = true
	}
	return nil
}

// ListServers returns all server URLs with stored credentials
func (s *FSCredentialStore) ListServers() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	servers := make([]string, 0, len(s.servers))
	for server := range s.servers {
		servers = append(servers, server)
	}
	return servers, nil
}

// Save persists pending changes to disk. The file is written with 0600
// permissions since it holds bearer tokens.
func (s *FSCredentialStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.modified {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("could not create credential directory: %w", err)
	}

	data, err := json.MarshalIndent(credentialFile{Servers: s.servers}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("could not write credential file: %w", err)
	}

	s.modified = false
	return nil
}
