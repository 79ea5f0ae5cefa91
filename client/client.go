package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	sa "github.com/shieldauth/shieldauth"
)

// DefaultTokenLifetime is assumed when the server's token cookie carries
// no expiry of its own.
const DefaultTokenLifetime = 30 * 24 * time.Hour

// AuthClient is an HTTP client that logs in against a shieldauth server,
// stores the issued bearer token, and attaches it to every request.
type AuthClient struct {
	mu            sync.Mutex
	serverURL     string
	store         CredentialStore
	httpClient    *http.Client
	baseTransport http.RoundTripper
	loginEndpoint string // e.g., "/auth/login"
	cookieName    string // cookie carrying the bearer token
}

// loginRequest is the request body for the login endpoint
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse is the response from the login endpoint
type loginResponse struct {
	Success bool `json:"success"`
	User    struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"user"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// ClientOption configures an AuthClient
type ClientOption func(*AuthClient)

// WithLoginEndpoint sets a custom login endpoint path
func WithLoginEndpoint(path string) ClientOption {
	return func(c *AuthClient) {
		c.loginEndpoint = path
	}
}

// WithCookieName sets the name of the cookie the server issues the bearer
// token in. Defaults to "ShieldAuthAuthToken".
func WithCookieName(name string) ClientOption {
	return func(c *AuthClient) {
		c.cookieName = name
	}
}

// WithHTTPClient sets a custom base HTTP client (for timeouts, TLS config, etc.)
// The transport from this client will be wrapped with auth handling.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *AuthClient) {
		if client != nil && client.Transport != nil {
			c.baseTransport = client.Transport
		}
		// Copy timeout and other settings
		if client != nil {
			c.httpClient.Timeout = client.Timeout
			c.httpClient.CheckRedirect = client.CheckRedirect
			c.httpClient.Jar = client.Jar
		}
	}
}

// WithTransport sets a custom base transport (for connection pooling, proxies, etc.)
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *AuthClient) {
		c.baseTransport = transport
	}
}

// NewAuthClient creates a new authenticated HTTP client for a server
func NewAuthClient(serverURL string, store CredentialStore, opts ...ClientOption) *AuthClient {
	// Normalize server URL
	u, err := url.Parse(serverURL)
	if err == nil && u.Scheme != "" && u.Host != "" {
		serverURL = fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	}

	c := &AuthClient{
		serverURL:     serverURL,
		store:         store,
		httpClient:    &http.Client{},
		baseTransport: http.DefaultTransport,
		loginEndpoint: "/auth/login",
		cookieName:    "ShieldAuthAuthToken",
	}

	for _, opt := range opts {
		opt(c)
	}

	// Wrap the base transport with auth handling
	c.httpClient.Transport = &AuthTransport{
		Base:   c.baseTransport,
		Source: c.GetToken,
	}

	return c
}

// HTTPClient returns the underlying HTTP client with auth handling
func (c *AuthClient) HTTPClient() *http.Client {
	return c.httpClient
}

// ServerURL returns the server URL this client is configured for
func (c *AuthClient) ServerURL() string {
	return c.serverURL
}

// GetToken returns the stored bearer token, or empty if none is live
func (c *AuthClient) GetToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cred, err := c.store.GetCredential(c.serverURL)
	if err != nil {
		return "", err
	}
	if cred == nil || cred.IsExpired() {
		return "", nil
	}
	return cred.Token, nil
}

// GetCredential returns the stored credential for this server
func (c *AuthClient) GetCredential() (*ServerCredential, error) {
	return c.store.GetCredential(c.serverURL)
}

// Login authenticates with email/password and stores the issued token
func (c *AuthClient) Login(email, password string) (*ServerCredential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	loginURL := c.serverURL + c.loginEndpoint
	jsonBody, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	// Use base transport directly so no stale token is attached
	httpClient := &http.Client{Transport: c.baseTransport}
	resp, err := httpClient.Post(loginURL, "application/json", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var login loginResponse
	if err := json.Unmarshal(body, &login); err != nil {
		return nil, fmt.Errorf("invalid response from server: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if login.Error != "" {
			return nil, fmt.Errorf("authentication failed: %s", login.Error)
		}
		return nil, fmt.Errorf("authentication failed: HTTP %d", resp.StatusCode)
	}

	cred := credentialFromResponse(resp, c.cookieName)
	if cred.Token == "" {
		return nil, fmt.Errorf("server did not issue a bearer token")
	}
	cred.UserID = login.User.ID
	cred.UserEmail = login.User.Email
	cred.UserName = login.User.Name

	if err := c.store.SetCredential(c.serverURL, cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	if err := c.store.Save(); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}

	return cred, nil
}

// Me fetches the current user as the server sees it right now
func (c *AuthClient) Me() (*sa.SessionUser, error) {
	resp, err := c.httpClient.Get(c.serverURL + "/auth/me")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("not logged in: HTTP %d", resp.StatusCode)
	}

	var payload struct {
		User *sa.SessionUser `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid response from server: %w", err)
	}
	return payload.User, nil
}

// Logout removes the credential for this server
func (c *AuthClient) Logout() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.RemoveCredential(c.serverURL); err != nil {
		return err
	}
	return c.store.Save()
}

// IsLoggedIn returns true if there is a valid (non-expired) credential
func (c *AuthClient) IsLoggedIn() bool {
	cred, err := c.store.GetCredential(c.serverURL)
	if err != nil || cred == nil {
		return false
	}
	return !cred.IsExpired()
}

// credentialFromResponse builds a credential from the token cookie on a
// login response
func credentialFromResponse(resp *http.Response, cookieName string) *ServerCredential {
	now := time.Now()
	cred := &ServerCredential{
		ExpiresAt: now.Add(DefaultTokenLifetime),
		CreatedAt: now,
	}
	for _, cookie := range resp.Cookies() {
		if cookie.Name != cookieName || cookie.Value == "" {
			continue
		}
		cred.Token = cookie.Value
		if !cookie.Expires.IsZero() {
			cred.ExpiresAt = cookie.Expires
		} else if cookie.MaxAge > 0 {
			cred.ExpiresAt = now.Add(time.Duration(cookie.MaxAge) * time.Second)
		}
		break
	}
	return cred
}
