package client

import (
	"net/http"
)

// TokenSource supplies the bearer token to attach to a request. Returning
// an empty token sends the request unauthenticated.
type TokenSource func() (string, error)

// AuthTransport wraps an http.RoundTripper to add Authorization headers.
// The token is fetched per request so every call carries the freshest
// stored credential.
type AuthTransport struct {
	Base   http.RoundTripper
	Source TokenSource
}

// RoundTrip implements http.RoundTripper
func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var token string
	if t.Source != nil {
		var err error
		if token, err = t.Source(); err != nil {
			return nil, err
		}
	}

	if token != "" {
		// Clone the request to avoid mutating the original
		req2 := req.Clone(req.Context())
		req2.Header.Set("Authorization", "Bearer "+token)
		req = req2
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(req)
}

// NewStaticAuthTransport creates an AuthTransport that attaches a fixed token
func NewStaticAuthTransport(token string) *AuthTransport {
	return &AuthTransport{
		Source: func() (string, error) { return token, nil },
	}
}
