package shieldauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

type userEmailKey string

// Middleware extracts the logged-in user's email from the request: first
// from the session, then from a bearer token verified by VerifyToken.
type Middleware struct {
	// AuthTokenHeaderName is the header checked for bearer tokens.
	// Defaults to "Authorization".
	AuthTokenHeaderName string

	// AuthTokenCookieName is an optional cookie checked for bearer tokens
	AuthTokenCookieName string

	// UserParamName is the session variable and request-context key the
	// user email is stored under. Defaults to "loggedInUserEmail".
	UserParamName string

	// CallbackURLParam is the query param the login redirect carries the
	// original URL in. Defaults to "callbackURL".
	CallbackURLParam string

	// SessionGetter reads a value from the request's session
	SessionGetter func(r *http.Request, param string) any

	// GetRedirURL returns the login page to redirect to when a user is
	// required but missing. Empty means respond 401 instead.
	GetRedirURL func(r *http.Request) string

	// VerifyToken verifies a bearer token and returns the subject email
	VerifyToken func(tokenString string) (email string, err error)

	Logger *slog.Logger
}

func (m *Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

// EnsureReasonableDefaults fills in default config values
func (m *Middleware) EnsureReasonableDefaults() {
	if m.UserParamName == "" {
		m.UserParamName = "loggedInUserEmail"
	}
	if m.CallbackURLParam == "" {
		m.CallbackURLParam = "callbackURL"
	}
	if m.AuthTokenHeaderName == "" {
		m.AuthTokenHeaderName = "Authorization"
	}
}

// GetLoggedInUserEmail returns the email of the logged-in user for this
// request, or "" when unauthenticated.
func (m *Middleware) GetLoggedInUserEmail(r *http.Request) string {
	if v := r.Context().Value(userEmailKey(m.UserParamName)); v != nil {
		if email, ok := v.(string); ok && email != "" {
			return email
		}
	}

	if m.SessionGetter != nil {
		if v := m.SessionGetter(r, m.UserParamName); v != nil {
			if email, ok := v.(string); ok && email != "" {
				return email
			}
		}
	}

	if m.VerifyToken == nil {
		return ""
	}
	for _, candidate := range m.bearerTokens(r) {
		email, err := m.VerifyToken(candidate)
		if err == nil && email != "" {
			return email
		}
		if err != nil {
			m.logger().Warn("bearer token rejected", "error", err)
		}
	}
	return ""
}

func (m *Middleware) bearerTokens(r *http.Request) []string {
	var tokens []string
	for _, header := range r.Header.Values(m.AuthTokenHeaderName) {
		tokens = append(tokens, strings.TrimPrefix(header, "Bearer "))
	}
	if m.AuthTokenCookieName != "" {
		for _, cookie := range r.Cookies() {
			if cookie.Name != m.AuthTokenCookieName {
				continue
			}
			if cookie.Value != "" {
				tokens = append(tokens, cookie.Value)
			}
		}
	}
	return tokens
}

// ExtractUser resolves the logged-in user email and stores it on the
// request context for downstream handlers. It never redirects.
func (m *Middleware) ExtractUser(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := m.GetLoggedInUserEmail(r)
		next.ServeHTTP(w, m.withUserEmail(email, r))
	})
}

// EnsureUser is ExtractUser plus enforcement: requests without a user get
// redirected to the login page, or a 401 when no redirect is configured.
func (m *Middleware) EnsureUser(next http.Handler) http.Handler {
	m.EnsureReasonableDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := m.GetLoggedInUserEmail(r)
		if email == "" {
			redirURL := ""
			if m.GetRedirURL != nil {
				redirURL = m.GetRedirURL(r)
			}
			if redirURL != "" {
				encoded := strings.Replace(url.QueryEscape(r.URL.Path), "+", "%20", -1)
				http.Redirect(w, r, fmt.Sprintf("%s?%s=%s", redirURL, m.CallbackURLParam, encoded), http.StatusFound)
			} else {
				http.Error(w, "Login Failed", http.StatusUnauthorized)
			}
			return
		}
		next.ServeHTTP(w, m.withUserEmail(email, r))
	})
}

func (m *Middleware) withUserEmail(email string, r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), userEmailKey(m.UserParamName), email)
	return r.WithContext(ctx)
}
