// Package oauth2 holds the provider plumbing for Google and GitHub
// sign-in: the redirect-with-state handler, the callback that exchanges
// the code, and the userinfo fetch that turns the provider's answer into
// the profile handed back to the auth core.
package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// BaseOAuth2 carries the shared pieces of a provider handler: the
// oauth2.Config, the route mux, and the test seams for the HTTP client
// and exchange context.
type BaseOAuth2 struct {
	ClientId     string
	ClientSecret string
	CallbackURL  string

	// HandleUser is called with the token and userinfo after a successful
	// callback
	HandleUser HandleUserFunc

	// AuthFailureUrl is where failed callbacks redirect. Defaults to "/".
	AuthFailureUrl string

	// HTTPClient overrides the client used for userinfo fetches (tests)
	HTTPClient *http.Client

	oauthConfig oauth2.Config
	mux         *http.ServeMux
}

func NewBaseOAuth2(clientId, clientSecret, callbackUrl string, handleUser HandleUserFunc) *BaseOAuth2 {
	out := &BaseOAuth2{
		ClientId:       clientId,
		ClientSecret:   clientSecret,
		CallbackURL:    callbackUrl,
		HandleUser:     handleUser,
		AuthFailureUrl: "/",
		mux:            http.NewServeMux(),
		oauthConfig: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  callbackUrl,
		},
	}
	out.mux.HandleFunc("/", OauthRedirector(&out.oauthConfig))
	return out
}

// Handler returns the provider's route handler, serving the redirect at
// the mount root and the exchange at /callback/.
func (b *BaseOAuth2) Handler() http.Handler {
	return b.mux
}

// Config exposes the underlying oauth2 config for endpoint overrides
func (b *BaseOAuth2) Config() *oauth2.Config {
	return &b.oauthConfig
}

// ExchangeContext returns the context used for the code exchange. When a
// custom HTTPClient is set it is threaded through so tests can point the
// exchange at a stub server.
func (b *BaseOAuth2) ExchangeContext() context.Context {
	ctx := context.Background()
	if b.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, b.HTTPClient)
	}
	return ctx
}

func (b *BaseOAuth2) getHTTPClient() *http.Client {
	if b.HTTPClient != nil {
		return b.HTTPClient
	}
	return http.DefaultClient
}

// checkState validates the callback against the state cookie. A mismatch
// clears the cookie and fails the request.
func (b *BaseOAuth2) checkState(w http.ResponseWriter, r *http.Request) bool {
	oauthState, _ := r.Cookie("oauthstate")
	if oauthState == nil {
		http.Error(w, "OauthState is nil", http.StatusBadRequest)
		return false
	}
	if r.FormValue("state") != oauthState.Value {
		http.SetCookie(w, &http.Cookie{Name: "oauthstate", MaxAge: 0})
		http.Error(w, "invalid oauth state", http.StatusBadRequest)
		return false
	}
	return true
}

// fetchUserInfo GETs the provider's userinfo endpoint with the bearer
// token and decodes the JSON payload.
func (b *BaseOAuth2) fetchUserInfo(userInfoURL string, token *oauth2.Token) (map[string]any, error) {
	req, err := http.NewRequest(http.MethodGet, userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Accept", "application/json")

	response, err := b.getHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed: %s", response.Status)
	}
	contents, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed read response: %w", err)
	}
	var userInfo map[string]any
	if err := json.Unmarshal(contents, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return userInfo, nil
}
