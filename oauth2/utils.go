package oauth2

import (
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// HandleUserFunc is invoked by a provider callback after a successful
// exchange, with the token and the provider's userinfo payload.
type HandleUserFunc func(authtype string, provider string, token *oauth2.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request)

func generateStateOauthCookie(w http.ResponseWriter) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		slog.Error("error generating oauth state", "error", err)
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:    "oauthstate",
		Value:   state,
		Path:    "/",
		Expires: time.Now().Add(time.Hour),
	})
	return state
}

// OauthRedirector sends the browser to the provider's consent page with a
// fresh state cookie. A callbackURL query param is remembered in a
// short-lived cookie so the flow can return to where it started.
func OauthRedirector(oauthConfig *oauth2.Config) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		if callbackURL := r.URL.Query().Get("callbackURL"); callbackURL != "" {
			http.SetCookie(w, &http.Cookie{
				Name:   "oauthCallbackURL",
				Value:  callbackURL,
				Path:   "/",
				MaxAge: 120,
			})
		}
		state := generateStateOauthCookie(w)
		http.Redirect(w, r, oauthConfig.AuthCodeURL(state), http.StatusFound)
	}
}
