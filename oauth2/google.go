package oauth2

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
)

// GoogleOAuth2 handles the Google sign-in flow
type GoogleOAuth2 struct {
	*BaseOAuth2

	// UserInfoURL is the endpoint user data is fetched from. Defaults to
	// Google's userinfo API; overridable for testing.
	UserInfoURL string
}

func NewGoogleOAuth2(clientId, clientSecret, callbackUrl string, handleUser HandleUserFunc) *GoogleOAuth2 {
	if clientId == "" {
		clientId = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CLIENT_SECRET"))
	}
	if callbackUrl == "" {
		callbackUrl = strings.TrimSpace(os.Getenv("OAUTH2_GOOGLE_CALLBACK_URL"))
	}

	out := GoogleOAuth2{
		BaseOAuth2:  NewBaseOAuth2(clientId, clientSecret, callbackUrl, handleUser),
		UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}
	out.oauthConfig.Endpoint = google.Endpoint
	out.oauthConfig.Scopes = []string{
		"https://www.googleapis.com/auth/userinfo.email",
		"https://www.googleapis.com/auth/userinfo.profile",
	}
	out.mux.HandleFunc("/callback/", out.handleCallback)
	return &out
}

func (g *GoogleOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !g.checkState(w, r) {
		return
	}

	token, err := g.oauthConfig.Exchange(g.ExchangeContext(), r.FormValue("code"))
	if err != nil {
		slog.Info("invalid code exchange", "provider", "google", "err", err)
		http.Redirect(w, r, g.AuthFailureUrl, http.StatusTemporaryRedirect)
		return
	}

	userInfo, err := g.fetchUserInfo(g.UserInfoURL, token)
	if err != nil {
		slog.Info("userinfo fetch failed", "provider", "google", "err", err)
		http.Redirect(w, r, g.AuthFailureUrl, http.StatusTemporaryRedirect)
		return
	}
	g.HandleUser("oauth", "google", token, userInfo, w, r)
}
