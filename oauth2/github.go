package oauth2

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2/github"
)

// GithubOAuth2 handles the GitHub sign-in flow
type GithubOAuth2 struct {
	*BaseOAuth2

	// UserInfoURL is the endpoint user data is fetched from. Defaults to
	// GitHub's API; overridable for testing.
	UserInfoURL string
}

func NewGithubOAuth2(clientId, clientSecret, callbackUrl string, handleUser HandleUserFunc) *GithubOAuth2 {
	if clientId == "" {
		clientId = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CLIENT_ID"))
	}
	if clientSecret == "" {
		clientSecret = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CLIENT_SECRET"))
	}
	if callbackUrl == "" {
		callbackUrl = strings.TrimSpace(os.Getenv("OAUTH2_GITHUB_CALLBACK_URL"))
	}

	out := GithubOAuth2{
		BaseOAuth2:  NewBaseOAuth2(clientId, clientSecret, callbackUrl, handleUser),
		UserInfoURL: "https://api.github.com/user",
	}
	out.oauthConfig.Endpoint = github.Endpoint
	out.oauthConfig.Scopes = []string{"read:user", "user:email"}
	out.mux.HandleFunc("/callback/", out.handleCallback)
	return &out
}

func (g *GithubOAuth2) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !g.checkState(w, r) {
		return
	}

	token, err := g.oauthConfig.Exchange(g.ExchangeContext(), r.FormValue("code"))
	if err != nil {
		slog.Info("invalid code exchange", "provider", "github", "err", err)
		http.Redirect(w, r, g.AuthFailureUrl, http.StatusTemporaryRedirect)
		return
	}

	userInfo, err := g.fetchUserInfo(g.UserInfoURL, token)
	if err != nil {
		slog.Info("userinfo fetch failed", "provider", "github", "err", err)
		http.Redirect(w, r, g.AuthFailureUrl, http.StatusTemporaryRedirect)
		return
	}
	g.HandleUser("oauth", "github", token, userInfo, w, r)
}
