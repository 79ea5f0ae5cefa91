package shieldauth

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"
)

// Auth glues the core services to an HTTP surface: a gorilla router, an
// scs-managed database session, and a JWT bearer fallback for API clients.
type Auth struct {
	router     *mux.Router
	Session    *scs.SessionManager
	Middleware Middleware

	// Optional name used as a prefix for defaults
	AppName string

	// Core services. All must be set before Handler is used.
	Gate      *AuthorizationGate
	Registrar *Registrar
	Accounts  *AccountService
	Admin     *AdminService
	Tokens    *TokenService

	// Sessions lets logout-everywhere purge adapter-owned session rows
	Sessions SessionStore

	// All the domains the auth token cookie is set on at login/logout
	CookieDomains []string

	// JWT bearer-token configuration for API clients
	JwtIssuer    string
	JWTSecretKey string

	// How long a session is valid for. Defaults to 30 days.
	SessionTimeout time.Duration

	Logger *slog.Logger
}

func New(appName string) *Auth {
	return (&Auth{AppName: appName}).EnsureDefaults()
}

// EnsureDefaults fills in reasonable defaults for unset fields
func (a *Auth) EnsureDefaults() *Auth {
	if a.AppName == "" {
		a.AppName = "ShieldAuth"
	}
	if a.SessionTimeout <= 0 {
		a.SessionTimeout = 30 * 24 * time.Hour
	}
	if a.JwtIssuer == "" {
		a.JwtIssuer = fmt.Sprintf("%s-Issuer", a.AppName)
	}
	if a.JWTSecretKey == "" {
		a.JWTSecretKey = strings.TrimSpace(os.Getenv("SHIELDAUTH_JWT_SECRET_KEY"))
	}
	if a.Session == nil {
		a.Session = scs.New()
		a.Session.Lifetime = a.SessionTimeout
		a.Session.Cookie.HttpOnly = true
		a.Session.Cookie.SameSite = http.SameSiteLaxMode
	}
	if a.Middleware.AuthTokenCookieName == "" {
		a.Middleware.AuthTokenCookieName = fmt.Sprintf("%sAuthToken", a.AppName)
	}
	if a.Middleware.SessionGetter == nil {
		a.Middleware.SessionGetter = func(r *http.Request, param string) any {
			return a.Session.Get(r.Context(), param)
		}
	}
	if a.Middleware.VerifyToken == nil {
		a.Middleware.VerifyToken = a.verifyJWT
	}
	a.Middleware.EnsureReasonableDefaults()
	return a
}

func (a *Auth) logger() *slog.Logger {
	if a.Logger != nil {
		return a.Logger
	}
	return slog.Default()
}

// Handler returns the auth routes wrapped in session management
func (a *Auth) Handler() http.Handler {
	a.EnsureDefaults()
	return a.Session.LoadAndSave(a.setupRoutes().router)
}

func (a *Auth) setupRoutes() *Auth {
	if a.router != nil {
		return a
	}
	r := mux.NewRouter()
	r.HandleFunc("/register", a.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", a.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", a.handleLogout)
	r.HandleFunc("/verify-email", a.handleVerifyEmail).Methods(http.MethodGet)
	r.HandleFunc("/resend-verification", a.handleResendVerification).Methods(http.MethodPost)
	r.HandleFunc("/forgot-password", a.handleForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/reset-password", a.handleResetPassword).Methods(http.MethodPost)
	r.HandleFunc("/me", a.handleMe).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/{userId}/status", a.handleToggleStatus).Methods(http.MethodPut)
	r.HandleFunc("/admin/users/{userId}/sessions", a.handleForceLogout).Methods(http.MethodDelete)
	a.router = r
	return a
}

// AddProvider mounts an OAuth provider handler under the given prefix,
// e.g. AddProvider("/google", oauth2provider.Handler()).
func (a *Auth) AddProvider(prefix string, handler http.Handler) *Auth {
	a.setupRoutes()
	prefix = strings.TrimSuffix(prefix, "/")
	a.router.PathPrefix(prefix + "/").Handler(http.StripPrefix(prefix, handler))
	return a
}

// CurrentUser resolves the request's session to a freshly enriched user
// payload. Returns nil when unauthenticated or when the user row is gone.
func (a *Auth) CurrentUser(r *http.Request) *SessionUser {
	email := a.Middleware.GetLoggedInUserEmail(r)
	if email == "" {
		return nil
	}
	current, err := a.Gate.EnrichSession(email)
	if err != nil {
		if err != ErrUserNotFound {
			a.logger().Error("session enrichment failed", "error", err)
		}
		return nil
	}
	return current
}

// HandleProviderUser is the callback the oauth2 provider handlers invoke
// after a successful exchange. It runs the attempt through the gate,
// establishes the session, and redirects back to where the flow started.
func (a *Auth) HandleProviderUser(authtype, provider string, token *oauth2.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromProvider(provider, token, userInfo)
	authUser, authErr := a.Gate.Authorize(&SignInAttempt{Provider: provider, Identity: identity})
	if authErr != nil {
		http.Error(w, authErr.Message, authErr.HTTPStatus())
		return
	}

	a.setLoggedInUser(authUser, w, r)

	callbackURL := "/"
	if cookie, _ := r.Cookie("oauthCallbackURL"); cookie != nil && cookie.Value != "" {
		callbackURL = cookie.Value
	}
	if u, err := url.Parse(callbackURL); err != nil || u.IsAbs() {
		callbackURL = "/"
	}
	http.SetCookie(w, &http.Cookie{Name: "oauthCallbackURL", Value: "", Path: "/", MaxAge: -1, Expires: time.Now()})
	http.Redirect(w, r, callbackURL, http.StatusFound)
}

// setLoggedInUser establishes (user != nil) or clears (user == nil) the
// logged-in session and the bearer cookie on all configured domains.
func (a *Auth) setLoggedInUser(user *AuthUser, w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if user == nil {
		_ = a.Session.Destroy(ctx)
		a.setTokenCookie("", -1, w)
		return
	}

	// Renew the session token on privilege change
	if err := a.Session.RenewToken(ctx); err != nil {
		a.logger().Error("session renew failed", "error", err)
	}
	a.Session.Put(ctx, a.Middleware.UserParamName, user.Email)

	if a.JWTSecretKey != "" && a.Middleware.AuthTokenCookieName != "" {
		signed, err := a.mintJWT(user.Email)
		if err != nil {
			a.logger().Error("jwt mint failed", "error", err)
			return
		}
		a.setTokenCookie(signed, int(a.SessionTimeout.Seconds()), w)
	}
}

func (a *Auth) setTokenCookie(value string, maxAge int, w http.ResponseWriter) {
	if a.Middleware.AuthTokenCookieName == "" {
		return
	}
	domains := a.CookieDomains
	if len(domains) == 0 {
		domains = []string{""}
	}
	for _, domain := range domains {
		http.SetCookie(w, &http.Cookie{
			Name:     a.Middleware.AuthTokenCookieName,
			Value:    value,
			Path:     "/",
			Domain:   domain,
			MaxAge:   maxAge,
			HttpOnly: true,
		})
	}
}

func (a *Auth) mintJWT(email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": email,
		"iss": a.JwtIssuer,
		"iat": now.Unix(),
		"exp": now.Add(a.SessionTimeout).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.JWTSecretKey))
}

func (a *Auth) verifyJWT(tokenString string) (string, error) {
	if a.JWTSecretKey == "" {
		return "", fmt.Errorf("jwt not configured")
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(a.JWTSecretKey), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(a.JwtIssuer))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("claims is not a map")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("subject not found")
	}
	return sub, nil
}

// =============================================================================
// Handlers
// =============================================================================

func (a *Auth) handleRegister(w http.ResponseWriter, r *http.Request) {
	fields, err := parseBody(r, "name", "email", "password", "confirmPassword")
	if err != nil {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, err.Error(), ""))
		return
	}
	if confirm, ok := fields["confirmPassword"]; ok && confirm != "" && confirm != fields["password"] {
		writeAuthError(w, NewAuthError(ErrCodePasswordMismatch, "Passwords do not match", "confirmPassword"))
		return
	}

	outcome, authErr := a.Registrar.Register(fields["name"], fields["email"], fields["password"])
	if authErr != nil {
		writeAuthError(w, authErr)
		return
	}

	message := "User created successfully. Please check your email to verify your account."
	if !outcome.EmailSent {
		message = "User created successfully, but verification email could not be sent. Please contact support."
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":               message,
		"user":                  outcome.User,
		"emailVerificationSent": outcome.EmailSent,
		"redirectUrl":           outcome.RedirectURL,
	})
}

func (a *Auth) handleLogin(w http.ResponseWriter, r *http.Request) {
	fields, err := parseBody(r, "email", "password")
	if err != nil {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, err.Error(), ""))
		return
	}

	attempt := &SignInAttempt{
		Provider: ProviderCredentials,
		Email:    fields["email"],
		Password: fields["password"],
	}
	authUser, authErr := a.Gate.Authorize(attempt)
	if authErr != nil {
		writeAuthError(w, authErr)
		return
	}

	a.setLoggedInUser(authUser, w, r)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": authUser})
}

func (a *Auth) handleLogout(w http.ResponseWriter, r *http.Request) {
	// ?all=true also purges the user's server-side session rows, signing
	// them out on every device.
	if r.URL.Query().Get("all") == "true" && a.Sessions != nil {
		if current := a.CurrentUser(r); current != nil {
			if err := a.Sessions.DeleteUserSessions(current.ID); err != nil {
				a.logger().Error("session purge failed", "error", err)
			}
		}
	}
	a.setLoggedInUser(nil, w, r)
	to := r.URL.Query().Get("to")
	if to == "" {
		fmt.Fprint(w, "Logged Out")
		return
	}
	http.Redirect(w, r, to, http.StatusFound)
}

func (a *Auth) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, "Token required", "token"))
		return
	}
	if authErr := a.Accounts.VerifyEmail(token); authErr != nil {
		writeAuthError(w, authErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Email verified successfully"})
}

func (a *Auth) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	fields, err := parseBody(r, "email")
	if err != nil || fields["email"] == "" {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, "Email is required", "email"))
		return
	}

	user, lookupErr := a.Gate.Users.GetUserByEmail(fields["email"])
	if lookupErr != nil {
		if lookupErr != ErrUserNotFound {
			a.logger().Error("resend lookup failed", "error", lookupErr)
		}
		writeAuthError(w, NewAuthError(ErrCodeNotFound, "User not found", "email"))
		return
	}
	if user.EmailVerified() {
		writeAuthError(w, NewAuthError(ErrCodeAlreadyVerified, "Email is already verified", "email"))
		return
	}

	sent := a.Tokens != nil && a.Tokens.SendEmailVerification(user.ID, user.Email, displayName(user), "resend")
	if !sent {
		writeAuthError(w, NewAuthError(ErrCodeInternal, "Failed to send verification email", ""))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Verification email sent. Please check your inbox.",
		"redirectUrl": checkEmailRedirect("/auth/check-email", "resend", user.Email, true),
	})
}

func (a *Auth) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	fields, err := parseBody(r, "email")
	if err != nil {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, err.Error(), ""))
		return
	}

	outcome, authErr := a.Accounts.RequestPasswordReset(a.CurrentUser(r), fields["email"])
	if authErr != nil {
		writeAuthError(w, authErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "redirectUrl": outcome.RedirectURL})
}

func (a *Auth) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	fields, err := parseBody(r, "token", "password")
	if err != nil {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, err.Error(), ""))
		return
	}
	if authErr := a.Accounts.ResetPassword(fields["token"], fields["password"]); authErr != nil {
		writeAuthError(w, authErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Password reset successfully"})
}

func (a *Auth) handleMe(w http.ResponseWriter, r *http.Request) {
	current := a.CurrentUser(r)
	if current == nil {
		writeAuthError(w, NewAuthError(ErrCodeUnauthenticated, "Unauthorized", ""))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": current})
}

func (a *Auth) handleToggleStatus(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	var body struct {
		IsActive bool `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeAuthError(w, NewAuthError(ErrCodeMissingField, "Invalid request body", ""))
		return
	}

	if authErr := a.Admin.SetUserActive(a.CurrentUser(r), userID, body.IsActive); authErr != nil {
		writeAuthError(w, authErr)
		return
	}
	verb := "deactivated"
	if body.IsActive {
		verb = "activated"
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": fmt.Sprintf("User %s successfully", verb)})
}

func (a *Auth) handleForceLogout(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	if authErr := a.Admin.ForceLogout(a.CurrentUser(r), userID); authErr != nil {
		writeAuthError(w, authErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "User logged out everywhere"})
}

// parseBody reads the named fields from a form-urlencoded or JSON body
func parseBody(r *http.Request, names ...string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("error parsing form")
		}
		for _, name := range names {
			out[name] = r.FormValue(name)
		}
		return out, nil
	}

	var data map[string]any
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
		return nil, fmt.Errorf("invalid post body")
	}
	for _, name := range names {
		if v, ok := data[name].(string); ok {
			out[name] = v
		}
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeAuthError(w http.ResponseWriter, authErr *AuthError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(authErr.HTTPStatus())
	json.NewEncoder(w).Encode(map[string]any{
		"error": authErr.Message,
		"code":  authErr.Code,
		"field": authErr.Field,
	})
}
