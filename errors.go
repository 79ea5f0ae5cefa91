package shieldauth

import (
	"errors"
	"net/http"
)

// Error codes returned with AuthError values
const (
	ErrCodeMissingField     = "missing_field"
	ErrCodeInvalidCreds     = "invalid_credentials"
	ErrCodeWeakPassword     = "weak_password"
	ErrCodePasswordMismatch = "password_mismatch"
	ErrCodeEmailExists      = "email_exists"
	ErrCodeEmailUnverified  = "email_unverified"
	ErrCodeAccountDisabled  = "account_disabled"
	ErrCodeUnknownProvider  = "unknown_provider"
	ErrCodeAlreadyVerified  = "already_verified"
	ErrCodeInvalidToken     = "invalid_token"
	ErrCodeUnauthenticated  = "unauthenticated"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeInternal         = "internal_error"
)

// Sentinel errors surfaced by store implementations
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already registered")
	ErrAccountNotFound = errors.New("oauth account not found")
	ErrAccountExists   = errors.New("oauth account already linked")
	ErrTokenNotFound   = errors.New("token not found")
)

// AuthError is a structured error for authentication and account flows.
// Code identifies the failure class, Message is safe to show to the end
// user, and Field names the offending input field when there is one.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

func (e *AuthError) Error() string {
	return e.Message
}

// HTTPStatus maps the error code to the status the HTTP surface responds with.
func (e *AuthError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeMissingField, ErrCodeWeakPassword, ErrCodePasswordMismatch, ErrCodeInvalidToken, ErrCodeAlreadyVerified:
		return http.StatusBadRequest
	case ErrCodeInvalidCreds, ErrCodeEmailUnverified, ErrCodeAccountDisabled, ErrCodeUnknownProvider, ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeEmailExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
