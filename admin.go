package shieldauth

import (
	"log/slog"
	"time"
)

// AdminService covers the account-state operations reserved for admins:
// toggling a user's active flag and forcing a logout by purging sessions.
type AdminService struct {
	Users    UserStore
	Sessions SessionStore
	Logger   *slog.Logger

	// Now is the clock; defaults to time.Now
	Now func() time.Time
}

func (s *AdminService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AdminService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *AdminService) requireAdmin(actor *SessionUser) *AuthError {
	if actor == nil {
		return NewAuthError(ErrCodeUnauthenticated, "Unauthorized", "")
	}
	if !actor.IsAdmin() {
		return NewAuthError(ErrCodeForbidden, "Forbidden - Admin access required", "")
	}
	return nil
}

// SetUserActive flips a user's active flag. An admin cannot deactivate
// their own account.
func (s *AdminService) SetUserActive(actor *SessionUser, targetID string, active bool) *AuthError {
	if authErr := s.requireAdmin(actor); authErr != nil {
		return authErr
	}
	if targetID == "" {
		return NewAuthError(ErrCodeMissingField, "User ID is required", "userId")
	}
	if targetID == actor.ID && !active {
		return NewAuthError(ErrCodeForbidden, "Cannot deactivate your own account", "")
	}

	user, err := s.Users.GetUserByID(targetID)
	if err != nil {
		if err == ErrUserNotFound {
			return NewAuthError(ErrCodeNotFound, "User not found", "")
		}
		s.logger().Error("status toggle lookup failed", "user_id", targetID, "error", err)
		return NewAuthError(ErrCodeInternal, "Internal server error", "")
	}

	user.IsActive = active
	user.UpdatedAt = s.now()
	if err := s.Users.UpdateUser(user); err != nil {
		s.logger().Error("status toggle update failed", "user_id", targetID, "error", err)
		return NewAuthError(ErrCodeInternal, "Internal server error", "")
	}
	s.logger().Info("user status changed", "user_id", targetID, "active", active, "by", actor.ID)
	return nil
}

// ForceLogout deletes all of a user's sessions, logging them out
// everywhere.
func (s *AdminService) ForceLogout(actor *SessionUser, targetID string) *AuthError {
	if authErr := s.requireAdmin(actor); authErr != nil {
		return authErr
	}
	if targetID == "" {
		return NewAuthError(ErrCodeMissingField, "User ID is required", "userId")
	}

	if err := s.Sessions.DeleteUserSessions(targetID); err != nil {
		s.logger().Error("session purge failed", "user_id", targetID, "error", err)
		return NewAuthError(ErrCodeInternal, "Failed to deactivate user", "")
	}
	s.logger().Info("sessions purged", "user_id", targetID, "by", actor.ID)
	return nil
}
