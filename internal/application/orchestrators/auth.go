package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"consultdesk/internal/adapters/bookingapi"
)

// Login errors shown on the login pages.
var (
	ErrEmptyToken = errors.New("Введите токен")
	ErrEmptyCode  = errors.New("Введите код")
)

// LoginError carries the message shown after a rejected login.
type LoginError struct {
	Message string
	Err     error
}

func (e *LoginError) Error() string { return e.Message }
func (e *LoginError) Unwrap() error { return e.Err }

// AuthDeps holds dependencies for the login and logout actions.
type AuthDeps struct {
	Auth Authenticator
}

// ExecuteAdminLogin checks an admin token against the API.
// PRE: none
// POST: Returns the trimmed token to store in the session, or an error whose message is user-facing
// INVARIANT: An empty token never reaches the API
func ExecuteAdminLogin(ctx context.Context, token string, deps AuthDeps) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrEmptyToken
	}
	if err := deps.Auth.AdminLogin(ctx, token); err != nil {
		slog.Info("auth_event", "event", "login_failed", "role", "admin", "status", bookingapi.StatusOf(err))
		return "", &LoginError{Message: loginFailureMessage(err, "Неверный токен"), Err: err}
	}
	slog.Info("auth_event", "event", "login_success", "role", "admin")
	return token, nil
}

// ExecuteExpertLogin checks an expert access code against the API.
// PRE: none
// POST: Returns nil when the code was accepted
func ExecuteExpertLogin(ctx context.Context, code string, deps AuthDeps) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return ErrEmptyCode
	}
	if err := deps.Auth.ExpertLogin(ctx, code); err != nil {
		slog.Info("auth_event", "event", "login_failed", "role", "expert", "status", bookingapi.StatusOf(err))
		return &LoginError{Message: loginFailureMessage(err, "Неверный код"), Err: err}
	}
	slog.Info("auth_event", "event", "login_success", "role", "expert")
	return nil
}

// ExecuteAdminLogout tells the API the admin left. Upstream errors are logged and ignored.
func ExecuteAdminLogout(ctx context.Context, deps AuthDeps) {
	if err := deps.Auth.AdminLogout(ctx); err != nil {
		slog.Warn("auth_event", "event", "logout_failed", "role", "admin", "error", err)
		return
	}
	slog.Info("auth_event", "event", "logout", "role", "admin")
}

// ExecuteExpertLogout tells the API the expert left. Upstream errors are logged and ignored.
func ExecuteExpertLogout(ctx context.Context, deps AuthDeps) {
	if err := deps.Auth.ExpertLogout(ctx); err != nil {
		slog.Warn("auth_event", "event", "logout_failed", "role", "expert", "error", err)
		return
	}
	slog.Info("auth_event", "event", "logout", "role", "expert")
}

// loginFailureMessage prefers the server's detail, then the fallback.
// Transport failures keep their own message.
func loginFailureMessage(err error, fallback string) string {
	var apiErr *bookingapi.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message == "" || apiErr.Message == bookingapi.DefaultErrorMessage {
			return fallback
		}
		return apiErr.Message
	}
	return err.Error()
}
