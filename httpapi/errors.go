package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	sessionmw "github.com/MrEthical07/goSession/middleware"
)

type errorBody struct {
	Detail string `json:"detail"`
}

// statusFor maps engine errors onto HTTP status and client-facing detail.
// The bool reports whether the error is unexpected and should be reported.
func statusFor(err error) (int, string, bool) {
	switch {
	case errors.Is(err, goSession.ErrPolicyViolation):
		return http.StatusBadRequest, err.Error(), false
	case errors.Is(err, goSession.ErrInvalidRegistration):
		return http.StatusBadRequest, "Username and email are required", false
	case errors.Is(err, goSession.ErrAccountExists):
		return http.StatusBadRequest, "Username or email already registered", false
	case errors.Is(err, goSession.ErrRegistrationDisabled):
		return http.StatusForbidden, "Registration is disabled", false
	case errors.Is(err, goSession.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Incorrect username or password", false
	case errors.Is(err, goSession.ErrAccountLocked):
		return http.StatusForbidden, "Account locked. Try again later.", false
	case errors.Is(err, goSession.ErrInvalidMFACode):
		return http.StatusUnauthorized, "Invalid TOTP code", false
	case errors.Is(err, goSession.ErrLoginRateLimited):
		return http.StatusTooManyRequests, "Too many attempts. Try again later.", false
	case errors.Is(err, goSession.ErrSessionInvalidated):
		return http.StatusUnauthorized, "Session expired due to security violation", false
	case errors.Is(err, goSession.ErrTokenRevoked):
		return http.StatusUnauthorized, "Token revoked (logged out)", false
	case errors.Is(err, goSession.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired", false
	case errors.Is(err, goSession.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid token", false
	case errors.Is(err, goSession.ErrUserInactive):
		return http.StatusUnauthorized, "User inactive", false
	case errors.Is(err, goSession.ErrUserNotFound):
		return http.StatusNotFound, "User not found", false
	case errors.Is(err, goSession.ErrPasswordReuse):
		return http.StatusBadRequest, "New password must be different from current password", false
	case errors.Is(err, goSession.ErrMFAInputRequired):
		return http.StatusBadRequest, "Secret and code required", false
	case errors.Is(err, goSession.ErrMFAAlreadyEnabled):
		return http.StatusConflict, "MFA already enabled", false
	case errors.Is(err, goSession.ErrMFANotEnabled):
		return http.StatusBadRequest, "MFA not enabled", false
	case goSession.IsUnavailable(err):
		return http.StatusServiceUnavailable, "Service temporarily unavailable", true
	default:
		return http.StatusInternalServerError, "Internal server error", true
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail, unexpected := statusFor(err)
	if unexpected {
		h.reporter.Report(r.Context(), err)
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Detail: detail})
}

// guardError reports infrastructure failures and otherwise defers to the
// guard's own rejection bodies.
func (h *Handler) guardError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if goSession.IsUnavailable(err) {
		h.writeError(w, r, err)
		return
	}
	sessionmw.WriteError(w, r, status, err)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
