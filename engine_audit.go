package goSession

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginLocked          = "login_locked"
	auditEventLoginRateLimited     = "login_rate_limited"
	auditEventAccountLocked        = "account_locked"
	auditEventMFARequired          = "mfa_required"
	auditEventMFAFailure           = "mfa_failure"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventRefreshReuseDetected = "refresh_reuse_detected"
	auditEventLogout               = "logout"
	auditEventMFASetupRequested    = "mfa_setup_requested"
	auditEventMFAEnabled           = "mfa_enabled"
	auditEventMFADisabled          = "mfa_disabled"
	auditEventPasswordChanged      = "password_changed"
	auditEventPasswordChangeFailed = "password_change_failure"
	auditEventRegistration         = "registration"
	auditEventRegistrationFailed   = "registration_failure"
)

// AuditErrorCode is the stable, non-sensitive error label recorded on failed events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrMFAInvalid         AuditErrorCode = "mfa_invalid"
	auditErrMFARequired        AuditErrorCode = "mfa_required"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrSessionInvalidated AuditErrorCode = "session_invalidated"
	auditErrUserInactive       AuditErrorCode = "user_inactive"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrPasswordReuse      AuditErrorCode = "password_reuse"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

// emitAudit never blocks the caller beyond the dispatcher's enqueue.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventType: eventType,
		UserID:    userID,
		Target:    "auth",
		IP:        ClientIPFromContext(ctx),
		UserAgent: UserAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	event.Stamp(e.now())
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrInvalidMFACode):
		return auditErrMFAInvalid
	case errors.Is(err, ErrMFAInputRequired):
		return auditErrMFARequired
	case errors.Is(err, ErrSessionInvalidated):
		return auditErrSessionInvalidated
	case errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrUserInactive):
		return auditErrUserInactive
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrPolicyViolation):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrPasswordReuse):
		return auditErrPasswordReuse
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case IsUnavailable(err):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
