package goSession

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/goSession/internal/rate"
)

// Register creates an active account with Account.DefaultRole. The password
// is checked against the policy and hashed before the store is touched.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*UserRecord, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if !e.config.Account.EnableRegistration {
		return nil, ErrRegistrationDisabled
	}

	if err := e.limiter.Allow(ctx, "login", ClientIPFromContext(ctx)); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.emitAudit(ctx, auditEventRegistrationFailed, false, "", ErrLoginRateLimited, usernameMeta(req.Username))
			return nil, ErrLoginRateLimited
		}
		return nil, registryError(err)
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)
	if username == "" || email == "" {
		return nil, ErrInvalidRegistration
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		e.emitAudit(ctx, auditEventRegistrationFailed, false, "", err, usernameMeta(username))
		return nil, err
	}

	created, err := e.store.Create(ctx, UserRecord{
		Username:     username,
		Email:        email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: hash,
		Roles:        []string{e.config.Account.DefaultRole},
		Active:       true,
		CreatedAt:    e.now().UTC(),
	})
	if err != nil {
		err = storeError(err)
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricRegistrationDuplicate)
		}
		e.emitAudit(ctx, auditEventRegistrationFailed, false, "", err, usernameMeta(username))
		return nil, err
	}

	e.metricInc(MetricRegistrationSuccess)
	e.emitAudit(ctx, auditEventRegistration, true, created.UserID, nil, nil)
	return created, nil
}

// GetUser returns the stored record for userID.
func (e *Engine) GetUser(ctx context.Context, userID string) (*UserRecord, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	user, err := e.store.FindByID(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

// ChangePassword replaces the user's password after verifying the old one,
// then ends the refresh session. Revoking the session is best effort: a
// registry failure there is logged, not returned.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	user, err := e.store.FindByID(ctx, userID)
	if err != nil {
		return e.passwordChangeFailed(ctx, userID, storeError(err))
	}
	if !e.hasher.Verify(oldPassword, user.PasswordHash) {
		return e.passwordChangeFailed(ctx, userID, ErrInvalidCredentials)
	}
	if oldPassword == newPassword {
		return e.passwordChangeFailed(ctx, userID, ErrPasswordReuse)
	}

	hash, err := e.hasher.Hash(newPassword)
	if err != nil {
		return e.passwordChangeFailed(ctx, userID, err)
	}

	verifiedHash := user.PasswordHash
	_, err = e.store.Update(ctx, userID, func(u *UserRecord) error {
		// a concurrent change since verification invalidates the old password
		if u.PasswordHash != verifiedHash {
			return ErrInvalidCredentials
		}
		u.PasswordHash = hash
		return nil
	})
	if err != nil {
		return e.passwordChangeFailed(ctx, userID, storeError(err))
	}

	if err := e.registry.DeleteRefresh(ctx, userID); err != nil {
		e.logger.Warn("refresh session not revoked after password change", "user_id", userID, "error", err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChanged, true, userID, nil, nil)
	return nil
}

func (e *Engine) passwordChangeFailed(ctx context.Context, userID string, err error) error {
	e.metricInc(MetricPasswordChangeFailure)
	e.emitAudit(ctx, auditEventPasswordChangeFailed, false, userID, err, nil)
	return err
}
