package goSession

import (
	"context"
	"strings"
)

// SetupMFA generates a fresh TOTP secret and its provisioning URI for the
// user. Nothing is persisted; the caller confirms with EnableMFA.
func (e *Engine) SetupMFA(ctx context.Context, userID string) (*MFASetup, error) {
	if !e.ready() || e.totp == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.store.FindByID(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}

	secret, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventMFASetupRequested, true, user.UserID, nil, nil)
	return &MFASetup{
		Secret:          secret,
		ProvisioningURI: e.totp.ProvisioningURI(secret, user.Username),
	}, nil
}

// EnableMFA verifies code against the not-yet-persisted secret and, on
// success, stores the secret and turns MFA on in one transaction.
func (e *Engine) EnableMFA(ctx context.Context, userID, secret, code string) error {
	if !e.ready() || e.totp == nil {
		return ErrEngineNotReady
	}
	secret = strings.TrimSpace(secret)
	if secret == "" || strings.TrimSpace(code) == "" {
		return ErrMFAInputRequired
	}

	_, err := e.store.Update(ctx, userID, func(u *UserRecord) error {
		if u.MFAEnabled {
			return ErrMFAAlreadyEnabled
		}
		if !e.totp.Verify(secret, code) {
			return ErrInvalidMFACode
		}
		u.TOTPSecret = secret
		u.MFAEnabled = true
		return nil
	})
	if err != nil {
		err = storeError(err)
		e.emitAudit(ctx, auditEventMFAEnabled, false, userID, err, nil)
		return err
	}

	e.metricInc(MetricMFAEnabled)
	e.emitAudit(ctx, auditEventMFAEnabled, true, userID, nil, nil)
	return nil
}

// DisableMFA verifies code against the persisted secret inside the store
// transaction and clears secret and flag together. A wrong code leaves MFA on.
func (e *Engine) DisableMFA(ctx context.Context, userID, code string) error {
	if !e.ready() || e.totp == nil {
		return ErrEngineNotReady
	}
	if strings.TrimSpace(code) == "" {
		return ErrMFAInputRequired
	}

	_, err := e.store.Update(ctx, userID, func(u *UserRecord) error {
		if !u.MFAEnabled {
			return ErrMFANotEnabled
		}
		if !e.totp.Verify(u.TOTPSecret, code) {
			return ErrInvalidMFACode
		}
		u.TOTPSecret = ""
		u.MFAEnabled = false
		return nil
	})
	if err != nil {
		err = storeError(err)
		e.emitAudit(ctx, auditEventMFADisabled, false, userID, err, nil)
		return err
	}

	e.metricInc(MetricMFADisabled)
	e.emitAudit(ctx, auditEventMFADisabled, true, userID, nil, nil)
	return nil
}
