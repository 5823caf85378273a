package goSession

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/internal/rate"
)

// Login authenticates req and, on success, issues a token pair that becomes
// the user's only refresh session.
//
// An MFA-enabled user without a code receives a LoginResult with Status
// LoginMFARequired and a nil error. Failure outcomes:
//   - ErrLoginRateLimited when the per-IP throttle trips
//   - ErrInvalidCredentials for an unknown user or wrong password
//   - ErrAccountLocked while a lock is in force (the password is not checked)
//   - ErrUserInactive for a deactivated account
//   - ErrInvalidMFACode for a wrong TOTP code
//
// Store and registry failures are returned wrapped in ErrStoreUnavailable or
// ErrRegistryUnavailable.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	username := strings.TrimSpace(req.Username)
	if err := e.limiter.Allow(ctx, "login", ClientIPFromContext(ctx)); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", ErrLoginRateLimited, usernameMeta(username))
			return nil, ErrLoginRateLimited
		}
		return nil, registryError(err)
	}

	user, err := e.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// same argon2 cost as a real verification
			e.hasher.Verify(req.Password, e.dummyHash)
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, usernameMeta(username))
			return nil, ErrInvalidCredentials
		}
		return nil, storeError(err)
	}

	now := e.now()
	if user.Locked(now) {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventLoginLocked, false, user.UserID, ErrAccountLocked, nil)
		return nil, ErrAccountLocked
	}

	if !e.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, e.recordFailedLogin(ctx, user.UserID, e.now())
	}

	user, err = e.recordSuccessfulLogin(ctx, user, req.Password)
	if err != nil {
		return nil, err
	}

	if !user.Active {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, ErrUserInactive, nil)
		return nil, ErrUserInactive
	}

	if user.MFAEnabled {
		if strings.TrimSpace(req.TOTPCode) == "" {
			e.metricInc(MetricLoginMFARequired)
			e.emitAudit(ctx, auditEventMFARequired, true, user.UserID, nil, nil)
			return &LoginResult{Status: LoginMFARequired, UserID: user.UserID}, nil
		}
		if !e.totp.Verify(user.TOTPSecret, req.TOTPCode) {
			e.metricInc(MetricLoginMFAFailure)
			e.emitAudit(ctx, auditEventMFAFailure, false, user.UserID, ErrInvalidMFACode, nil)
			return nil, ErrInvalidMFACode
		}
	}

	pair, err := e.issuePair(user)
	if err != nil {
		return nil, err
	}
	if err := e.registry.StoreRefresh(ctx, user.UserID, pair.RefreshToken, e.config.JWT.RefreshTTL); err != nil {
		return nil, registryError(err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, nil, nil)

	return &LoginResult{
		Status:           LoginSuccess,
		UserID:           user.UserID,
		Roles:            append([]string(nil), user.Roles...),
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}, nil
}

// recordFailedLogin increments the failure counter and locks the account
// when it reaches the threshold. It returns ErrInvalidCredentials, or
// ErrAccountLocked when a concurrent attempt locked the account first; in
// that case the counters are left alone.
func (e *Engine) recordFailedLogin(ctx context.Context, userID string, now time.Time) error {
	var lockedNow bool
	updated, err := e.store.Update(ctx, userID, func(u *UserRecord) error {
		if u.Locked(now) {
			return ErrAccountLocked
		}
		u.FailedLoginAttempts++
		lockedNow = false
		if u.FailedLoginAttempts >= e.config.Lockout.Threshold {
			until := now.Add(e.config.Lockout.Duration)
			u.LockedUntil = &until
			lockedNow = true
		}
		return nil
	})
	if errors.Is(err, ErrAccountLocked) {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventLoginLocked, false, userID, ErrAccountLocked, nil)
		return ErrAccountLocked
	}
	if err != nil {
		return storeError(err)
	}

	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, userID, ErrInvalidCredentials, nil)
	if lockedNow {
		e.metricInc(MetricAccountLocked)
		e.emitAudit(ctx, auditEventAccountLocked, true, userID, nil, func() map[string]string {
			return map[string]string{
				"failed_attempts": strconv.Itoa(updated.FailedLoginAttempts),
				"locked_until":    updated.LockedUntil.UTC().Format(time.RFC3339),
			}
		})
		e.logger.Warn("account locked after repeated login failures", "user_id", userID)
	}
	return ErrInvalidCredentials
}

// recordSuccessfulLogin clears the failure counter and lock and, when
// configured, replaces a hash made with weaker parameters.
func (e *Engine) recordSuccessfulLogin(ctx context.Context, user *UserRecord, plaintext string) (*UserRecord, error) {
	var upgraded string
	if e.config.Password.UpgradeOnLogin && e.hasher.NeedsUpgrade(user.PasswordHash) {
		if h, err := e.hasher.Hash(plaintext); err == nil {
			upgraded = h
		}
	}
	if user.FailedLoginAttempts == 0 && user.LockedUntil == nil && upgraded == "" {
		return user, nil
	}

	previousHash := user.PasswordHash
	updated, err := e.store.Update(ctx, user.UserID, func(u *UserRecord) error {
		u.FailedLoginAttempts = 0
		u.LockedUntil = nil
		if upgraded != "" && u.PasswordHash == previousHash {
			u.PasswordHash = upgraded
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return updated, nil
}

func usernameMeta(username string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"username": username}
	}
}
