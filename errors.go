package goSession

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/password"
)

var (
	// ErrPolicyViolation is returned when a new password does not meet the complexity policy.
	ErrPolicyViolation = password.ErrPolicyViolation
	// ErrInvalidCredentials is returned for an unknown user or a wrong password. The two are indistinguishable.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is returned while LockedUntil is in the future.
	ErrAccountLocked = errors.New("account locked")
	// ErrInvalidMFACode is returned when a TOTP code does not verify.
	ErrInvalidMFACode = errors.New("invalid mfa code")
	// ErrInvalidToken covers every token that cannot be accepted.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for a token past its exp. It wraps ErrInvalidToken.
	ErrTokenExpired = fmt.Errorf("%w: expired", ErrInvalidToken)
	// ErrTokenRevoked is returned for a blacklisted token. It wraps ErrInvalidToken.
	ErrTokenRevoked = fmt.Errorf("%w: revoked", ErrInvalidToken)
	// ErrSessionInvalidated is returned when refresh-token reuse was detected and the session was cleared.
	ErrSessionInvalidated = errors.New("session invalidated")
	// ErrUserInactive is returned for deactivated users.
	ErrUserInactive = errors.New("user inactive")
	// ErrStoreUnavailable wraps credential store failures.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrRegistryUnavailable wraps session registry failures.
	ErrRegistryUnavailable = errors.New("session registry unavailable")
	// ErrUserNotFound is returned by stores for a missing user.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned when the username or email is taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrInvalidRegistration is returned when username or email is missing.
	ErrInvalidRegistration = errors.New("username and email are required")
	// ErrRegistrationDisabled is returned by Register when Account.EnableRegistration is false.
	ErrRegistrationDisabled = errors.New("registration disabled")
	// ErrPasswordReuse is returned when the new password equals the old one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrMFAInputRequired is returned when the secret or code is missing.
	ErrMFAInputRequired = errors.New("mfa secret and code are required")
	// ErrMFAAlreadyEnabled is returned by EnableMFA for a user with MFA on.
	ErrMFAAlreadyEnabled = errors.New("mfa already enabled")
	// ErrMFANotEnabled is returned by DisableMFA for a user with MFA off.
	ErrMFANotEnabled = errors.New("mfa not enabled")
	// ErrLoginRateLimited is returned when the per-IP throttle trips.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrEngineNotReady is returned by methods on an Engine not built through Builder.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// IsUnavailable reports whether err is an infrastructure failure rather than
// an authentication outcome.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrRegistryUnavailable)
}

var storeSentinels = []error{
	ErrUserNotFound,
	ErrAccountExists,
	ErrInvalidCredentials,
	ErrAccountLocked,
	ErrInvalidMFACode,
	ErrMFANotEnabled,
	ErrMFAAlreadyEnabled,
	ErrPolicyViolation,
	ErrPasswordReuse,
	ErrUserInactive,
	ErrStoreUnavailable,
}

// storeError passes known outcomes through and wraps anything else as an
// infrastructure failure. Errors returned from Update mutators arrive here too.
func storeError(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range storeSentinels {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func registryError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
}
