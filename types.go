package goSession

import (
	"context"
	"time"
)

// CredentialStore is the persistence boundary for user records. Implementations
// must be safe for concurrent use.
//
// Update is the transaction boundary for per-user read-modify-write: the record
// is read under a lock, mutate runs against that copy, and the result is
// written before the lock is released. An error from mutate aborts the write
// and is returned unchanged.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)
	FindByID(ctx context.Context, userID string) (*UserRecord, error)
	Create(ctx context.Context, user UserRecord) (*UserRecord, error)
	Update(ctx context.Context, userID string, mutate func(*UserRecord) error) (*UserRecord, error)
}

// UserRecord is the persisted account state.
type UserRecord struct {
	UserID       string
	Username     string
	Email        string
	DisplayName  string
	PasswordHash string
	Roles        []string
	Active       bool

	MFAEnabled bool
	TOTPSecret string

	FailedLoginAttempts int
	LockedUntil         *time.Time

	CreatedAt time.Time
}

// Locked reports whether the lock is still in force at now.
func (u *UserRecord) Locked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// Clone returns a deep copy.
func (u *UserRecord) Clone() *UserRecord {
	if u == nil {
		return nil
	}
	out := *u
	if u.Roles != nil {
		out.Roles = append([]string(nil), u.Roles...)
	}
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		out.LockedUntil = &t
	}
	return &out
}

// LoginRequest carries login input. TOTPCode is only consulted for users with MFA enabled.
type LoginRequest struct {
	Username string
	Password string
	TOTPCode string
}

// LoginStatus distinguishes a completed login from one waiting for a TOTP code.
type LoginStatus string

const (
	LoginSuccess     LoginStatus = "success"
	LoginMFARequired LoginStatus = "mfa_required"
)

// LoginResult is returned by [Engine.Login]. Tokens are empty when Status is
// LoginMFARequired.
type LoginResult struct {
	Status           LoginStatus
	UserID           string
	Roles            []string
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenPair is a freshly issued access/refresh pair.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// MFASetup is the unpersisted enrollment material returned by [Engine.SetupMFA].
type MFASetup struct {
	Secret          string
	ProvisioningURI string
}

// RegisterRequest carries self-registration input.
type RegisterRequest struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// Principal is the authenticated caller resolved from an access token.
type Principal struct {
	UserID    string
	Username  string
	Roles     []string
	TokenID   string
	ExpiresAt time.Time
	Token     string
}

// HasRole reports whether the principal carries role.
func (p *Principal) HasRole(role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
