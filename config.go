package goSession

import (
	"errors"
	"strings"
	"time"
)

// Config holds every tunable of the Engine. Obtain one from [DefaultConfig],
// adjust it, and pass it to [Builder.WithConfig]; the builder keeps a copy.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	TOTP     TOTPConfig
	Lockout  LockoutConfig
	Session  SessionConfig
	Account  AccountConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token signing and lifetimes.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds argon2id costs and the complexity policy.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinLength          int
	RequireUpper       bool
	RequireLower       bool
	RequireDigit       bool
	RequirePunctuation bool
	MaxPasswordBytes   int

	// UpgradeOnLogin rehashes a stored hash with weaker parameters after a
	// successful login.
	UpgradeOnLogin bool
}

/*
====================================
TOTP CONFIG
====================================
*/

type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Skew      int
	Algorithm string
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls persisted account lockout. Threshold consecutive
// failed passwords lock the account for Duration.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

type SessionConfig struct {
	RedisPrefix           string
	RevokeRefreshOnLogout bool
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

type AccountConfig struct {
	EnableRegistration bool
	DefaultRole        string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls the per-IP throttle in front of login and registration.
type SecurityConfig struct {
	EnableIPThrottle bool
	MaxIPAttempts    int
	IPWindow         time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the production defaults. JWT.PrivateKey is left empty
// and must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "goSession",
		},
		Password: PasswordConfig{
			Memory:             65536,
			Time:               3,
			Parallelism:        2,
			SaltLength:         16,
			KeyLength:          32,
			MinLength:          8,
			RequireUpper:       true,
			RequireLower:       true,
			RequireDigit:       true,
			RequirePunctuation: true,
			MaxPasswordBytes:   1024,
			UpgradeOnLogin:     true,
		},
		TOTP: TOTPConfig{
			Issuer:    "goSession",
			Digits:    6,
			Period:    30,
			Skew:      1,
			Algorithm: "SHA1",
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  30 * time.Minute,
		},
		Session: SessionConfig{
			RedisPrefix:           "",
			RevokeRefreshOnLogout: true,
		},
		Account: AccountConfig{
			EnableRegistration: true,
			DefaultRole:        "viewer",
		},
		Security: SecurityConfig{
			EnableIPThrottle: false,
			MaxIPAttempts:    20,
			IPWindow:         time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for values the Engine cannot run with.
// Component-level checks (argon2 parameters, TOTP shape, key parsing) run
// again when the Builder constructs each component.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be greater than AccessTTL")
	}
	switch strings.ToLower(c.JWT.SigningMethod) {
	case "hs256", "":
		if len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 {
			return errors.New("ed25519 requires PrivateKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// TOTP
	if strings.TrimSpace(c.TOTP.Issuer) == "" {
		return errors.New("TOTP Issuer must be set")
	}
	if c.TOTP.Digits != 6 && c.TOTP.Digits != 8 {
		return errors.New("TOTP Digits must be 6 or 8")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("TOTP Period must be > 0")
	}
	if c.TOTP.Skew < 0 {
		return errors.New("TOTP Skew must be >= 0")
	}

	// Lockout
	if c.Lockout.Threshold < 1 {
		return errors.New("Lockout Threshold must be >= 1")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout Duration must be > 0")
	}

	// Account
	if c.Account.EnableRegistration && strings.TrimSpace(c.Account.DefaultRole) == "" {
		return errors.New("Account DefaultRole must be set when registration is enabled")
	}

	// Security
	if c.Security.EnableIPThrottle {
		if c.Security.MaxIPAttempts <= 0 {
			return errors.New("Security MaxIPAttempts must be > 0")
		}
		if c.Security.IPWindow <= 0 {
			return errors.New("Security IPWindow must be > 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
