package security

import (
	"log/slog"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

// minimum argon2id memory (KB) recommended for production
const recommendedArgonMemory = 19 * 1024

type PasswordReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

type Report struct {
	ProductionMode        bool
	SigningAlgorithm      string
	AccessTTL             time.Duration
	RefreshTTL            time.Duration
	Argon2                PasswordReport
	UpgradeOnLogin        bool
	LockoutThreshold      int
	LockoutDuration       time.Duration
	IPThrottleActive      bool
	RegistrationOpen      bool
	RevokeRefreshOnLogout bool
	CookieSecure          bool
	AuditEnabled          bool
	MetricsEnabled        bool
}

// BuildReport derives a Report from cfg and the transport settings.
func BuildReport(cfg goSession.Config, production, cookieSecure bool) Report {
	return Report{
		ProductionMode:   production,
		SigningAlgorithm: cfg.JWT.SigningMethod,
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		Argon2: PasswordReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		UpgradeOnLogin:        cfg.Password.UpgradeOnLogin,
		LockoutThreshold:      cfg.Lockout.Threshold,
		LockoutDuration:       cfg.Lockout.Duration,
		IPThrottleActive:      cfg.Security.EnableIPThrottle && cfg.Security.MaxIPAttempts > 0,
		RegistrationOpen:      cfg.Account.EnableRegistration,
		RevokeRefreshOnLogout: cfg.Session.RevokeRefreshOnLogout,
		CookieSecure:          cookieSecure,
		AuditEnabled:          cfg.Audit.Enabled,
		MetricsEnabled:        cfg.Metrics.Enabled,
	}
}

// Warnings lists settings that weaken the deployment. Production-only
// concerns are reported only when ProductionMode is set.
func (r Report) Warnings() []string {
	var out []string
	if !r.CookieSecure {
		out = append(out, "cookies are sent without the Secure attribute")
	}
	if r.Argon2.Memory < recommendedArgonMemory {
		out = append(out, "argon2id memory is below 19 MiB")
	}
	if r.AccessTTL > time.Hour {
		out = append(out, "access tokens live longer than one hour")
	}
	if !r.RevokeRefreshOnLogout {
		out = append(out, "logout keeps the refresh session alive")
	}
	if r.ProductionMode {
		if !r.IPThrottleActive {
			out = append(out, "per-IP login throttle is off")
		}
		if !r.AuditEnabled {
			out = append(out, "audit events are disabled")
		}
	}
	return out
}

// Log writes the report as one structured line plus one warning per weak setting.
func (r Report) Log(logger *slog.Logger) {
	logger.Info("security posture",
		"production", r.ProductionMode,
		"signing_algorithm", r.SigningAlgorithm,
		"access_ttl", r.AccessTTL,
		"refresh_ttl", r.RefreshTTL,
		"argon2_memory_kb", r.Argon2.Memory,
		"argon2_time", r.Argon2.Time,
		"argon2_parallelism", r.Argon2.Parallelism,
		"lockout_threshold", r.LockoutThreshold,
		"lockout_duration", r.LockoutDuration,
		"ip_throttle", r.IPThrottleActive,
		"registration_open", r.RegistrationOpen,
		"cookie_secure", r.CookieSecure,
		"audit", r.AuditEnabled,
		"metrics", r.MetricsEnabled,
	)
	for _, w := range r.Warnings() {
		logger.Warn("security posture", "warning", w)
	}
}
