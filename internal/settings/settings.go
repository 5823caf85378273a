// Package settings loads sessiond's service configuration from the
// environment, an optional config file and defaults.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Settings holds all configuration for the sessiond service.
type Settings struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`

	StoreDriver string `mapstructure:"STORE_DRIVER"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	RedisURL    string `mapstructure:"REDIS_URL"`
	RedisPrefix string `mapstructure:"REDIS_PREFIX"`

	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	JWTIssuer     string        `mapstructure:"JWT_ISSUER"`
	JWTAudience   string        `mapstructure:"JWT_AUDIENCE"`
	JWTAccessTTL  time.Duration `mapstructure:"JWT_ACCESS_TTL"`
	JWTRefreshTTL time.Duration `mapstructure:"JWT_REFRESH_TTL"`
	TOTPIssuer    string        `mapstructure:"TOTP_ISSUER"`

	LockoutThreshold    int           `mapstructure:"LOCKOUT_THRESHOLD"`
	LockoutDuration     time.Duration `mapstructure:"LOCKOUT_DURATION"`
	IPThrottleEnabled   bool          `mapstructure:"IP_THROTTLE_ENABLED"`
	RegistrationEnabled bool          `mapstructure:"REGISTRATION_ENABLED"`

	CookieSecure       bool     `mapstructure:"COOKIE_SECURE"`
	CookieDomain       string   `mapstructure:"COOKIE_DOMAIN"`
	CORSAllowedOrigins []string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	SentryDSN string `mapstructure:"SENTRY_DSN"`

	// OTelMetricsInterval > 0 exports engine metrics through OpenTelemetry.
	OTelMetricsInterval time.Duration `mapstructure:"OTEL_METRICS_INTERVAL"`

	AMQPURL       string `mapstructure:"AMQP_URL"`
	AuditExchange string `mapstructure:"AUDIT_EXCHANGE"`
}

var defaults = map[string]interface{}{
	"APP_ENV":               "development",
	"HTTP_ADDR":             ":8080",
	"STORE_DRIVER":          StoreDriverPostgres,
	"DATABASE_URL":          "",
	"REDIS_URL":             "redis://localhost:6379/0",
	"REDIS_PREFIX":          "",
	"JWT_SECRET":            "",
	"JWT_ISSUER":            "goSession",
	"JWT_AUDIENCE":          "",
	"JWT_ACCESS_TTL":        "15m",
	"JWT_REFRESH_TTL":       "168h",
	"TOTP_ISSUER":           "goSession",
	"LOCKOUT_THRESHOLD":     5,
	"LOCKOUT_DURATION":      "30m",
	"IP_THROTTLE_ENABLED":   false,
	"REGISTRATION_ENABLED":  true,
	"COOKIE_SECURE":         true,
	"COOKIE_DOMAIN":         "",
	"CORS_ALLOWED_ORIGINS":  []string{"http://localhost:3000"},
	"LOG_LEVEL":             "info",
	"LOG_FORMAT":            "text",
	"SENTRY_DSN":            "",
	"OTEL_METRICS_INTERVAL": "0s",
	"AMQP_URL":              "",
	"AUDIT_EXCHANGE":        "gosession.audit",
}

// Load reads settings from the environment and, when path is non-empty, from
// that config file. Environment variables win over the file.
func Load(path string) (*Settings, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		// bound explicitly so Unmarshal sees env-only keys
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	s.CORSAllowedOrigins = splitOrigins(s.CORSAllowedOrigins)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Production reports whether APP_ENV is production.
func (s *Settings) Production() bool {
	return strings.EqualFold(s.AppEnv, "production")
}

// Validate rejects settings the service cannot start with.
func (s *Settings) Validate() error {
	switch s.StoreDriver {
	case StoreDriverPostgres:
		if s.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case StoreDriverMemory:
		if s.Production() {
			return errors.New("STORE_DRIVER=memory is not allowed in production")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", s.StoreDriver)
	}
	if len(s.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 bytes")
	}
	if s.RedisURL == "" {
		return errors.New("REDIS_URL is required")
	}
	if s.OTelMetricsInterval < 0 {
		return errors.New("OTEL_METRICS_INTERVAL must not be negative")
	}
	if s.Production() && !s.CookieSecure {
		return errors.New("COOKIE_SECURE=false is not allowed in production")
	}
	return nil
}

// EngineConfig maps the settings onto the engine defaults.
func (s *Settings) EngineConfig() goSession.Config {
	cfg := goSession.DefaultConfig()
	cfg.JWT.PrivateKey = []byte(s.JWTSecret)
	cfg.JWT.Issuer = s.JWTIssuer
	cfg.JWT.Audience = s.JWTAudience
	if s.JWTAccessTTL > 0 {
		cfg.JWT.AccessTTL = s.JWTAccessTTL
	}
	if s.JWTRefreshTTL > 0 {
		cfg.JWT.RefreshTTL = s.JWTRefreshTTL
	}
	cfg.TOTP.Issuer = s.TOTPIssuer
	if s.LockoutThreshold > 0 {
		cfg.Lockout.Threshold = s.LockoutThreshold
	}
	if s.LockoutDuration > 0 {
		cfg.Lockout.Duration = s.LockoutDuration
	}
	cfg.Session.RedisPrefix = s.RedisPrefix
	cfg.Security.EnableIPThrottle = s.IPThrottleEnabled
	cfg.Account.EnableRegistration = s.RegistrationEnabled
	return cfg
}

// splitOrigins accepts both list values and a single comma-separated string.
func splitOrigins(in []string) []string {
	var out []string
	for _, item := range in {
		for _, origin := range strings.Split(item, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				out = append(out, origin)
			}
		}
	}
	return out
}
