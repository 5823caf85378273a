package settings

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func setBaseEnv(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", secret)
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", s.HTTPAddr)
	assert.Equal(t, 15*time.Minute, s.JWTAccessTTL)
	assert.Equal(t, 7*24*time.Hour, s.JWTRefreshTTL)
	assert.Equal(t, 5, s.LockoutThreshold)
	assert.Equal(t, 30*time.Minute, s.LockoutDuration)
	assert.True(t, s.CookieSecure, "cookies default to Secure")
	assert.True(t, s.RegistrationEnabled)
	assert.Equal(t, []string{"http://localhost:3000"}, s.CORSAllowedOrigins)
	assert.Zero(t, s.OTelMetricsInterval, "otel export is off by default")
}

func TestLoadEnvOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("JWT_ACCESS_TTL", "5m")
	t.Setenv("LOCKOUT_THRESHOLD", "3")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("IP_THROTTLE_ENABLED", "true")
	t.Setenv("OTEL_METRICS_INTERVAL", "15s")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9999", s.HTTPAddr)
	assert.Equal(t, 5*time.Minute, s.JWTAccessTTL)
	assert.Equal(t, 3, s.LockoutThreshold)
	assert.False(t, s.CookieSecure)
	assert.True(t, s.IPThrottleEnabled)
	assert.Equal(t, 15*time.Second, s.OTelMetricsInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.CORSAllowedOrigins)
}

func TestLoadConfigFile(t *testing.T) {
	setBaseEnv(t)
	path := filepath.Join(t.TempDir(), "sessiond.yaml")
	require.NoError(t, os.WriteFile(path, []byte("HTTP_ADDR: \":7070\"\nTOTP_ISSUER: Acme\n"), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", s.HTTPAddr)
	assert.Equal(t, "Acme", s.TOTPIssuer)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	t.Run("short secret", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("JWT_SECRET", "short")
		_, err := Load("")
		assert.ErrorContains(t, err, "JWT_SECRET")
	})
	t.Run("postgres without url", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "")
		_, err := Load("")
		assert.ErrorContains(t, err, "DATABASE_URL")
	})
	t.Run("unknown driver", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("STORE_DRIVER", "sqlite")
		_, err := Load("")
		assert.ErrorContains(t, err, "STORE_DRIVER")
	})
	t.Run("negative otel interval", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("OTEL_METRICS_INTERVAL", "-1s")
		_, err := Load("")
		assert.ErrorContains(t, err, "OTEL_METRICS_INTERVAL")
	})
	t.Run("insecure cookies in production", func(t *testing.T) {
		setBaseEnv(t)
		t.Setenv("APP_ENV", "production")
		t.Setenv("STORE_DRIVER", "postgres")
		t.Setenv("DATABASE_URL", "postgres://localhost/sessions")
		t.Setenv("COOKIE_SECURE", "false")
		_, err := Load("")
		assert.ErrorContains(t, err, "COOKIE_SECURE")
	})
}

func TestEngineConfigMapping(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_ISSUER", "acme")
	t.Setenv("LOCKOUT_DURATION", "10m")
	t.Setenv("REGISTRATION_ENABLED", "false")

	s, err := Load("")
	require.NoError(t, err)

	cfg := s.EngineConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []byte(secret), cfg.JWT.PrivateKey)
	assert.Equal(t, "acme", cfg.JWT.Issuer)
	assert.Equal(t, 10*time.Minute, cfg.Lockout.Duration)
	assert.Equal(t, 5, cfg.Lockout.Threshold)
	assert.False(t, cfg.Account.EnableRegistration)
}
