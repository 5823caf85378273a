package goSession

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/registry"
	"github.com/MrEthical07/goSession/token"
	"github.com/MrEthical07/goSession/totp"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine] from explicit dependencies. A Builder can be
// used for one Build call.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  CredentialStore

	auditSink AuditSink
	logger    *slog.Logger

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. The Builder keeps its own copy.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client backing the session registry and IP throttle.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCredentialStore sets the user record store.
func (b *Builder) WithCredentialStore(store CredentialStore) *Builder {
	b.store = store
	return b
}

// WithAuditSink sets where audit events are delivered. Without one, events
// are dropped.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for best-effort failures. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, constructs every component and returns
// the Engine. It fails if a required dependency is missing.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.store == nil {
		return nil, errors.New("credential store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	// -------- PASSWORD HASHER --------
	hasher, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
		Policy: password.Policy{
			MinLength:          cfg.Password.MinLength,
			RequireUpper:       cfg.Password.RequireUpper,
			RequireLower:       cfg.Password.RequireLower,
			RequireDigit:       cfg.Password.RequireDigit,
			RequirePunctuation: cfg.Password.RequirePunctuation,
		},
		MaxPasswordBytes: cfg.Password.MaxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}
	dummy, err := hasher.DummyHash()
	if err != nil {
		return nil, err
	}

	// -------- TOTP --------
	otp, err := totp.New(totp.Config{
		Issuer:    cfg.TOTP.Issuer,
		Digits:    cfg.TOTP.Digits,
		Period:    cfg.TOTP.Period,
		Skew:      cfg.TOTP.Skew,
		Algorithm: cfg.TOTP.Algorithm,
	})
	if err != nil {
		return nil, err
	}

	// -------- TOKEN CODEC --------
	codec, err := token.NewCodec(token.Config{
		SigningMethod: token.SigningMethod(strings.ToLower(cfg.JWT.SigningMethod)),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:    cloneConfig(cfg),
		store:     b.store,
		registry:  registry.New(b.redis, cfg.Session.RedisPrefix),
		hasher:    hasher,
		dummyHash: dummy,
		totp:      otp,
		codec:     codec,
		logger:    logger,
		metrics:   NewMetrics(cfg.Metrics),
		now:       time.Now,
	}
	engine.limiter = rate.New(b.redis, rate.Config{
		Enabled:     cfg.Security.EnableIPThrottle,
		MaxAttempts: cfg.Security.MaxIPAttempts,
		Window:      cfg.Security.IPWindow,
		Prefix:      cfg.Session.RedisPrefix,
	})
	engine.audit = internalaudit.NewDispatcherWithLogger(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, logger)

	b.built = true

	return engine, nil
}
