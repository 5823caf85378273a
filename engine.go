package goSession

import (
	"context"
	"errors"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/goSession/internal/audit"
	"github.com/MrEthical07/goSession/internal/rate"
	"github.com/MrEthical07/goSession/password"
	"github.com/MrEthical07/goSession/registry"
	"github.com/MrEthical07/goSession/token"
	"github.com/MrEthical07/goSession/totp"
	"github.com/golang-jwt/jwt/v5"
)

// Engine runs every session and credential operation. Build one with [New].
type Engine struct {
	config    Config
	store     CredentialStore
	registry  *registry.Registry
	limiter   *rate.Limiter
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	hasher    *password.Argon2
	dummyHash string
	totp      *totp.Engine
	codec     *token.Codec
	logger    *slog.Logger
	now       func() time.Time
}

// Close drains pending audit events. The Engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditDelivered returns the number of audit events handed to the sink.
func (e *Engine) AuditDelivered() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Delivered()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Ping checks the session registry round trip.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.registry == nil {
		return 0, ErrEngineNotReady
	}
	d, err := e.registry.Ping(ctx)
	if err != nil {
		return 0, registryError(err)
	}
	return d, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.registry != nil && e.hasher != nil && e.codec != nil
}

// issuePair signs a new access/refresh pair for user. It does not touch the registry.
func (e *Engine) issuePair(user *UserRecord) (*TokenPair, error) {
	roles := append([]string(nil), user.Roles...)

	access, accessExp, err := e.codec.Encode(token.Claims{
		Roles:            roles,
		Type:             token.KindAccess,
		RegisteredClaims: subject(user.UserID),
	}, e.config.JWT.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := e.codec.Encode(token.Claims{
		Roles:            roles,
		Type:             token.KindRefresh,
		RegisteredClaims: subject(user.UserID),
	}, e.config.JWT.RefreshTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// decode maps codec failures onto the token error family.
func (e *Engine) decode(raw string, kind token.Kind) (*token.Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	claims, err := e.codec.Decode(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if claims.Type != kind {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// remaining is the time left before exp, never negative.
func (e *Engine) remaining(exp time.Time) time.Duration {
	d := exp.Sub(e.now())
	if d < 0 {
		return 0
	}
	return d
}

func subject(userID string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: userID}
}
