package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/registry"
	"github.com/MrEthical07/goSession/token"
)

// Refresh exchanges a refresh token for a new pair and retires the presented
// one. A refresh token that is not the user's live session is treated as
// stolen: the session is cleared, the presented token is blacklisted and
// ErrSessionInvalidated is returned. Losing a concurrent rotation race is
// treated the same way.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	claims, err := e.decode(refreshToken, token.KindRefresh)
	if err != nil {
		return nil, e.refreshRejected(ctx, "", err)
	}
	userID := claims.UserID()

	current, err := e.registry.CurrentRefresh(ctx, userID)
	if err != nil && !errors.Is(err, registry.ErrNotFound) {
		return nil, registryError(err)
	}
	if current != refreshToken {
		return nil, e.invalidateSession(ctx, userID, refreshToken, claims.Expiry())
	}

	user, err := e.store.FindByID(ctx, userID)
	switch {
	case errors.Is(err, ErrUserNotFound):
		return nil, e.refreshRejected(ctx, userID, ErrUserInactive)
	case err != nil:
		return nil, storeError(err)
	case !user.Active:
		return nil, e.refreshRejected(ctx, userID, ErrUserInactive)
	}

	pair, err := e.issuePair(user)
	if err != nil {
		return nil, err
	}

	if err := e.registry.RotateRefresh(ctx, userID, refreshToken, pair.RefreshToken, e.config.JWT.RefreshTTL); err != nil {
		if errors.Is(err, registry.ErrRefreshMismatch) {
			return nil, e.invalidateSession(ctx, userID, refreshToken, claims.Expiry())
		}
		return nil, registryError(err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, userID, nil, nil)
	return pair, nil
}

// invalidateSession handles a reuse signal for userID and returns
// ErrSessionInvalidated, or a registry error if the cleanup itself failed.
func (e *Engine) invalidateSession(ctx context.Context, userID, presented string, presentedExp time.Time) error {
	if err := e.registry.InvalidateUser(ctx, userID, presented, e.remaining(presentedExp)); err != nil {
		return registryError(err)
	}

	e.metricInc(MetricRefreshReuseDetected)
	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, auditEventRefreshReuseDetected, false, userID, ErrSessionInvalidated, nil)
	e.logger.Warn("refresh token reuse detected, session cleared", "user_id", userID)
	return ErrSessionInvalidated
}

func (e *Engine) refreshRejected(ctx context.Context, userID string, err error) error {
	e.metricInc(MetricRefreshFailure)
	e.emitAudit(ctx, auditEventRefreshInvalid, false, userID, err, nil)
	return err
}
