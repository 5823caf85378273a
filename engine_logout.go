package goSession

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goSession/token"
)

// Logout revokes accessToken for the rest of its lifetime and, with
// Session.RevokeRefreshOnLogout, ends the user's refresh session.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	claims, err := e.checkAccess(ctx, accessToken)
	if err != nil {
		return err
	}

	userID := ""
	if e.config.Session.RevokeRefreshOnLogout {
		userID = claims.UserID()
	}
	if err := e.registry.Logout(ctx, accessToken, e.remaining(claims.Expiry()), userID); err != nil {
		return registryError(err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, claims.UserID(), nil, nil)
	return nil
}

// ValidateAccess resolves accessToken to the calling principal. The token
// must be a signed, unexpired, unrevoked access token whose subject is an
// existing active user. Roles come from the user record, not the token.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*Principal, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			e.metrics.Observe(MetricValidateLatency, time.Since(start))
		}()
	}

	claims, err := e.checkAccess(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	user, err := e.store.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, storeError(err)
	}
	if !user.Active {
		return nil, ErrUserInactive
	}

	return &Principal{
		UserID:    user.UserID,
		Username:  user.Username,
		Roles:     append([]string(nil), user.Roles...),
		TokenID:   claims.ID,
		ExpiresAt: claims.Expiry(),
		Token:     accessToken,
	}, nil
}

// checkAccess decodes an access token and rejects blacklisted ones.
func (e *Engine) checkAccess(ctx context.Context, accessToken string) (*token.Claims, error) {
	claims, err := e.decode(accessToken, token.KindAccess)
	if err != nil {
		return nil, err
	}

	revoked, err := e.registry.IsRevoked(ctx, accessToken)
	if err != nil {
		return nil, registryError(err)
	}
	if revoked {
		e.metricInc(MetricRevokedTokenRejected)
		return nil, ErrTokenRevoked
	}
	return claims, nil
}
