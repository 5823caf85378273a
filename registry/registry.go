package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound is returned when the user has no live refresh token.
	ErrNotFound = errors.New("refresh session not found")
	// ErrRefreshMismatch is returned by RotateRefresh when the presented token is
	// not the stored one. The stored session has already been cleared.
	ErrRefreshMismatch = errors.New("refresh token mismatch")
	// ErrRedisUnavailable wraps every Redis failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const (
	rotateStatusMismatch int64 = 0
	rotateStatusRotated  int64 = 1
)

// KEYS[1] refresh key; ARGV[1] presented, ARGV[2] next, ARGV[3] ttl ms.
const rotateRefreshScript = `
local current = redis.call("GET", KEYS[1])
if current and current == ARGV[1] then
  redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
  return 1
end
redis.call("DEL", KEYS[1])
return 0
`

var rotateRefreshLua = redis.NewScript(rotateRefreshScript)

// Registry is the Redis-backed session registry.
type Registry struct {
	redis  redis.UniversalClient
	prefix string
}

// New returns a Registry using redisClient. prefix is prepended to every key.
func New(redisClient redis.UniversalClient, prefix string) *Registry {
	return &Registry{redis: redisClient, prefix: prefix}
}

func (r *Registry) refreshKey(userID string) string {
	return r.prefix + "refresh:" + userID
}

func (r *Registry) blacklistKey(token string) string {
	return r.prefix + "blacklist:" + token
}

// StoreRefresh makes token the user's only live refresh token.
func (r *Registry) StoreRefresh(ctx context.Context, userID, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("refresh ttl must be > 0")
	}
	if err := r.redis.Set(ctx, r.refreshKey(userID), token, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// CurrentRefresh returns the user's live refresh token, or ErrNotFound.
func (r *Registry) CurrentRefresh(ctx context.Context, userID string) (string, error) {
	tok, err := r.redis.Get(ctx, r.refreshKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return tok, nil
}

// RotateRefresh replaces presented with next when presented is still the live
// token. Any other state deletes the session and returns ErrRefreshMismatch.
func (r *Registry) RotateRefresh(ctx context.Context, userID, presented, next string, ttl time.Duration) error {
	if ttl <= 0 {
		return errors.New("refresh ttl must be > 0")
	}
	status, err := rotateRefreshLua.Run(
		ctx,
		r.redis,
		[]string{r.refreshKey(userID)},
		presented,
		next,
		ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch status {
	case rotateStatusRotated:
		return nil
	case rotateStatusMismatch:
		return ErrRefreshMismatch
	default:
		return fmt.Errorf("%w: unexpected rotate status %d", ErrRedisUnavailable, status)
	}
}

// InvalidateUser handles a reuse signal: the user's session is deleted and the
// leaked token is blacklisted for leakedTTL, in one transaction.
func (r *Registry) InvalidateUser(ctx context.Context, userID, leaked string, leakedTTL time.Duration) error {
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.refreshKey(userID))
		if leaked != "" && leakedTTL > 0 {
			pipe.Set(ctx, r.blacklistKey(leaked), "1", leakedTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteRefresh removes the user's refresh session. Missing keys are not an error.
func (r *Registry) DeleteRefresh(ctx context.Context, userID string) error {
	if err := r.redis.Del(ctx, r.refreshKey(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Revoke blacklists token for ttl. A non-positive ttl means the token has
// already expired and nothing is written.
func (r *Registry) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.redis.Set(ctx, r.blacklistKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether token is blacklisted.
func (r *Registry) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := r.redis.Exists(ctx, r.blacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Logout blacklists accessToken for ttl and, when userID is non-empty, deletes
// the user's refresh session in the same transaction.
func (r *Registry) Logout(ctx context.Context, accessToken string, ttl time.Duration, userID string) error {
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if ttl > 0 {
			pipe.Set(ctx, r.blacklistKey(accessToken), "1", ttl)
		}
		if userID != "" {
			pipe.Del(ctx, r.refreshKey(userID))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping measures a Redis round trip.
func (r *Registry) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
