package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds limiter tuning parameters.
type Config struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
	Prefix      string
}

// Limiter counts attempts per scope and key in fixed windows.
type Limiter struct {
	redis  redis.UniversalClient
	config Config
}

// New creates a [Limiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) *Limiter {
	return &Limiter{
		redis:  redisClient,
		config: cfg,
	}
}

// Allow records one attempt for key in scope and returns ErrRateLimited once
// the window holds more than MaxAttempts. Empty keys and a disabled limiter
// always pass.
func (l *Limiter) Allow(ctx context.Context, scope, key string) error {
	if l == nil || !l.config.Enabled || key == "" {
		return nil
	}

	count, err := l.incrementWithTTL(ctx, l.key(scope, key), l.config.Window)
	if err != nil {
		return err
	}
	if count > int64(l.config.MaxAttempts) {
		return ErrRateLimited
	}
	return nil
}

func (l *Limiter) key(scope, key string) string {
	return l.config.Prefix + "rl:" + scope + ":" + key
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
