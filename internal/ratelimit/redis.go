package ratelimit

import (
	"context"
	"time"

	"plugin-router/internal/common/errors"
)

// Counter is the Redis capability the distributed limiter needs.
type Counter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// RedisLimiter shares counters between replicas.
type RedisLimiter struct {
	counter Counter
	config  Config
}

func NewRedisLimiter(counter Counter, config Config) (*RedisLimiter, error) {
	if counter == nil {
		return nil, errors.ConfigError("redis client is required for distributed rate limiting")
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigError(err.Error())
	}
	return &RedisLimiter{counter: counter, config: config}, nil
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (*Decision, error) {
	if !l.config.Enabled {
		return allowAll(l.config), nil
	}

	allowed, current, err := l.counter.CheckRateLimit(ctx, "rate_limit:"+key, l.config.DefaultLimit, l.config.DefaultWindow)
	if err != nil {
		return nil, errors.InternalError("failed to check rate limit", err)
	}

	remaining := l.config.DefaultLimit - current - 1
	if remaining < 0 {
		remaining = 0
	}

	return &Decision{
		Allowed:   allowed,
		Limit:     l.config.DefaultLimit,
		Remaining: remaining,
		Window:    l.config.DefaultWindow,
		ResetTime: time.Now().Add(l.config.DefaultWindow),
	}, nil
}
