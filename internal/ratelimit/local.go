package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"plugin-router/internal/common/errors"
)

const defaultMaxKeys = 10000

// LocalLimiter keeps one token bucket per key in process. A bucket refills
// DefaultLimit tokens per DefaultWindow and holds at most DefaultLimit.
type LocalLimiter struct {
	mu       sync.Mutex
	config   Config
	limiters map[string]*limiterEntry
	maxKeys  int

	lastCleanup time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

func NewLocalLimiter(config Config) (*LocalLimiter, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigError(err.Error())
	}
	return &LocalLimiter{
		config:      config,
		limiters:    make(map[string]*limiterEntry),
		maxKeys:     defaultMaxKeys,
		lastCleanup: time.Now(),
	}, nil
}

// Allow implements Limiter.
func (l *LocalLimiter) Allow(ctx context.Context, key string) (*Decision, error) {
	if !l.config.Enabled {
		return allowAll(l.config), nil
	}

	limiter := l.getLimiterForKey(key)
	allowed := limiter.Allow()
	remaining := int(limiter.Tokens())
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

// Wait blocks until key has a token or ctx is done.
func (l *LocalLimiter) Wait(ctx context.Context, key string) error {
	if !l.config.Enabled {
		return nil
	}
	return l.getLimiterForKey(key).Wait(ctx)
}

// Keys returns the number of tracked keys.
func (l *LocalLimiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *LocalLimiter) getLimiterForKey(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCleanup) > l.config.DefaultWindow {
		l.cleanup()
	}

	entry, exists := l.limiters[key]
	if !exists {
		every := rate.Every(l.config.DefaultWindow / time.Duration(l.config.DefaultLimit))
		entry = &limiterEntry{limiter: rate.NewLimiter(every, l.config.DefaultLimit)}
		l.limiters[key] = entry

		if len(l.limiters) > l.maxKeys {
			l.cleanup()
		}
	}
	entry.lastUsed = time.Now()

	return entry.limiter
}

// cleanup drops buckets idle for a whole window; they would be full again.
func (l *LocalLimiter) cleanup() {
	cutoff := time.Now().Add(-l.config.DefaultWindow)
	for key, entry := range l.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
	l.lastCleanup = time.Now()
}
