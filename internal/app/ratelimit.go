package app

import (
	"plugin-router/internal/common/logging"
	"plugin-router/internal/ratelimit"
)

// initializeRateLimiter picks the Redis limiter when Redis is connected so
// limits are shared across replicas, and a local limiter otherwise.
func (app *App) initializeRateLimiter() {
	if !app.Config.RateLimitEnabled {
		app.Logger.Info("Rate Limiting: Disabled")
		return
	}

	limit, window := app.Config.RateLimit()
	rateLimitConfig := ratelimit.Config{
		DefaultLimit:  limit,
		DefaultWindow: window,
		Enabled:       true,
	}

	if app.RedisClient != nil {
		limiter, err := ratelimit.NewRedisLimiter(app.RedisClient, rateLimitConfig)
		if err == nil {
			app.Limiter = limiter
			app.Logger.Info("Rate Limiting: Enabled (redis)",
				logging.Int("limit", limit),
				logging.Duration("window", window),
			)
			return
		}
		app.Logger.Warn("Redis rate limiter unavailable, falling back to local", logging.Err(err))
	}

	limiter, err := ratelimit.NewLocalLimiter(rateLimitConfig)
	if err != nil {
		app.Logger.Warn("Rate limiter configuration rejected, rate limiting disabled", logging.Err(err))
		return
	}
	app.Limiter = limiter
	app.Logger.Info("Rate Limiting: Enabled (local)",
		logging.Int("limit", limit),
		logging.Duration("window", window),
	)
}
