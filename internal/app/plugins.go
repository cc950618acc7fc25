package app

import (
	"plugin-router/internal/circuitbreaker"
	commonhttp "plugin-router/internal/common/http"
	"plugin-router/internal/common/logging"
	"plugin-router/internal/plugins"
	"plugin-router/internal/plugins/builtin"
	"plugin-router/internal/ratelimit"
)

// initializePlugins registers the built-in plugins. The http plugin gets its
// own breakers and a per-host limiter so one slow upstream cannot starve the
// others.
func (app *App) initializePlugins() {
	if app.Config.CircuitBreakerEnabled {
		app.Breakers = circuitbreaker.NewManager(circuitbreaker.DefaultConfig(), app.Logger)
	}

	var clientOpts []commonhttp.ClientOption
	if timeout := app.Config.Timeout(); timeout > 0 {
		clientOpts = append(clientOpts, commonhttp.WithTimeout(timeout))
	}
	client := commonhttp.NewClient(clientOpts...)
	client.WithCircuitBreakers(circuitbreaker.NewManager(circuitbreaker.HTTPConfig, app.Logger))

	limit, window := app.Config.RateLimit()
	if hostLimiter, err := ratelimit.NewLocalLimiter(ratelimit.Config{
		DefaultLimit:  limit,
		DefaultWindow: window,
		Enabled:       app.Config.RateLimitEnabled,
	}); err == nil {
		client.WithRateLimiter(hostLimiter)
	}

	app.Plugins = plugins.NewRegistry()
	builtin.Register(app.Plugins, client)

	app.Logger.Info("Plugins registered", logging.Strings("plugins", app.Plugins.Names()))
}
