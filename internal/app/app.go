package app

import (
	"context"

	"plugin-router/internal/catalog"
	"plugin-router/internal/circuitbreaker"
	"plugin-router/internal/common/logging"
	"plugin-router/internal/config"
	"plugin-router/internal/plugins"
	"plugin-router/internal/ratelimit"
	"plugin-router/internal/redis"
	"plugin-router/internal/runner"
)

// App holds all the application dependencies
type App struct {
	Config      *config.Config
	Catalog     *catalog.Store
	Watcher     *catalog.Watcher
	RedisClient *redis.Client
	Limiter     ratelimit.Limiter
	Plugins     *plugins.Registry
	Breakers    *circuitbreaker.Manager
	Runner      *runner.Runner
	Logger      logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new application instance with all dependencies
func New(cfg *config.Config) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config: cfg,
		Logger: logging.GetGlobalLogger().WithFields(logging.String("component", "app")),
		ctx:    ctx,
		cancel: cancel,
	}

	// Initialize components in order of dependency
	if err := app.initializeCatalog(); err != nil {
		cancel()
		return nil, err
	}

	if err := app.initializeRedis(); err != nil {
		// Redis is optional, just log the error
		app.Logger.Warn("Redis initialization failed, continuing without Redis", logging.Err(err))
	}

	app.initializeRateLimiter()
	app.initializePlugins()
	app.initializeRunner()

	return app, nil
}

// Shutdown stops background workers: the catalog watcher and the reload
// subscription.
func (app *App) Shutdown(ctx context.Context) error {
	app.cancel()

	if app.Watcher != nil {
		if err := app.Watcher.Stop(); err != nil {
			app.Logger.Warn("Error stopping catalog watcher", logging.Err(err))
			return err
		}
		app.Logger.Info("Catalog watcher stopped")
	}
	return nil
}

// Cleanup releases all resources
func (app *App) Cleanup() {
	app.cancel()
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
