package app

import (
	"net/http"

	"github.com/gorilla/mux"

	"plugin-router/internal/handlers"
	"plugin-router/internal/middleware"
	"plugin-router/internal/ratelimit"
	"plugin-router/internal/server"
)

// RunServer builds the handlers and the HTTP server around them.
func (app *App) RunServer() (*server.Server, http.Handler) {
	opts := handlers.Options{
		ClientIP:      middleware.NewClientIPExtractor(app.Config.TrustedProxyNetworks()),
		AdminNetworks: app.Config.AdminNetworkList(),
		ReloadChannel: app.Config.ReloadChannel,
		Breakers:      app.Breakers,
		Logger:        app.Logger,
	}
	// Nil pointers must not become non-nil interfaces.
	if app.RedisClient != nil {
		opts.Redis = app.RedisClient
	}
	if app.Plugins != nil {
		opts.Plugins = app.Plugins
	}
	if local, ok := app.Limiter.(*ratelimit.LocalLimiter); ok && local != nil {
		opts.RateLimiter = local
	}

	h := handlers.New(app.Runner, app.Catalog, opts)

	router := mux.NewRouter()
	SetupRoutes(router, h, app)

	srv := server.New(router, app.Config.Port, app.Config.TLSCert, app.Config.TLSKey, app.Logger)
	return srv, router
}
