package app

import (
	"github.com/gorilla/mux"

	"plugin-router/internal/handlers"
	"plugin-router/internal/middleware"
)

// SetupRoutes configures all HTTP routes for the application
func SetupRoutes(router *mux.Router, h *handlers.Handlers, app *App) {
	router.Use(middleware.RequestID)
	router.Use(middleware.Recovery(app.Logger))
	router.Use(middleware.Logging(app.Logger))
	router.Use(middleware.Metrics)

	h.Register(router)
}
