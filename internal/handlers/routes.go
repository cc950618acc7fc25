package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register mounts every endpoint on router. The sources route is declared
// before the query route so "sources" is never read as a ressource. Admin
// routes only answer callers in the admin networks.
func (h *Handlers) Register(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	admin := router.PathPrefix("/admin").Subrouter()
	admin.Use(h.adminOnly)
	admin.HandleFunc("/reload", h.Reload).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sources", h.GetSources).Methods(http.MethodGet)
	api.HandleFunc("/sources/{project}", h.GetSources).Methods(http.MethodGet)
	api.HandleFunc("/{ressource}/{method}", h.HandleQuery).Methods(http.MethodGet, http.MethodPost)
}
