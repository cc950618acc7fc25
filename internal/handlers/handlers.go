// Package handlers binds the router to HTTP.
package handlers

import (
	"context"
	"net"
	"net/http"
	"path"
	"time"

	"github.com/gorilla/mux"

	"plugin-router/internal/catalog"
	"plugin-router/internal/circuitbreaker"
	"plugin-router/internal/common/errors"
	"plugin-router/internal/common/logging"
	"plugin-router/internal/dispatch"
	"plugin-router/internal/middleware"
	"plugin-router/internal/query"
)

// Request parameters that are not plugin arguments. Each can also be sent as
// a header.
const (
	ParamSource    = "source"
	ParamProject   = "project"
	ParamSignature = "signature"

	HeaderSource    = "X-Source"
	HeaderProject   = "X-Project"
	HeaderSignature = "X-Signature"
)

// Executor runs queries. Implemented by runner.Runner.
type Executor interface {
	Execute(ctx context.Context, q query.Query) (*dispatch.Result, error)
	Sources(project string) ([]string, error)
}

// Catalog is the reloadable configuration store.
type Catalog interface {
	Reload() error
	Status() catalog.Status
}

// Broadcaster is the subset of the Redis client used by the handlers.
type Broadcaster interface {
	Health() error
	Publish(ctx context.Context, channel string, message string) error
}

// PluginInventory lists the registered plugins for /health.
type PluginInventory interface {
	Names() []string
	Count() int
}

// KeyCounter reports how many rate-limit keys a local limiter tracks.
type KeyCounter interface {
	Keys() int
}

// Options configures optional handler collaborators.
type Options struct {
	// ClientIP finds the caller behind trusted proxies. Nil uses RemoteAddr.
	ClientIP *middleware.ClientIPExtractor
	// AdminNetworks may call /admin endpoints. Nil leaves them open.
	AdminNetworks []*net.IPNet
	// Redis, when set, is reported by /health and notified on reload.
	Redis         Broadcaster
	ReloadChannel string
	Breakers      *circuitbreaker.Manager
	Plugins       PluginInventory
	RateLimiter   KeyCounter
	Logger        logging.Logger
}

type Handlers struct {
	runner   Executor
	catalog  Catalog
	redis    Broadcaster
	breakers *circuitbreaker.Manager
	plugins  PluginInventory
	limiter  KeyCounter

	clientIP      *middleware.ClientIPExtractor
	adminNetworks []*net.IPNet
	reloadChannel string
	logger        logging.Logger
	startedAt     time.Time
}

func New(runner Executor, store Catalog, opts Options) *Handlers {
	logger := opts.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Handlers{
		runner:        runner,
		catalog:       store,
		redis:         opts.Redis,
		breakers:      opts.Breakers,
		plugins:       opts.Plugins,
		limiter:       opts.RateLimiter,
		clientIP:      opts.ClientIP,
		adminNetworks: opts.AdminNetworks,
		reloadChannel: opts.ReloadChannel,
		logger:        logger.WithFields(logging.String("component", "handlers")),
		startedAt:     time.Now(),
	}
}

// HandleQuery serves /api/{ressource}/{method}.
func (h *Handlers) HandleQuery(w http.ResponseWriter, r *http.Request) {
	q, err := h.buildQuery(r)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	result, err := h.runner.Execute(r.Context(), q)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	status := http.StatusOK
	if len(result.Data) == 0 && len(result.Errors) > 0 {
		status = http.StatusBadGateway
	}
	h.sendJSON(w, status, result)
}

// GetSources serves /api/sources/{project}, or the project list without one.
func (h *Handlers) GetSources(w http.ResponseWriter, r *http.Request) {
	project := mux.Vars(r)["project"]

	names, err := h.runner.Sources(project)
	if err != nil {
		h.sendJSONError(w, r, err)
		return
	}

	if project == "" {
		h.sendJSONResponse(w, map[string]interface{}{"projects": names})
		return
	}

	h.sendJSONResponse(w, map[string]interface{}{
		"project": project,
		"sources": names,
	})
}

// Reload re-reads the catalog and tells other replicas to do the same.
func (h *Handlers) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Reload(); err != nil {
		h.sendJSONError(w, r, errors.ConfigError("catalog reload failed").WithContext("cause", err.Error()))
		return
	}

	broadcast := false
	if h.redis != nil && h.reloadChannel != "" {
		if err := h.redis.Publish(r.Context(), h.reloadChannel, "reload"); err != nil {
			h.logger.WithContext(r.Context()).Warn("Reload broadcast failed", logging.Err(err))
		} else {
			broadcast = true
		}
	}

	h.sendJSONResponse(w, map[string]interface{}{
		"status":    "reloaded",
		"broadcast": broadcast,
		"catalog":   h.catalog.Status(),
	})
}

// HealthCheck reports liveness, catalog state, Redis health and, when
// configured, plugins, breakers and local rate-limit keys.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"catalog":   h.catalog.Status(),
	}

	code := http.StatusOK
	if h.redis != nil {
		if err := h.redis.Health(); err != nil {
			status["redis_status"] = "unhealthy"
			status["redis_error"] = err.Error()
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		} else {
			status["redis_status"] = "healthy"
		}
	} else {
		status["redis_status"] = "not_configured"
	}

	if h.breakers != nil {
		status["circuit_breakers"] = h.breakers.AllStats()
	}
	if h.plugins != nil {
		status["plugins"] = map[string]interface{}{
			"count": h.plugins.Count(),
			"names": h.plugins.Names(),
		}
	}
	if h.limiter != nil {
		status["rate_limit"] = map[string]interface{}{"tracked_keys": h.limiter.Keys()}
	}

	h.sendJSON(w, code, status)
}

func (h *Handlers) buildQuery(r *http.Request) (query.Query, error) {
	if err := r.ParseForm(); err != nil {
		return query.Query{}, errors.ArgumentError("malformed request parameters").WithContext("cause", err.Error())
	}

	vars := mux.Vars(r)
	params := query.Params{
		Project:       firstOf(r.Form.Get(ParamProject), r.Header.Get(HeaderProject)),
		Source:        firstOf(r.Form.Get(ParamSource), r.Header.Get(HeaderSource)),
		Signature:     firstOf(r.Form.Get(ParamSignature), r.Header.Get(HeaderSignature)),
		RemoteIP:      h.remoteIP(r),
		Ressource:     vars["ressource"],
		Method:        vars["method"],
		RequestMethod: r.Method,
		Arguments:     make(map[string]string, len(r.Form)),
	}

	for name, values := range r.Form {
		switch name {
		case ParamProject, ParamSource, ParamSignature:
			continue
		}
		if len(values) > 0 {
			params.Arguments[name] = values[0]
		}
	}

	return query.New(params), nil
}

func (h *Handlers) remoteIP(r *http.Request) string {
	return h.clientIP.Extract(r)
}

// adminOnly refuses callers outside the admin networks.
func (h *Handlers) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.adminNetworks != nil {
			if ip := h.remoteIP(r); !middleware.ContainsIP(h.adminNetworks, ip) {
				h.sendJSONError(w, r, errors.OriginError("admin", path.Base(r.URL.Path), ip))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
