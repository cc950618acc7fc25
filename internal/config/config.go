// Package config provides configuration management for the plugin router.
// It loads configuration from environment variables with sensible defaults
// and validates it so the application starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - TRUSTED_PROXIES: CIDRs or addresses of proxies whose X-Forwarded-For
//     hops are believed, read right to left (default: none)
//   - ADMIN_ALLOWED_NETWORKS: CIDRs or addresses allowed on /admin endpoints
//     (default: 127.0.0.1,::1)
//   - TLS_CERT_FILE, TLS_KEY_FILE: Serve HTTPS when both are set
//
// Catalog:
//   - ACL_PATH: ACL tree file (default: config/acl.yml)
//   - SOURCES_PATH: Sources tree file (default: config/sources.yml)
//   - RESSOURCES_PATH: Ressources tree file (default: config/ressources.yml)
//   - WATCH_CONFIG: Reload the catalog when a file changes (default: true)
//
// Authorization:
//   - CHECK_SIGNATURE: Verify request signatures (default: true)
//   - CHECK_IP: Enforce source IP lists (default: true)
//   - SIGNATURE_ALGORITHM: sha1, hmac-sha256 or blake2b (default: sha1)
//   - DEFAULT_PROJECT: Project used when a request names none (default: default)
//
// Dispatch:
//   - PLUGIN_TIMEOUT: Per-call timeout, 0 disables it (default: 0s)
//   - FANOUT_WORKERS: Concurrent plugin calls per request (default: 8)
//   - PLUGIN_MAX_PENDING: Timed plugin handlers allowed to run at once,
//     including those past their timeout (default: 64)
//   - AGGREGATION: "last" or "all" (default: last)
//   - CIRCUIT_BREAKER_ENABLED: Wrap each plugin in a breaker (default: false)
//
// Redis Configuration:
//   - REDIS_ADDRESS: Redis server address, empty disables Redis
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//   - RELOAD_CHANNEL: Pub/sub channel for catalog reloads (default: plugin-router:reload)
//
// Rate Limiting:
//   - RATE_LIMIT_ENABLED: Enable rate limiting (default: false)
//   - RATE_LIMIT_DEFAULT: Requests per window (default: 100)
//   - RATE_LIMIT_WINDOW: Rate limit time window (default: 60s)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"plugin-router/internal/dispatch"
	"plugin-router/internal/middleware"
	"plugin-router/internal/signature"
)

// Config holds all configuration values for the plugin router.
// String fields are kept as read from the environment; the typed accessors
// parse them and are only safe to call after Validate succeeds.
type Config struct {
	// Application settings
	Port           string
	LogLevel       string
	TrustedProxies string
	AdminNetworks  string
	TLSCert        string
	TLSKey         string

	// Catalog files
	ACLPath        string
	SourcesPath    string
	RessourcesPath string
	WatchConfig    bool

	// Authorization
	CheckSignature     bool
	CheckIP            bool
	SignatureAlgorithm string
	DefaultProject     string

	// Dispatch
	PluginTimeout         string
	FanoutWorkers         string
	MaxPendingCalls       string
	Aggregation           string
	CircuitBreakerEnabled bool

	// Redis configuration for reload broadcast and shared rate limits
	RedisAddress  string
	RedisPassword string
	RedisDB       string
	RedisPoolSize string
	ReloadChannel string

	// Rate limiting configuration
	RateLimitEnabled bool
	RateLimitDefault string
	RateLimitWindow  string
}

// Load creates a Config from environment variables. It does not validate.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		TrustedProxies: getEnv("TRUSTED_PROXIES", ""),
		AdminNetworks:  getEnv("ADMIN_ALLOWED_NETWORKS", "127.0.0.1,::1"),
		TLSCert:        getEnv("TLS_CERT_FILE", ""),
		TLSKey:         getEnv("TLS_KEY_FILE", ""),

		ACLPath:        getEnv("ACL_PATH", "config/acl.yml"),
		SourcesPath:    getEnv("SOURCES_PATH", "config/sources.yml"),
		RessourcesPath: getEnv("RESSOURCES_PATH", "config/ressources.yml"),
		WatchConfig:    getBoolEnv("WATCH_CONFIG", true),

		CheckSignature:     getBoolEnv("CHECK_SIGNATURE", true),
		CheckIP:            getBoolEnv("CHECK_IP", true),
		SignatureAlgorithm: getEnv("SIGNATURE_ALGORITHM", string(signature.AlgorithmSHA1)),
		DefaultProject:     getEnv("DEFAULT_PROJECT", "default"),

		PluginTimeout:         getEnv("PLUGIN_TIMEOUT", "0s"),
		FanoutWorkers:         getEnv("FANOUT_WORKERS", "8"),
		MaxPendingCalls:       getEnv("PLUGIN_MAX_PENDING", "64"),
		Aggregation:           getEnv("AGGREGATION", string(dispatch.AggregateLast)),
		CircuitBreakerEnabled: getBoolEnv("CIRCUIT_BREAKER_ENABLED", false),

		RedisAddress:  getEnv("REDIS_ADDRESS", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),
		RedisPoolSize: getEnv("REDIS_POOL_SIZE", "10"),
		ReloadChannel: getEnv("RELOAD_CHANNEL", "plugin-router:reload"),

		RateLimitEnabled: getBoolEnv("RATE_LIMIT_ENABLED", false),
		RateLimitDefault: getEnv("RATE_LIMIT_DEFAULT", "100"),
		RateLimitWindow:  getEnv("RATE_LIMIT_WINDOW", "60s"),
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable value or returns a default value.
// Values strconv.ParseBool rejects fall back to the default.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Validate checks field formats and cross-field dependencies.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}

	if _, err := middleware.ParseNetworks(c.TrustedProxies); err != nil {
		return fmt.Errorf("TRUSTED_PROXIES: %w", err)
	}

	if networks, err := middleware.ParseNetworks(c.AdminNetworks); err != nil {
		return fmt.Errorf("ADMIN_ALLOWED_NETWORKS: %w", err)
	} else if len(networks) == 0 {
		return fmt.Errorf("ADMIN_ALLOWED_NETWORKS must list at least one network")
	}

	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}

	if c.ACLPath == "" || c.SourcesPath == "" || c.RessourcesPath == "" {
		return fmt.Errorf("ACL_PATH, SOURCES_PATH and RESSOURCES_PATH are required")
	}

	if _, err := signature.NewCodec(signature.Algorithm(c.SignatureAlgorithm)); err != nil {
		return fmt.Errorf("SIGNATURE_ALGORITHM: %w", err)
	}

	if c.DefaultProject == "" {
		return fmt.Errorf("DEFAULT_PROJECT must not be empty")
	}

	if d, err := time.ParseDuration(c.PluginTimeout); err != nil || d < 0 {
		return fmt.Errorf("PLUGIN_TIMEOUT must be a non-negative duration (e.g., '0s', '5s')")
	}

	if workers, err := strconv.Atoi(c.FanoutWorkers); err != nil || workers < 1 {
		return fmt.Errorf("FANOUT_WORKERS must be a positive number")
	}

	if pending, err := strconv.Atoi(c.MaxPendingCalls); err != nil || pending < 1 {
		return fmt.Errorf("PLUGIN_MAX_PENDING must be a positive number")
	}

	switch dispatch.Aggregation(c.Aggregation) {
	case dispatch.AggregateLast, dispatch.AggregateAll:
	default:
		return fmt.Errorf("AGGREGATION must be 'last' or 'all'")
	}

	if c.RedisAddress != "" {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
		if c.ReloadChannel == "" {
			return fmt.Errorf("RELOAD_CHANNEL must not be empty when Redis is configured")
		}
	}

	if c.RateLimitEnabled {
		if limit, err := strconv.Atoi(c.RateLimitDefault); err != nil || limit < 1 {
			return fmt.Errorf("RATE_LIMIT_DEFAULT must be a positive number")
		}
		if d, err := time.ParseDuration(c.RateLimitWindow); err != nil || d <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be a valid duration (e.g., '60s', '1m')")
		}
	}

	return nil
}

// TrustedProxyNetworks returns TRUSTED_PROXIES parsed.
func (c *Config) TrustedProxyNetworks() []*net.IPNet {
	networks, _ := middleware.ParseNetworks(c.TrustedProxies)
	return networks
}

// AdminNetworkList returns ADMIN_ALLOWED_NETWORKS parsed.
func (c *Config) AdminNetworkList() []*net.IPNet {
	networks, _ := middleware.ParseNetworks(c.AdminNetworks)
	return networks
}

// RedisEnabled reports whether a Redis address is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddress != ""
}

// Timeout returns PLUGIN_TIMEOUT parsed.
func (c *Config) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.PluginTimeout)
	return d
}

// Workers returns FANOUT_WORKERS parsed.
func (c *Config) Workers() int {
	n, _ := strconv.Atoi(c.FanoutWorkers)
	return n
}

// MaxPending returns PLUGIN_MAX_PENDING parsed.
func (c *Config) MaxPending() int {
	n, _ := strconv.Atoi(c.MaxPendingCalls)
	return n
}

// Algorithm returns the configured signature algorithm.
func (c *Config) Algorithm() signature.Algorithm {
	return signature.Algorithm(c.SignatureAlgorithm)
}

// AggregationMode returns the configured dispatch aggregation.
func (c *Config) AggregationMode() dispatch.Aggregation {
	return dispatch.Aggregation(c.Aggregation)
}

// RedisDBNumber returns REDIS_DB parsed.
func (c *Config) RedisDBNumber() int {
	n, _ := strconv.Atoi(c.RedisDB)
	return n
}

// RedisPool returns REDIS_POOL_SIZE parsed.
func (c *Config) RedisPool() int {
	n, _ := strconv.Atoi(c.RedisPoolSize)
	return n
}

// RateLimit returns the parsed limit and window.
func (c *Config) RateLimit() (int, time.Duration) {
	limit, _ := strconv.Atoi(c.RateLimitDefault)
	window, _ := time.ParseDuration(c.RateLimitWindow)
	return limit, window
}
