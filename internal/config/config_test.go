package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plugin-router/internal/dispatch"
	"plugin-router/internal/signature"
)

var envKeys = []string{
	"PORT", "LOG_LEVEL", "TRUSTED_PROXIES", "ADMIN_ALLOWED_NETWORKS", "TLS_CERT_FILE", "TLS_KEY_FILE",
	"ACL_PATH", "SOURCES_PATH", "RESSOURCES_PATH", "WATCH_CONFIG",
	"CHECK_SIGNATURE", "CHECK_IP", "SIGNATURE_ALGORITHM", "DEFAULT_PROJECT",
	"PLUGIN_TIMEOUT", "FANOUT_WORKERS", "PLUGIN_MAX_PENDING", "AGGREGATION", "CIRCUIT_BREAKER_ENABLED",
	"REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB", "REDIS_POOL_SIZE", "RELOAD_CHANNEL",
	"RATE_LIMIT_ENABLED", "RATE_LIMIT_DEFAULT", "RATE_LIMIT_WINDOW",
}

// clearEnv blanks every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.TrustedProxyNetworks())
	require.Len(t, cfg.AdminNetworkList(), 2)
	assert.Equal(t, "127.0.0.1/32", cfg.AdminNetworkList()[0].String())
	assert.Equal(t, "config/acl.yml", cfg.ACLPath)
	assert.Equal(t, "config/sources.yml", cfg.SourcesPath)
	assert.Equal(t, "config/ressources.yml", cfg.RessourcesPath)
	assert.True(t, cfg.WatchConfig)
	assert.True(t, cfg.CheckSignature)
	assert.True(t, cfg.CheckIP)
	assert.Equal(t, signature.AlgorithmSHA1, cfg.Algorithm())
	assert.Equal(t, "default", cfg.DefaultProject)
	assert.Equal(t, time.Duration(0), cfg.Timeout())
	assert.Equal(t, 8, cfg.Workers())
	assert.Equal(t, 64, cfg.MaxPending())
	assert.Equal(t, dispatch.AggregateLast, cfg.AggregationMode())
	assert.False(t, cfg.CircuitBreakerEnabled)
	assert.False(t, cfg.RedisEnabled())
	assert.Equal(t, "plugin-router:reload", cfg.ReloadChannel)
	assert.False(t, cfg.RateLimitEnabled)

	limit, window := cfg.RateLimit()
	assert.Equal(t, 100, limit)
	assert.Equal(t, time.Minute, window)

	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("CHECK_SIGNATURE", "false")
	t.Setenv("CHECK_IP", "0")
	t.Setenv("SIGNATURE_ALGORITHM", "hmac-sha256")
	t.Setenv("PLUGIN_TIMEOUT", "2s")
	t.Setenv("FANOUT_WORKERS", "3")
	t.Setenv("PLUGIN_MAX_PENDING", "12")
	t.Setenv("AGGREGATION", "all")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("REDIS_POOL_SIZE", "4")
	t.Setenv("TRUSTED_PROXIES", "172.16.0.0/12, 10.0.0.1")
	t.Setenv("ADMIN_ALLOWED_NETWORKS", "10.0.0.0/8")

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.CheckSignature)
	assert.False(t, cfg.CheckIP)
	assert.Len(t, cfg.TrustedProxyNetworks(), 2)
	require.Len(t, cfg.AdminNetworkList(), 1)
	assert.Equal(t, "10.0.0.0/8", cfg.AdminNetworkList()[0].String())
	assert.Equal(t, signature.AlgorithmHMACSHA256, cfg.Algorithm())
	assert.Equal(t, 2*time.Second, cfg.Timeout())
	assert.Equal(t, 3, cfg.Workers())
	assert.Equal(t, 12, cfg.MaxPending())
	assert.Equal(t, dispatch.AggregateAll, cfg.AggregationMode())
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, 2, cfg.RedisDBNumber())
	assert.Equal(t, 4, cfg.RedisPool())
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", "true", false, true},
		{"one", "1", false, true},
		{"false", "false", true, false},
		{"invalid falls back", "yes please", true, true},
		{"unset falls back", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, getBoolEnv("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_KEY", "value")
	assert.Equal(t, "value", getEnv("TEST_KEY", "default"))

	os.Unsetenv("TEST_KEY_MISSING")
	assert.Equal(t, "default", getEnv("TEST_KEY_MISSING", "default"))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "PORT"},
		{"port not a number", func(c *Config) { c.Port = "http" }, "PORT"},
		{"bad trusted proxy", func(c *Config) { c.TrustedProxies = "proxy.local" }, "TRUSTED_PROXIES"},
		{"bad admin network", func(c *Config) { c.AdminNetworks = "10.0.0.0/33" }, "ADMIN_ALLOWED_NETWORKS"},
		{"empty admin network list", func(c *Config) { c.AdminNetworks = " , " }, "ADMIN_ALLOWED_NETWORKS"},
		{"tls cert without key", func(c *Config) { c.TLSCert = "cert.pem" }, "TLS_CERT_FILE"},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }, "LOG_LEVEL"},
		{"missing catalog path", func(c *Config) { c.SourcesPath = "" }, "SOURCES_PATH"},
		{"unknown algorithm", func(c *Config) { c.SignatureAlgorithm = "md5" }, "SIGNATURE_ALGORITHM"},
		{"empty default project", func(c *Config) { c.DefaultProject = "" }, "DEFAULT_PROJECT"},
		{"negative timeout", func(c *Config) { c.PluginTimeout = "-1s" }, "PLUGIN_TIMEOUT"},
		{"bad timeout", func(c *Config) { c.PluginTimeout = "soon" }, "PLUGIN_TIMEOUT"},
		{"zero workers", func(c *Config) { c.FanoutWorkers = "0" }, "FANOUT_WORKERS"},
		{"zero pending calls", func(c *Config) { c.MaxPendingCalls = "0" }, "PLUGIN_MAX_PENDING"},
		{"unknown aggregation", func(c *Config) { c.Aggregation = "first" }, "AGGREGATION"},
		{"redis db out of range", func(c *Config) {
			c.RedisAddress = "localhost:6379"
			c.RedisDB = "16"
		}, "REDIS_DB"},
		{"redis pool size", func(c *Config) {
			c.RedisAddress = "localhost:6379"
			c.RedisPoolSize = "0"
		}, "REDIS_POOL_SIZE"},
		{"redis fields ignored without address", func(c *Config) { c.RedisDB = "99" }, ""},
		{"rate limit default", func(c *Config) {
			c.RateLimitEnabled = true
			c.RateLimitDefault = "-5"
		}, "RATE_LIMIT_DEFAULT"},
		{"rate limit window", func(c *Config) {
			c.RateLimitEnabled = true
			c.RateLimitWindow = "0s"
		}, "RATE_LIMIT_WINDOW"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg := Load()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should mention %s", err, tt.wantErr)
		})
	}
}

func BenchmarkLoad(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Load()
	}
}
