package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"plugin-router/internal/circuitbreaker"
	"plugin-router/internal/common/errors"
	"plugin-router/internal/common/logging"
	"plugin-router/internal/ratelimit"
)

// maxResponseBytes caps how much of a backend response is read.
const maxResponseBytes = 10 << 20

// ClientConfig holds HTTP client configuration
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	Transport           http.RoundTripper
}

// DefaultClientConfig returns default HTTP client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// ClientOption is a function that modifies ClientConfig
type ClientOption func(*ClientConfig)

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.Timeout = timeout
	}
}

// WithMaxIdleConnsPerHost sets the maximum number of idle connections per host
func WithMaxIdleConnsPerHost(max int) ClientOption {
	return func(c *ClientConfig) {
		c.MaxIdleConnsPerHost = max
	}
}

// WithTransport sets a custom transport
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *ClientConfig) {
		c.Transport = transport
	}
}

// NewHTTPClient creates a new HTTP client with the given options
func NewHTTPClient(opts ...ClientOption) *http.Client {
	cfg := DefaultClientConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
		}
	}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}

// Response is a backend response with its body decoded.
type Response struct {
	StatusCode int
	Body       interface{} // parsed JSON, or the raw text when not JSON
	Duration   time.Duration
}

// Client performs backend calls guarded by a per-host circuit breaker and
// a per-host rate limiter. Both are optional.
type Client struct {
	client   *http.Client
	breakers *circuitbreaker.Manager
	limiter  *ratelimit.LocalLimiter
	logger   logging.Logger
}

// NewClient wraps an http.Client built from opts.
func NewClient(opts ...ClientOption) *Client {
	return &Client{
		client: NewHTTPClient(opts...),
		logger: logging.GetGlobalLogger().WithFields(logging.String("component", "http_client")),
	}
}

// WithCircuitBreakers adds circuit breaker integration
func (c *Client) WithCircuitBreakers(breakers *circuitbreaker.Manager) *Client {
	c.breakers = breakers
	return c
}

// WithRateLimiter adds rate limiting
func (c *Client) WithRateLimiter(limiter *ratelimit.LocalLimiter) *Client {
	c.limiter = limiter
	return c
}

// Do sends a request to rawURL with query merged into its query string. A
// non-2xx status is an error carrying the status code.
func (c *Client) Do(ctx context.Context, method, rawURL string, query url.Values, headers map[string]string) (*Response, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("invalid url %q: %v", rawURL, err))
	}
	if len(query) > 0 {
		merged := target.Query()
		for k, vs := range query {
			for _, v := range vs {
				merged.Add(k, v)
			}
		}
		target.RawQuery = merged.Encode()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, target.Host); err != nil {
			return nil, errors.RateLimitError(target.Host)
		}
	}

	call := func() (interface{}, error) {
		return c.execute(ctx, method, target.String(), headers)
	}

	var result interface{}
	if c.breakers != nil {
		result, err = c.breakers.Execute("http:"+target.Host, call)
	} else {
		result, err = call()
	}
	if err != nil {
		return nil, err
	}
	return result.(*Response), nil
}

func (c *Client) execute(ctx context.Context, method, target string, headers map[string]string) (*Response, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.InternalError("request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.InternalError("failed to read response body", err)
	}

	response := &Response{
		StatusCode: resp.StatusCode,
		Body:       parseResponseBody(body),
		Duration:   time.Since(start),
	}

	c.logger.Debug("Backend call completed",
		logging.String("url", target),
		logging.Int("status", resp.StatusCode),
		logging.Duration("duration", response.Duration),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return response, nil
	}
	appErr := errors.InternalError(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200)), nil).
		WithContext("status", resp.StatusCode)
	if resp.StatusCode < 500 {
		// Client-side statuses do not trip the breaker.
		appErr.Type = errors.ErrTypeValidation
	}
	return nil, appErr
}

// parseResponseBody decodes JSON and falls back to the raw text.
func parseResponseBody(body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}
	var parsed interface{}
	if err := json.Unmarshal(body, &parsed); err == nil {
		return parsed
	}
	return string(body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
