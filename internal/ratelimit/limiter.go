// Package ratelimit limits requests per key, either in process with
// golang.org/x/time/rate or across replicas with a Redis sliding window.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter decides whether one more request for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Decision, error)
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool          `json:"allowed"`
	Limit     int           `json:"limit"`
	Remaining int           `json:"remaining"`
	Window    time.Duration `json:"window"`
	ResetTime time.Time     `json:"reset_time"`
}

// RetryAfter is the window rounded up to whole seconds.
func (d *Decision) RetryAfter() int {
	seconds := int(d.Window / time.Second)
	if d.Window%time.Second != 0 {
		seconds++
	}
	return seconds
}

type Config struct {
	DefaultLimit  int           `json:"default_limit"`
	DefaultWindow time.Duration `json:"default_window"`
	Enabled       bool          `json:"enabled"`
}

// DefaultConfig allows 100 requests a minute.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		Enabled:       true,
	}
}

func (c Config) Validate() error {
	if c.DefaultLimit <= 0 {
		return fmt.Errorf("default limit must be positive, got %d", c.DefaultLimit)
	}
	if c.DefaultWindow <= 0 {
		return fmt.Errorf("default window must be positive, got %v", c.DefaultWindow)
	}
	return nil
}

func allowAll(config Config) *Decision {
	return &Decision{
		Allowed:   true,
		Limit:     config.DefaultLimit,
		Remaining: config.DefaultLimit,
		Window:    config.DefaultWindow,
		ResetTime: time.Now().Add(config.DefaultWindow),
	}
}
