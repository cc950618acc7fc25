package checks

import (
	"context"
	"fmt"
	"strings"

	"plugin-router/internal/acl"
	"plugin-router/internal/common/errors"
	"plugin-router/internal/common/logging"
	"plugin-router/internal/ratelimit"
	"plugin-router/internal/sources"
)

// RequestCheck requires the ressource/method pair to exist in the schema and
// the transport verb to match a declared request_method.
type RequestCheck struct{}

func (RequestCheck) Name() string { return "request" }

func (RequestCheck) Validate(ctx context.Context, c *Context) error {
	q := c.Query
	schema, ok := c.Tree.Ressources.Method(q.Ressource(), q.Method())
	if !ok {
		return errors.NotFoundError(fmt.Sprintf("ressource %s/%s", q.Ressource(), q.Method())).
			WithContext("ressource", q.Ressource()).
			WithContext("method", q.Method())
	}
	if schema.RequestMethod != "" && !strings.EqualFold(schema.RequestMethod, q.RequestMethod()) {
		return errors.ValidationError(fmt.Sprintf("%s/%s expects %s, got %s",
			q.Ressource(), q.Method(), strings.ToUpper(schema.RequestMethod), q.RequestMethod())).
			WithCode("method_not_allowed")
	}
	return nil
}

// SourceCheck resolves the authorized sources and stores them in the
// context.
type SourceCheck struct {
	Resolver *sources.Resolver
}

func (SourceCheck) Name() string { return "source" }

func (s SourceCheck) Validate(ctx context.Context, c *Context) error {
	q := c.Query
	resolved, err := s.Resolver.Resolve(c.Tree, q.Project(), c.Selector, q.Signature(), q.Arguments())
	if err != nil {
		return err
	}
	c.Sources = resolved
	return nil
}

// ACLCheck checks the remote address. It must run after SourceCheck.
type ACLCheck struct {
	Filter *acl.Filter
}

func (ACLCheck) Name() string { return "acl" }

func (a ACLCheck) Validate(ctx context.Context, c *Context) error {
	return a.Filter.Authorize(c.Tree, c.Query, c.Sources)
}

// ArgumentsCheck enforces a method's declared arguments: nothing undeclared
// is accepted and every required argument is present. Methods without an
// arguments block accept anything.
type ArgumentsCheck struct{}

func (ArgumentsCheck) Name() string { return "arguments" }

func (ArgumentsCheck) Validate(ctx context.Context, c *Context) error {
	q := c.Query
	schema, ok := c.Tree.Ressources.Method(q.Ressource(), q.Method())
	if !ok || !schema.DeclaresArguments() {
		return nil
	}

	for _, name := range q.ArgumentNames() {
		if _, declared := schema.Arguments[name]; !declared {
			return errors.ArgumentError(fmt.Sprintf("argument %s not declared for %s/%s", name, q.Ressource(), q.Method())).
				WithContext("argument", name)
		}
	}
	for name, argument := range schema.Arguments {
		if !argument.Required {
			continue
		}
		if _, present := q.Argument(name); !present {
			return errors.ArgumentError(fmt.Sprintf("argument %s is required for %s/%s", name, q.Ressource(), q.Method())).
				WithContext("argument", name)
		}
	}
	return nil
}

// RateLimitCheck limits requests per project, source selector and remote
// address. Limiter failures let the request through.
type RateLimitCheck struct {
	Limiter ratelimit.Limiter
	Logger  logging.Logger
}

func (RateLimitCheck) Name() string { return "rate_limit" }

func (r RateLimitCheck) Validate(ctx context.Context, c *Context) error {
	key := Key(c)
	decision, err := r.Limiter.Allow(ctx, key)
	if err != nil {
		if r.Logger != nil {
			r.Logger.WithContext(ctx).Error("Rate limit check failed, allowing request", err, logging.String("key", key))
		}
		return nil
	}
	if !decision.Allowed {
		return errors.RateLimitError(key).
			WithContext("limit", decision.Limit).
			WithContext("retry_after", decision.RetryAfter())
	}
	return nil
}

// Key is the rate limit key of a query.
func Key(c *Context) string {
	q := c.Query
	return q.Project() + ":" + q.Source() + ":" + q.RemoteIP()
}
