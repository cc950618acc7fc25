// Package checks holds the ordered validations a query goes through before
// any plugin runs.
package checks

import (
	"context"
	"time"

	"plugin-router/internal/catalog"
	"plugin-router/internal/common/logging"
	"plugin-router/internal/query"
	"plugin-router/internal/sources"
)

// Context is shared by the checks of one pipeline run. Checks may fill in
// fields for later checks; SourceCheck sets Sources.
type Context struct {
	Query    query.Query
	Tree     *catalog.Tree
	Selector sources.Selector
	Sources  []sources.Named
}

// NewContext prepares a run for q against tree.
func NewContext(q query.Query, tree *catalog.Tree) *Context {
	return &Context{
		Query:    q,
		Tree:     tree,
		Selector: sources.ParseSelector(q.Source()),
	}
}

// Check validates one aspect of a query.
type Check interface {
	Name() string
	Validate(ctx context.Context, c *Context) error
}

// Pipeline runs checks in order and stops at the first failure.
type Pipeline struct {
	checks []Check
	logger logging.Logger
}

// NewPipeline composes checks in the given order.
func NewPipeline(logger logging.Logger, checks ...Check) *Pipeline {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Pipeline{
		checks: checks,
		logger: logger.WithFields(logging.String("component", "checks")),
	}
}

// Names returns the check names in run order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.checks))
	for i, check := range p.checks {
		names[i] = check.Name()
	}
	return names
}

// Run executes every check against c.
func (p *Pipeline) Run(ctx context.Context, c *Context) error {
	for _, check := range p.checks {
		start := time.Now()
		if err := check.Validate(ctx, c); err != nil {
			p.logger.WithContext(ctx).Info("Query rejected",
				logging.String("check", check.Name()),
				logging.String("query", c.Query.String()),
				logging.Err(err),
			)
			return err
		}
		p.logger.WithContext(ctx).Debug("Check passed",
			logging.String("check", check.Name()),
			logging.Duration("duration", time.Since(start)),
		)
	}
	return nil
}
