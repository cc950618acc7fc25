// Package runner is the router's entry point: it validates a query against
// the current catalog and dispatches it to the configured plugins.
package runner

import (
	"context"
	"time"

	"plugin-router/internal/catalog"
	"plugin-router/internal/checks"
	"plugin-router/internal/common/logging"
	"plugin-router/internal/decode"
	"plugin-router/internal/dispatch"
	"plugin-router/internal/query"
	"plugin-router/internal/sources"
)

// TreeSource serves the current catalog tree.
type TreeSource interface {
	Snapshot() *catalog.Tree
}

// Runner executes queries.
type Runner struct {
	trees      TreeSource
	resolver   *sources.Resolver
	pipeline   *checks.Pipeline
	decoder    *decode.Decoder
	dispatcher *dispatch.Dispatcher
	logger     logging.Logger
}

// New creates a Runner from its collaborators.
func New(trees TreeSource, resolver *sources.Resolver, pipeline *checks.Pipeline, decoder *decode.Decoder, dispatcher *dispatch.Dispatcher, logger logging.Logger) *Runner {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Runner{
		trees:      trees,
		resolver:   resolver,
		pipeline:   pipeline,
		decoder:    decoder,
		dispatcher: dispatcher,
		logger:     logger.WithFields(logging.String("component", "runner")),
	}
}

// Execute validates q and dispatches it.
//
// The checks see the arguments as transmitted, so signatures cover the
// encoded values; plugins receive the decoded values. Any check or decoding
// failure aborts before a plugin runs. Plugin failures are reported in the
// result next to the successes.
func (r *Runner) Execute(ctx context.Context, q query.Query) (*dispatch.Result, error) {
	start := time.Now()
	tree := r.trees.Snapshot()
	ctx = logging.ContextWithQuery(ctx, r.resolver.ProjectName(q.Project()), q.Source())

	c := checks.NewContext(q, tree)
	if err := r.pipeline.Run(ctx, c); err != nil {
		return nil, err
	}

	decoded, err := r.decoder.Decode(q, tree.Ressources)
	if err != nil {
		return nil, err
	}

	merged := sources.Merge(c.Sources)
	result, err := r.dispatcher.Dispatch(ctx, decoded, merged)
	if err != nil {
		return nil, err
	}

	r.logger.WithContext(ctx).Info("Query executed",
		logging.String("function", q.FunctionName()),
		logging.Strings("sources", sources.Names(c.Sources)),
		logging.Int("plugins", merged.Len()),
		logging.Int("data", len(result.Data)),
		logging.Int("errors", len(result.Errors)),
		logging.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// Sources returns the sorted source names of project, or the sorted project
// names when project is empty.
func (r *Runner) Sources(project string) ([]string, error) {
	return r.resolver.SourceNames(r.trees.Snapshot(), project)
}
