package app

import (
	"plugin-router/internal/acl"
	"plugin-router/internal/checks"
	"plugin-router/internal/common/logging"
	"plugin-router/internal/decode"
	"plugin-router/internal/dispatch"
	"plugin-router/internal/runner"
	"plugin-router/internal/signature"
	"plugin-router/internal/sources"
)

// initializeRunner composes the check pipeline and the dispatcher.
func (app *App) initializeRunner() {
	codec, err := signature.NewCodec(app.Config.Algorithm())
	if err != nil {
		// Validate already rejected unknown algorithms.
		codec, _ = signature.NewCodec(signature.AlgorithmSHA1)
	}

	resolver := sources.NewResolver(sources.Config{
		CheckSignature: app.Config.CheckSignature,
		DefaultProject: app.Config.DefaultProject,
	}, codec, app.Logger)

	pipeline := checks.NewPipeline(app.Logger, buildChecks(app, resolver)...)

	opts := []dispatch.Option{dispatch.WithLogger(app.Logger)}
	if app.Breakers != nil {
		opts = append(opts, dispatch.WithCircuitBreakers(app.Breakers))
	}
	dispatcher := dispatch.New(app.Plugins, dispatch.Config{
		Workers:     app.Config.Workers(),
		Timeout:     app.Config.Timeout(),
		Aggregation: app.Config.AggregationMode(),
		MaxPending:  app.Config.MaxPending(),
	}, opts...)

	app.Runner = runner.New(app.Catalog, resolver, pipeline, decode.New(), dispatcher, app.Logger)

	app.Logger.Info("Runner ready",
		logging.String("signature_algorithm", string(codec.Algorithm())),
		logging.Bool("check_signature", app.Config.CheckSignature),
		logging.Bool("check_ip", app.Config.CheckIP),
		logging.Strings("checks", pipeline.Names()),
	)
}

func buildChecks(app *App, resolver *sources.Resolver) []checks.Check {
	list := []checks.Check{
		checks.RequestCheck{},
		checks.SourceCheck{Resolver: resolver},
	}
	if app.Config.CheckIP {
		list = append(list, checks.ACLCheck{Filter: acl.NewFilter(app.Logger)})
	}
	list = append(list, checks.ArgumentsCheck{})
	if app.Limiter != nil {
		list = append(list, checks.RateLimitCheck{Limiter: app.Limiter, Logger: app.Logger})
	}
	return list
}
