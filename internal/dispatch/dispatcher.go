// Package dispatch fans a query out to every configured (plugin, parameter
// set) pair and merges the results and failures.
package dispatch

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"plugin-router/internal/catalog"
	"plugin-router/internal/circuitbreaker"
	"plugin-router/internal/common/errors"
	"plugin-router/internal/common/logging"
	"plugin-router/internal/plugins"
	"plugin-router/internal/query"
)

// Error kinds recorded for failures the dispatcher itself detects.
const (
	KindTimeout          = "TimeoutError"
	KindCircuitOpen      = "CircuitOpenError"
	KindPanic            = "PanicError"
	KindPluginInvocation = "PluginInvocationError"
)

// DefaultWorkers bounds concurrent plugin calls when Config.Workers is unset.
const DefaultWorkers = 8

// DefaultMaxPending bounds timed calls whose handler is still running,
// abandoned ones included, when Config.MaxPending is unset.
const DefaultMaxPending = 64

// PluginLookup resolves a registry name to a plugin.
type PluginLookup interface {
	GetPlugin(name string) (plugins.Plugin, error)
}

// Config controls a Dispatcher.
type Config struct {
	// Workers is the maximum number of concurrent plugin calls.
	Workers int
	// Timeout bounds each call. Zero means no timeout.
	Timeout time.Duration
	// Aggregation defaults to AggregateLast.
	Aggregation Aggregation
	// MaxPending bounds handler goroutines of timed calls, including those
	// still running after their timeout. A call that cannot get a slot
	// before its own timeout fails with TimeoutError without running.
	// Raised to Workers when lower.
	MaxPending int
}

// Dispatcher invokes plugins for resolved plugin maps.
type Dispatcher struct {
	lookup   PluginLookup
	breakers *circuitbreaker.Manager
	config   Config
	pending  *semaphore.Weighted
	logger   logging.Logger
	metrics  *dispatchMetrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithCircuitBreakers guards every plugin instance with a breaker.
func WithCircuitBreakers(breakers *circuitbreaker.Manager) Option {
	return func(d *Dispatcher) {
		d.breakers = breakers
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New creates a Dispatcher.
func New(lookup PluginLookup, config Config, opts ...Option) *Dispatcher {
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.Aggregation == "" {
		config.Aggregation = AggregateLast
	}
	if config.MaxPending <= 0 {
		config.MaxPending = DefaultMaxPending
	}
	if config.MaxPending < config.Workers {
		config.MaxPending = config.Workers
	}

	d := &Dispatcher{
		lookup:  lookup,
		config:  config,
		pending: semaphore.NewWeighted(int64(config.MaxPending)),
		logger:  logging.GetGlobalLogger(),
		metrics: getDispatchMetrics(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.WithFields(logging.String("component", "dispatch"))
	return d
}

// call is one (plugin, parameter set) invocation. Its outcome is written
// into its own slot so no locking is needed.
type call struct {
	alias   string
	index   int
	params  catalog.ParameterSet
	handler plugins.Handler
	outcome Outcome
}

// Dispatch invokes the "<ressource>_<method>" entry point of every plugin in
// pluginMap once per parameter set.
//
// Every plugin is looked up before any call is made; an unknown plugin fails
// the whole dispatch. Plugins without the entry point are skipped. Call
// failures never abort sibling calls: they are recorded per plugin alias.
// Outcomes are folded in configuration order whatever the completion order,
// so a later parameter set overwrites an earlier one for the same plugin.
func (d *Dispatcher) Dispatch(ctx context.Context, q query.Query, pluginMap catalog.PluginMap) (*Result, error) {
	calls, err := d.plan(q, pluginMap)
	if err != nil {
		return nil, err
	}

	args := q.Arguments()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.config.Workers)
	for i := range calls {
		c := &calls[i]
		g.Go(func() error {
			c.outcome = d.invoke(gctx, q, c, args)
			return nil
		})
	}
	// Workers never return errors.
	_ = g.Wait()

	result := newResult(d.config.Aggregation)
	for _, c := range calls {
		result.record(c.alias, c.outcome)
	}

	d.logger.WithContext(ctx).Debug("Dispatch completed",
		logging.String("function", q.FunctionName()),
		logging.Int("calls", len(calls)),
		logging.Int("data", len(result.Data)),
		logging.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// plan resolves every plugin and lists the calls in configuration order.
func (d *Dispatcher) plan(q query.Query, pluginMap catalog.PluginMap) ([]call, error) {
	entryPoint := q.FunctionName()
	var calls []call

	for _, entry := range pluginMap.Entries() {
		alias, name := catalog.SplitPluginName(entry.Name)
		plugin, err := d.lookup.GetPlugin(name)
		if err != nil {
			return nil, errors.NotFoundError(fmt.Sprintf("plugin %s", name)).
				WithContext("plugin", alias)
		}

		handler, ok := plugin.EntryPoint(entryPoint)
		if !ok {
			continue
		}
		for index, params := range entry.ParameterSets {
			calls = append(calls, call{alias: alias, index: index, params: params, handler: handler})
		}
	}

	return calls, nil
}

func (d *Dispatcher) invoke(ctx context.Context, q query.Query, c *call, args map[string]string) Outcome {
	start := time.Now()
	d.metrics.inFlight.Inc()
	defer d.metrics.inFlight.Dec()

	run := func() (interface{}, error) {
		return d.runHandler(ctx, c.handler, c.params, args)
	}

	var (
		data interface{}
		err  error
	)
	if d.breakers != nil {
		data, err = d.breakers.Execute("plugin:"+c.alias, run)
	} else {
		data, err = run()
	}

	d.metrics.duration.WithLabelValues(c.alias).Observe(time.Since(start).Seconds())

	if err != nil {
		kind := errorKind(err)
		d.metrics.calls.WithLabelValues(c.alias, kind).Inc()
		d.logger.WithContext(ctx).Warn("Plugin call failed",
			logging.String("plugin", c.alias),
			logging.Int("parameters_index", c.index),
			logging.String("error_kind", kind),
			logging.Err(errors.PluginInvocationError(c.alias, err)),
		)
		return Outcome{
			ParametersIndex: c.index,
			Error: &ErrorRecord{
				Source:          q.Source(),
				Ressource:       q.Ressource(),
				Method:          q.Method(),
				Arguments:       q.Arguments(),
				ParametersIndex: c.index,
				ErrorKind:       kind,
				ErrorMessage:    err.Error(),
			},
		}
	}

	d.metrics.calls.WithLabelValues(c.alias, "success").Inc()
	return Outcome{ParametersIndex: c.index, Data: data}
}

// runHandler calls handler, turning a panic into an error and enforcing the
// per-call timeout. A handler that ignores its context keeps running in the
// background after the timeout and keeps its pending slot until it returns;
// its result is discarded.
func (d *Dispatcher) runHandler(ctx context.Context, handler plugins.Handler, params catalog.ParameterSet, args map[string]string) (interface{}, error) {
	if d.config.Timeout <= 0 {
		return safeCall(ctx, handler, params, args)
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	if err := d.pending.Acquire(ctx, 1); err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, timeoutError{d.config.Timeout}
		}
		return nil, err
	}

	type reply struct {
		data interface{}
		err  error
	}
	// running -> finished, or running -> abandoned once the caller gave up.
	const (
		running int32 = iota
		finished
		abandoned
	)
	var state atomic.Int32
	done := make(chan reply, 1)
	go func() {
		defer d.pending.Release(1)
		data, err := safeCall(ctx, handler, params, args)
		done <- reply{data, err}
		if !state.CompareAndSwap(running, finished) {
			d.metrics.abandoned.Dec()
		}
	}()

	select {
	case r := <-done:
		if r.err != nil && stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, timeoutError{d.config.Timeout}
		}
		return r.data, r.err
	case <-ctx.Done():
		if state.CompareAndSwap(running, abandoned) {
			d.metrics.abandoned.Inc()
		}
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, timeoutError{d.config.Timeout}
		}
		return nil, ctx.Err()
	}
}

func safeCall(ctx context.Context, handler plugins.Handler, params catalog.ParameterSet, args map[string]string) (data interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			data = nil
			err = panicError{value: r}
		}
	}()
	return handler(ctx, params, copyArgs(args))
}

// Each call gets its own copy so a plugin cannot affect its siblings.
func copyArgs(args map[string]string) map[string]string {
	out := make(map[string]string, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}

type timeoutError struct {
	after time.Duration
}

func (e timeoutError) Error() string {
	return fmt.Sprintf("plugin call timed out after %s", e.after)
}

type panicError struct {
	value interface{}
}

func (e panicError) Error() string {
	return fmt.Sprintf("plugin panicked: %v", e.value)
}

// errorKind names the class of a call failure.
func errorKind(err error) string {
	var timeout timeoutError
	var panicked panicError
	switch {
	case stderrors.As(err, &timeout), stderrors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case stderrors.Is(err, circuitbreaker.ErrOpen):
		return KindCircuitOpen
	case stderrors.As(err, &panicked):
		return KindPanic
	}

	if appErr, ok := errors.As(err); ok {
		switch appErr.Type {
		case errors.ErrTypeValidation:
			return "ValidationError"
		case errors.ErrTypeNotFound:
			return "NotFoundError"
		case errors.ErrTypeTimeout:
			return KindTimeout
		case errors.ErrTypeRateLimit:
			return "RateLimitError"
		case errors.ErrTypeInternal:
			return "InternalError"
		}
	}
	return KindPluginInvocation
}
