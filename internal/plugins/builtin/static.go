// Package builtin holds the plugins registered by default.
package builtin

import (
	"context"

	"plugin-router/internal/catalog"
	"plugin-router/internal/plugins"
)

// StaticName is the registry name of the static plugin.
const StaticName = "static"

// Static answers every entry point with the parameter set's "data" value.
// When the parameter set lists "methods", only those entry points answer;
// the others contribute nothing.
type Static struct{}

func (Static) Name() string { return StaticName }

// EntryPoint implements plugins.Plugin.
func (Static) EntryPoint(name string) (plugins.Handler, bool) {
	return func(ctx context.Context, params catalog.ParameterSet, args map[string]string) (interface{}, error) {
		if !answers(params, name) {
			return nil, nil
		}
		return params["data"], nil
	}, true
}

func answers(params catalog.ParameterSet, entryPoint string) bool {
	raw, ok := params["methods"]
	if !ok {
		return true
	}
	list, ok := raw.([]interface{})
	if !ok {
		return false
	}
	for _, item := range list {
		if s, ok := item.(string); ok && s == entryPoint {
			return true
		}
	}
	return false
}
