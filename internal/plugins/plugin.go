// Package plugins defines the plugin capability the dispatcher invokes and
// the registry plugins are looked up in.
//
// A plugin exposes entry points named "<ressource>_<method>". Not every
// plugin implements every entry point; a missing one is reported by
// EntryPoint returning false.
package plugins

import (
	"context"
	"sort"

	"plugin-router/internal/catalog"
	"plugin-router/internal/common/registry"
)

// Handler runs one entry point with one configured parameter set and the
// request arguments. A nil result with a nil error contributes nothing.
type Handler func(ctx context.Context, params catalog.ParameterSet, args map[string]string) (interface{}, error)

// Plugin is a named set of entry points.
type Plugin interface {
	Name() string
	EntryPoint(name string) (Handler, bool)
}

// Table is a Plugin backed by a fixed map of entry points.
type Table struct {
	name    string
	entries map[string]Handler
}

// NewTable builds a Table. The map is copied.
func NewTable(name string, entries map[string]Handler) *Table {
	copied := make(map[string]Handler, len(entries))
	for k, v := range entries {
		copied[k] = v
	}
	return &Table{name: name, entries: copied}
}

func (t *Table) Name() string { return t.name }

// EntryPoint implements Plugin.
func (t *Table) EntryPoint(name string) (Handler, bool) {
	h, ok := t.entries[name]
	return h, ok
}

// EntryPoints returns the entry point names, sorted.
func (t *Table) EntryPoints() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry resolves plugins by registry name.
type Registry struct {
	plugins *registry.Registry[Plugin]
}

func NewRegistry() *Registry {
	return &Registry{plugins: registry.New[Plugin]("plugin")}
}

// Register adds p under p.Name(), replacing any previous plugin.
func (r *Registry) Register(p Plugin) {
	r.plugins.Register(p.Name(), p)
}

// GetPlugin returns the plugin registered under name, or a not_found error.
func (r *Registry) GetPlugin(name string) (Plugin, error) {
	return r.plugins.Get(name)
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	return r.plugins.Count()
}

// Names returns the registered plugin names, sorted.
func (r *Registry) Names() []string {
	return r.plugins.Names()
}
