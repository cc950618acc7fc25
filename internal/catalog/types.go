// Package catalog holds the read-only configuration tree consulted on every
// request: projects and their sources (keys, IP allow-lists, plugin
// parameter sets), the per ressource/method ACL, and the ressource schema
// used for argument checks and decoding.
//
// A Tree is validated eagerly when it is built and never mutated afterwards;
// a refresh produces a new Tree that replaces the old one atomically (see
// Store).
package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"plugin-router/internal/common/errors"
)

const (
	// AllSources selects every source of a project.
	AllSources = "all"
	// SourceSeparator separates names in a source list selector.
	SourceSeparator = ","
	// PluginNameSeparator separates an alias from the registry name in
	// "alias|real" plugin names.
	PluginNameSeparator = "|"
)

// Tree is the full configuration consulted by the router.
type Tree struct {
	Projects   map[string]Project
	ACL        ACL
	Ressources ResourceSchema
}

// Project groups named sources.
type Project struct {
	Sources map[string]Source `yaml:"sources"`
}

// SourceNames returns the project's source names, sorted.
func (p Project) SourceNames() []string {
	names := make([]string, 0, len(p.Sources))
	for name := range p.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Source is one credential and plugin configuration unit.
type Source struct {
	APIKeys APIKeys   `yaml:"apikey"`
	IP      []string  `yaml:"ip"`
	Plugins PluginMap `yaml:"plugins"`
}

// RestrictsIP reports whether the source declares an ip allow-list. An
// absent list imposes no restriction; a declared empty list refuses every
// address.
func (s Source) RestrictsIP() bool {
	return s.IP != nil
}

// APIKeys holds one or more secrets. In YAML it is either a scalar or a
// sequence of scalars.
type APIKeys []string

// UnmarshalYAML accepts both `apikey: k` and `apikey: [k1, k2]`.
func (k *APIKeys) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*k = nil
			return nil
		}
		*k = APIKeys{node.Value}
		return nil
	case yaml.SequenceNode:
		var keys []string
		if err := node.Decode(&keys); err != nil {
			return err
		}
		*k = keys
		return nil
	default:
		return fmt.Errorf("line %d: apikey must be a string or a list of strings", node.Line)
	}
}

// ParameterSet is one configured invocation context for a plugin. Its shape
// is defined by the plugin and it is passed through untouched.
type ParameterSet map[string]interface{}

// String returns params[key] when it is a string.
func (p ParameterSet) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// ResourceSchema maps ressource -> method -> schema.
type ResourceSchema map[string]map[string]MethodSchema

// Method returns the schema for ressource/method.
func (r ResourceSchema) Method(ressource, method string) (MethodSchema, bool) {
	methods, ok := r[ressource]
	if !ok {
		return MethodSchema{}, false
	}
	schema, ok := methods[method]
	return schema, ok
}

// MethodSchema describes one ressource/method entry point.
type MethodSchema struct {
	// RequestMethod, when set, is the only transport verb accepted.
	RequestMethod string `yaml:"request_method"`
	// Arguments is nil when the method does not declare its arguments, in
	// which case argument names are not checked.
	Arguments map[string]ArgumentSchema `yaml:"arguments"`
}

// DeclaresArguments reports whether argument names are checked.
func (m MethodSchema) DeclaresArguments() bool {
	return m.Arguments != nil
}

// ArgumentSchema describes one argument.
type ArgumentSchema struct {
	Encoding string `yaml:"encoding"`
	Required bool   `yaml:"required"`
}

// ACL maps ressource -> method -> allowed ip patterns.
type ACL map[string]map[string][]string

// Patterns returns the ip patterns for ressource/method, if declared.
func (a ACL) Patterns(ressource, method string) ([]string, bool) {
	methods, ok := a[ressource]
	if !ok {
		return nil, false
	}
	patterns, ok := methods[method]
	return patterns, ok
}

// SplitPluginName returns the reporting alias and the registry name of a
// configured plugin name. For "alias|real" the alias is the raw name.
func SplitPluginName(raw string) (alias, name string) {
	if i := strings.Index(raw, PluginNameSeparator); i >= 0 {
		return raw, raw[i+len(PluginNameSeparator):]
	}
	return raw, raw
}

// Validate checks the whole tree: every ip pattern compiles, every key is a
// non-empty string and every plugin name has a non-empty registry part.
func (t *Tree) Validate() error {
	for projectName, project := range t.Projects {
		for sourceName, source := range project.Sources {
			if sourceName == AllSources || strings.Contains(sourceName, SourceSeparator) {
				return errors.ConfigError(fmt.Sprintf("project %s: %q is not a usable source name", projectName, sourceName))
			}
			where := fmt.Sprintf("project %s source %s", projectName, sourceName)
			if err := source.validate(where); err != nil {
				return err
			}
		}
	}

	for ressource, methods := range t.ACL {
		for method, patterns := range methods {
			if err := validatePatterns(patterns, fmt.Sprintf("acl %s/%s", ressource, method)); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s Source) validate(where string) error {
	for i, key := range s.APIKeys {
		if key == "" {
			return errors.ConfigError(fmt.Sprintf("%s: apikey[%d] is empty", where, i))
		}
	}

	if err := validatePatterns(s.IP, where); err != nil {
		return err
	}

	for _, raw := range s.Plugins.Names() {
		if _, name := SplitPluginName(raw); name == "" {
			return errors.ConfigError(fmt.Sprintf("%s: plugin %q has an empty name", where, raw))
		}
	}

	return nil
}

func validatePatterns(patterns []string, where string) error {
	for _, pattern := range patterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return errors.ConfigError(fmt.Sprintf("%s: invalid ip pattern %q: %v", where, pattern, err))
		}
	}
	return nil
}
