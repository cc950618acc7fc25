package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// PluginMap is an ordered mapping of plugin name to parameter sets. Names
// keep their first-insertion order, which is the document order when
// loaded from YAML, so fan-out is deterministic.
type PluginMap struct {
	names []string
	sets  map[string][]ParameterSet
}

// NewPluginMap builds a PluginMap from name/sets pairs in order.
func NewPluginMap(entries ...PluginEntry) PluginMap {
	var m PluginMap
	for _, e := range entries {
		m.Append(e.Name, e.ParameterSets...)
	}
	return m
}

// PluginEntry is one name with its parameter sets.
type PluginEntry struct {
	Name          string
	ParameterSets []ParameterSet
}

// Append adds parameter sets under name. Sets for an existing name are
// appended after the ones already present.
func (m *PluginMap) Append(name string, sets ...ParameterSet) {
	if m.sets == nil {
		m.sets = make(map[string][]ParameterSet)
	}
	if _, exists := m.sets[name]; !exists {
		m.names = append(m.names, name)
		m.sets[name] = make([]ParameterSet, 0, len(sets))
	}
	m.sets[name] = append(m.sets[name], sets...)
}

// Names returns plugin names in order.
func (m PluginMap) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Get returns the parameter sets for name.
func (m PluginMap) Get(name string) ([]ParameterSet, bool) {
	sets, ok := m.sets[name]
	return sets, ok
}

// Len returns the number of plugin names.
func (m PluginMap) Len() int {
	return len(m.names)
}

// Entries returns the map as an ordered slice.
func (m PluginMap) Entries() []PluginEntry {
	entries := make([]PluginEntry, 0, len(m.names))
	for _, name := range m.names {
		entries = append(entries, PluginEntry{Name: name, ParameterSets: m.sets[name]})
	}
	return entries
}

// UnmarshalYAML decodes a mapping of name to a sequence of parameter sets,
// keeping document order.
func (m *PluginMap) UnmarshalYAML(node *yaml.Node) error {
	*m = PluginMap{}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: plugins must be a mapping", node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]

		var sets []ParameterSet
		if !(valueNode.Kind == yaml.ScalarNode && valueNode.Tag == "!!null") {
			if err := valueNode.Decode(&sets); err != nil {
				return fmt.Errorf("plugin %s: %w", keyNode.Value, err)
			}
		}
		for j := range sets {
			if sets[j] == nil {
				sets[j] = ParameterSet{}
			}
		}
		m.Append(keyNode.Value, sets...)
	}

	return nil
}
