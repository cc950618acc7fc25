// Package sources resolves a project's source selector into the set of
// sources a caller is authorized to use, and merges their plugin maps.
package sources

import (
	"strings"

	"plugin-router/internal/catalog"
)

// Selector is a parsed source selector: the "all" wildcard, a comma
// separated list, or a single name.
type Selector struct {
	raw   string
	all   bool
	names []string
}

// ParseSelector parses raw. Listed names keep their first appearance order
// and duplicates collapse. Empty list items are ignored.
func ParseSelector(raw string) Selector {
	if raw == catalog.AllSources {
		return Selector{raw: raw, all: true}
	}

	parts := strings.Split(raw, catalog.SourceSeparator)
	names := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" && len(parts) > 1 {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return Selector{raw: raw, names: names}
}

// Raw returns the selector as received.
func (s Selector) Raw() string { return s.raw }

// All reports whether the selector is the wildcard.
func (s Selector) All() bool { return s.all }

// Names returns the explicitly listed names. It is empty for the wildcard.
func (s Selector) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// IsSimple reports whether the selector names a single source, with no
// wildcard and no list.
func (s Selector) IsSimple() bool {
	return !s.all && !strings.Contains(s.raw, catalog.SourceSeparator)
}

// Name returns the single source a simple selector targets, trimmed the
// same way as list items. It is empty for any other selector.
func (s Selector) Name() string {
	if !s.IsSimple() || len(s.names) == 0 {
		return ""
	}
	return s.names[0]
}

// Candidates returns the source names the selector targets in project, in
// resolution order: sorted for the wildcard, listed order otherwise.
func (s Selector) Candidates(project catalog.Project) []string {
	if s.all {
		return project.SourceNames()
	}
	return s.Names()
}
