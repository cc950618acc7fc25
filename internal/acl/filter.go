// Package acl checks the caller's network origin against source ip
// allow-lists and the per ressource/method ACL.
package acl

import (
	"time"

	"plugin-router/internal/catalog"
	"plugin-router/internal/common/errors"
	"plugin-router/internal/common/logging"
	"plugin-router/internal/query"
	"plugin-router/internal/sources"
)

// DefaultPatternTTL bounds how long a compiled pattern stays cached after
// its last insertion. Reloaded catalogs re-populate the cache lazily.
const DefaultPatternTTL = 30 * time.Minute

// Filter authorizes remote addresses.
type Filter struct {
	patterns *patternCache
	logger   logging.Logger
}

// NewFilter creates a filter.
func NewFilter(logger logging.Logger) *Filter {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Filter{
		patterns: newPatternCache(DefaultPatternTTL),
		logger:   logger.WithFields(logging.String("component", "acl")),
	}
}

// CheckIP reports whether remoteIP passes the ip lists targeted by
// selector. A simple selector targets its single source; any other selector
// targets every resolved source that declares a list. Each targeted list
// needs at least one matching pattern. A source without a list imposes no
// restriction.
func (f *Filter) CheckIP(selector sources.Selector, resolved []sources.Named, remoteIP string) bool {
	for _, named := range targeted(selector, resolved) {
		if !f.patterns.anyMatch(named.Source.IP, remoteIP) {
			f.logger.Debug("Remote address refused by source",
				logging.String("source", named.Name),
				logging.String("ip", remoteIP),
			)
			return false
		}
	}
	return true
}

// Authorize runs CheckIP and the ressource/method ACL of tree for q. The ACL
// is only consulted when it declares an entry for the pair.
func (f *Filter) Authorize(tree *catalog.Tree, q query.Query, resolved []sources.Named) error {
	selector := sources.ParseSelector(q.Source())

	if !f.CheckIP(selector, resolved, q.RemoteIP()) {
		return errors.OriginError(q.Ressource(), q.Method(), q.RemoteIP())
	}

	if patterns, ok := tree.ACL.Patterns(q.Ressource(), q.Method()); ok {
		if !f.patterns.anyMatch(patterns, q.RemoteIP()) {
			return errors.OriginError(q.Ressource(), q.Method(), q.RemoteIP())
		}
	}

	return nil
}

func targeted(selector sources.Selector, resolved []sources.Named) []sources.Named {
	out := make([]sources.Named, 0, len(resolved))
	for _, named := range resolved {
		if !named.Source.RestrictsIP() {
			continue
		}
		if selector.IsSimple() && named.Name != selector.Name() {
			continue
		}
		out = append(out, named)
	}
	return out
}
