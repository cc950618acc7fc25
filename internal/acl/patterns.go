package acl

import (
	"regexp"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// patternCache keeps compiled ip patterns keyed by their source text.
type patternCache struct {
	cache *gocache.Cache
}

func newPatternCache(ttl time.Duration) *patternCache {
	return &patternCache{cache: gocache.New(ttl, 2*ttl)}
}

// compile returns pattern anchored at the start of the subject, the way a
// prefix match behaves: "10\.0\." matches "10.0.0.5" but not "110.0.0.5".
func (c *patternCache) compile(pattern string) (*regexp.Regexp, error) {
	if cached, found := c.cache.Get(pattern); found {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(`^(?:` + pattern + `)`)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(pattern, re)
	return re, nil
}

// anyMatch reports whether ip matches at least one pattern. Invalid
// patterns never match.
func (c *patternCache) anyMatch(patterns []string, ip string) bool {
	for _, pattern := range patterns {
		re, err := c.compile(pattern)
		if err != nil {
			continue
		}
		if re.MatchString(ip) {
			return true
		}
	}
	return false
}
