package autoprobe

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheSize is far above the number of distinct probes a build
// script issues, so entries are never evicted in practice. An evicted entry
// is only recompiled, never answered differently.
const defaultCacheSize = 4096

// probeCache maps the exact snippet text to its compile outcome.
// The text includes the feature and no_std header, so toggling a feature
// yields a different key rather than overwriting an entry.
type probeCache struct {
	entries *lru.Cache[string, bool]
}

func newProbeCache(size int) (*probeCache, error) {
	entries, err := lru.New[string, bool](size)
	if err != nil {
		return nil, fmt.Errorf("probe cache: %w", err)
	}
	return &probeCache{entries: entries}, nil
}

func (c *probeCache) get(code string) (ok, hit bool) {
	return c.entries.Get(code)
}

func (c *probeCache) add(code string, ok bool) {
	c.entries.Add(code, ok)
}

func (c *probeCache) len() int {
	return c.entries.Len()
}
