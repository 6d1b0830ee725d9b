package query

import (
	"sort"
	"strings"
	"sync"
)

// AllowedClipCache memoizes the resolved allowed_clip_ids set for one
// (folder filter, path prefix) key, cleared whenever the folder filter,
// prefix filter, or sync cursor advances (see Invalidate).
type AllowedClipCache struct {
	mu  sync.Mutex
	key string
	ids map[int64]bool
}

func cacheKey(folderPaths []string, pathPrefix string) string {
	sorted := append([]string(nil), folderPaths...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00") + "\x01" + pathPrefix
}

// Get returns the cached allowed set for this filter, if present.
func (c *AllowedClipCache) Get(folderPaths []string, pathPrefix string) (map[int64]bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := cacheKey(folderPaths, pathPrefix)
	if c.ids == nil || c.key != key {
		return nil, false
	}
	return c.ids, true
}

// Set stores the resolved allowed set for this filter.
func (c *AllowedClipCache) Set(folderPaths []string, pathPrefix string, clipIDs []int64) map[int64]bool {
	set := make(map[int64]bool, len(clipIDs))
	for _, id := range clipIDs {
		set[id] = true
	}
	c.mu.Lock()
	c.key = cacheKey(folderPaths, pathPrefix)
	c.ids = set
	c.mu.Unlock()
	return set
}

// Invalidate clears the cache, forcing the next lookup to re-resolve.
func (c *AllowedClipCache) Invalidate() {
	c.mu.Lock()
	c.key = ""
	c.ids = nil
	c.mu.Unlock()
}
