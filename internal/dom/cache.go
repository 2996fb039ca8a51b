package dom

import "sync"

// SnapshotCache memoizes extraction results per content hash so repeated
// resolutions against an unchanged page skip the DOM walk. Locators inside
// go stale on navigation, so the whole cache is dropped then.
type SnapshotCache struct {
	mu      sync.Mutex
	entries map[string][]Candidate
	max     int
}

func NewSnapshotCache(max int) *SnapshotCache {
	if max <= 0 {
		max = 8
	}
	return &SnapshotCache{entries: make(map[string][]Candidate), max: max}
}

func (c *SnapshotCache) Get(contentHash, class string) ([]Candidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cands, ok := c.entries[contentHash+"|"+class]
	return cands, ok
}

func (c *SnapshotCache) Put(contentHash, class string, cands []Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.max {
		// Cheap wholesale eviction; entries are rebuilt in one extraction.
		c.entries = make(map[string][]Candidate)
	}
	c.entries[contentHash+"|"+class] = cands
}

func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]Candidate)
}
