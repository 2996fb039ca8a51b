package rank

import (
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
)

// Similarity is a normalized string-similarity in [0,1] over folded,
// whitespace-collapsed strings: the better of an edit-distance ratio and a
// token-overlap ratio, so reordered words still score. Symmetric in its
// arguments.
func Similarity(a, b string) float64 {
	a, b = Normalize(a), Normalize(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	ratio := 1 - float64(dist)/float64(longest)
	if overlap := tokenOverlap(a, b); overlap > ratio {
		return overlap
	}
	return ratio
}

// tokenOverlap is the Jaccard ratio of the two word sets.
func tokenOverlap(a, b string) float64 {
	set := make(map[string]bool)
	for _, w := range strings.Fields(a) {
		set[w] = true
	}
	both, total := 0, len(set)
	for _, w := range strings.Fields(b) {
		if set[w] {
			set[w] = false
			both++
		} else if _, seen := set[w]; !seen {
			set[w] = true
			total++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(both) / float64(total)
}

// Normalize lowercases and collapses whitespace for matching.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// SimCache memoizes pairwise similarities for one page snapshot. Dropped
// wholesale on navigation together with the DOM cache.
type SimCache struct {
	mu  sync.Mutex
	m   map[string]float64
	max int
}

func NewSimCache(max int) *SimCache {
	if max <= 0 {
		max = 4096
	}
	return &SimCache{m: make(map[string]float64), max: max}
}

func (c *SimCache) Similarity(a, b string) float64 {
	key := Normalize(a) + "\x00" + Normalize(b)
	c.mu.Lock()
	if v, ok := c.m[key]; ok {
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	v := Similarity(a, b)

	c.mu.Lock()
	if len(c.m) >= c.max {
		c.m = make(map[string]float64)
	}
	c.m[key] = v
	c.mu.Unlock()
	return v
}

func (c *SimCache) Invalidate() {
	c.mu.Lock()
	c.m = make(map[string]float64)
	c.mu.Unlock()
}
