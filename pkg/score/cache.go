package score

import (
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Entry is one memoized local score.
type Entry struct {
	X       int
	Parents []int // sorted
	Score   float64
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Cache memoizes the local scores of a [Scorer] keyed by variable and
// parent set.
//
// Lookups may run concurrently with each other. The search engine reads
// during candidate evaluation, collects the scores it had to compute, and
// after all workers are done merges them with [Cache.Store] and drops the
// entries of variables whose parent set changed with [Cache.Invalidate].
// [Cache.Local] combines lookup and store for callers that do not batch.
type Cache struct {
	scorer Scorer

	mu    sync.RWMutex
	byVar []map[string]float64

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache wraps s.
func NewCache(s Scorer) *Cache {
	return &Cache{scorer: s, byVar: make([]map[string]float64, len(s.Labels()))}
}

// Scorer returns the wrapped scorer.
func (c *Cache) Scorer() Scorer { return c.scorer }

// Labels returns the wrapped scorer's labels.
func (c *Cache) Labels() []string { return c.scorer.Labels() }

// Lookup returns the memoized score of x given parents.
func (c *Cache) Lookup(x int, parents []int) (float64, bool) {
	key := parentKey(sortedCopy(parents))
	c.mu.RLock()
	defer c.mu.RUnlock()
	if x < 0 || x >= len(c.byVar) || c.byVar[x] == nil {
		c.misses.Add(1)
		return 0, false
	}
	v, ok := c.byVar[x][key]
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return v, ok
}

// Compute returns the memoized score of x given parents or computes it
// without storing. The returned entry is meant for a later [Cache.Store].
func (c *Cache) Compute(x int, parents []int) (Entry, bool, error) {
	sorted := sortedCopy(parents)
	if v, ok := c.Lookup(x, sorted); ok {
		return Entry{X: x, Parents: sorted, Score: v}, true, nil
	}
	v, err := c.scorer.Local(x, sorted)
	if err != nil {
		return Entry{}, false, err
	}
	return Entry{X: x, Parents: sorted, Score: v}, false, nil
}

// Local implements [Scorer], storing computed scores immediately.
func (c *Cache) Local(x int, parents []int) (float64, error) {
	e, hit, err := c.Compute(x, parents)
	if err != nil {
		return 0, err
	}
	if !hit {
		c.Store(e)
	}
	return e.Score, nil
}

// Store records entries.
func (c *Cache) Store(entries ...Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		if e.X < 0 || e.X >= len(c.byVar) {
			continue
		}
		if c.byVar[e.X] == nil {
			c.byVar[e.X] = make(map[string]float64)
		}
		c.byVar[e.X][parentKey(e.Parents)] = e.Score
	}
}

// Invalidate drops every entry of the given variables and returns how many
// were dropped.
func (c *Cache) Invalidate(vars ...int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, x := range vars {
		if x < 0 || x >= len(c.byVar) {
			continue
		}
		n += len(c.byVar[x])
		c.byVar[x] = nil
	}
	return n
}

// Stats returns hit and miss counters and the current number of entries.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	n := 0
	for _, m := range c.byVar {
		n += len(m)
	}
	c.mu.RUnlock()
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Entries: n}
}

func sortedCopy(s []int) []int {
	out := slices.Clone(s)
	slices.Sort(out)
	return out
}

func parentKey(parents []int) string {
	var b strings.Builder
	for i, p := range parents {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}
