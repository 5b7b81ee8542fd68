package stats

import (
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/matzehuels/causalhub/pkg/dataset"
)

// DefaultMaxCells bounds the size of count matrices kept by a
// [CountCache].
const DefaultMaxCells = 1 << 16

// DefaultMaxEntries bounds the number of count matrices a [CountCache]
// holds before it is flushed.
const DefaultMaxEntries = 4096

// CountCache memoizes count matrices keyed by variable and sorted parent
// set. When the matrix for P ∪ {p} is cached, the matrix for P is derived
// from it by marginalization instead of a pass over the data. It is safe
// for concurrent use.
type CountCache struct {
	data       *dataset.Categorical
	maxCells   int
	maxEntries int

	mu     sync.RWMutex
	tables map[string]*CountMatrix
	scans  int
}

// NewCountCache creates a cache over d. Matrices with more than maxCells
// cells are returned but not kept; zero selects [DefaultMaxCells].
func NewCountCache(d *dataset.Categorical, maxCells int) *CountCache {
	if maxCells <= 0 {
		maxCells = DefaultMaxCells
	}
	return &CountCache{
		data:       d,
		maxCells:   maxCells,
		maxEntries: DefaultMaxEntries,
		tables:     make(map[string]*CountMatrix),
	}
}

// Data returns the underlying dataset.
func (c *CountCache) Data() *dataset.Categorical { return c.data }

// Scans returns how many matrices were built by a full pass over the data.
func (c *CountCache) Scans() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scans
}

// Counts returns the count matrix of x against parents, sorted ascending.
func (c *CountCache) Counts(x int, parents []int) (*CountMatrix, error) {
	sorted := slices.Clone(parents)
	slices.Sort(sorted)
	if err := CheckVariables(c.data.Columns(), x, sorted); err != nil {
		return nil, err
	}
	key := countKey(x, sorted)

	c.mu.RLock()
	m, ok := c.tables[key]
	if !ok {
		m = c.deriveLocked(x, sorted)
	}
	c.mu.RUnlock()

	if m == nil {
		var err error
		if m, err = NewCountMatrix(c.data, x, sorted); err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.scans++
		c.mu.Unlock()
	}
	if !ok {
		c.store(key, m)
	}
	return m, nil
}

// deriveLocked looks for a cached superset with one extra parent and
// marginalizes it. Callers hold at least the read lock.
func (c *CountCache) deriveLocked(x int, parents []int) *CountMatrix {
	for p := 0; p < c.data.Columns(); p++ {
		if p == x || slices.Contains(parents, p) {
			continue
		}
		super := slices.Clone(parents)
		i, _ := slices.BinarySearch(super, p)
		super = slices.Insert(super, i, p)
		if m, ok := c.tables[countKey(x, super)]; ok {
			return m.Marginalize(i)
		}
	}
	return nil
}

func (c *CountCache) store(key string, m *CountMatrix) {
	if m.Cells() > c.maxCells {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.tables) >= c.maxEntries {
		clear(c.tables)
	}
	c.tables[key] = m
}

func countKey(x int, parents []int) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(x))
	b.WriteByte('|')
	for i, p := range parents {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}
