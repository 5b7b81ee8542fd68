// Package components provides a disjoint-set (union-find) structure and
// connected-component queries over [dag] graphs.
//
// Components are reported deterministically: each component is sorted
// ascending and components are ordered by their smallest vertex.
//
// [dag]: github.com/matzehuels/causalhub/pkg/dag
package components

// UnionFind is a disjoint-set forest over the integers 0..n-1 with union by
// rank and path compression.
//
// The zero value is an empty forest; use [New] to size it.
type UnionFind struct {
	parent []int
	rank   []uint8
	sets   int
}

// New creates n singleton sets.
func New(n int) *UnionFind {
	u := &UnionFind{
		parent: make([]int, n),
		rank:   make([]uint8, n),
		sets:   n,
	}
	for i := range u.parent {
		u.parent[i] = i
	}
	return u
}

// Len returns the number of elements.
func (u *UnionFind) Len() int { return len(u.parent) }

// Sets returns the number of disjoint sets.
func (u *UnionFind) Sets() int { return u.sets }

// Find returns the representative of x's set.
func (u *UnionFind) Find(x int) int {
	// Walk up until the root, halving the path on the way.
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

// Union merges the sets containing x and y. It reports whether they were
// previously disjoint.
func (u *UnionFind) Union(x, y int) bool {
	rx, ry := u.Find(x), u.Find(y)
	if rx == ry {
		return false
	}
	switch {
	case u.rank[rx] < u.rank[ry]:
		u.parent[rx] = ry
	case u.rank[rx] > u.rank[ry]:
		u.parent[ry] = rx
	default:
		u.parent[ry] = rx
		u.rank[rx]++
	}
	u.sets--
	return true
}

// Extend merges every item into the set of the first one.
func (u *UnionFind) Extend(items ...int) {
	for i := 1; i < len(items); i++ {
		u.Union(items[0], items[i])
	}
}

// Connected reports whether x and y are in the same set.
func (u *UnionFind) Connected(x, y int) bool {
	return u.Find(x) == u.Find(y)
}

// Groups returns the sets restricted to members for which keep returns
// true (nil keeps everything). Each group is ascending and groups are
// ordered by their smallest element.
func (u *UnionFind) Groups(keep func(int) bool) [][]int {
	byRoot := make(map[int]int)
	var out [][]int
	for x := range u.parent {
		if keep != nil && !keep(x) {
			continue
		}
		r := u.Find(x)
		i, ok := byRoot[r]
		if !ok {
			i = len(out)
			byRoot[r] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], x)
	}
	return out
}
