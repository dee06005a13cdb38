package capture

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// tableCacheSize bounds the number of resolution pairs kept per converter.
// Two entries cover a mode switch and the switch back.
const tableCacheSize = 4

type tableKey struct {
	srcW, srcH int
	dstW, dstH int
}

// indexTables hold, for every destination column/row, the source column/row
// sampled by nearest neighbour.
type indexTables struct {
	key      tableKey
	xs       []int // nil when srcW == dstW
	ys       []int
	identity bool
}

// sourceIndex returns floor(t*src/dst).
func sourceIndex(t, src, dst int) int {
	return int(int64(t) * int64(src) / int64(dst))
}

func buildIndex(src, dst int) []int {
	idx := make([]int, dst)
	for t := range idx {
		idx[t] = sourceIndex(t, src, dst)
	}
	return idx
}

func newIndexTables(k tableKey) *indexTables {
	t := &indexTables{key: k, ys: buildIndex(k.srcH, k.dstH)}
	if k.srcW != k.dstW {
		t.xs = buildIndex(k.srcW, k.dstW)
	}
	t.identity = k.srcW == k.dstW && k.srcH == k.dstH
	return t
}

// tableCache keeps the tables for the current resolution pair hot and a few
// recent pairs in an LRU.
type tableCache struct {
	current *indexTables
	recent  *lru.Cache[tableKey, *indexTables]
	builds  int
}

func newTableCache() *tableCache {
	c, _ := lru.New[tableKey, *indexTables](tableCacheSize)
	return &tableCache{recent: c}
}

func (c *tableCache) get(k tableKey) *indexTables {
	if c.current != nil && c.current.key == k {
		return c.current
	}
	t, ok := c.recent.Get(k)
	if !ok {
		t = newIndexTables(k)
		c.builds++
		c.recent.Add(k, t)
	}
	c.current = t
	return t
}
