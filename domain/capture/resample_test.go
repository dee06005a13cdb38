package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndexMonotonicAndInRange(t *testing.T) {
	t.Parallel()

	pairs := [][2]int{{1920, 1280}, {1080, 720}, {1280, 1920}, {7, 3}, {3, 7}, {1, 5}, {5, 1}, {2560, 2560}}
	for _, p := range pairs {
		src, dst := p[0], p[1]
		idx := buildIndex(src, dst)
		require.Len(t, idx, dst)
		assert.Equal(t, 0, idx[0])
		for i := 1; i < len(idx); i++ {
			assert.GreaterOrEqual(t, idx[i], idx[i-1], "src=%d dst=%d at %d", src, dst, i)
		}
		assert.Less(t, idx[len(idx)-1], src, "src=%d dst=%d", src, dst)
		assert.Equal(t, idx, buildIndex(src, dst))
	}
}

func TestSourceIndexFloors(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 1918, sourceIndex(1279, 1920, 1280))
	assert.Equal(t, 1078, sourceIndex(719, 1080, 720))
	assert.Equal(t, 2, sourceIndex(1, 7, 3))
}

func TestTableCacheReusesUntilDimensionsChange(t *testing.T) {
	t.Parallel()

	c := newTableCache()
	k1 := tableKey{srcW: 1920, srcH: 1080, dstW: 1280, dstH: 720}
	k2 := tableKey{srcW: 2560, srcH: 1440, dstW: 1280, dstH: 720}

	a := c.get(k1)
	assert.Same(t, a, c.get(k1))
	assert.Equal(t, 1, c.builds)

	b := c.get(k2)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, c.builds)

	// switching back hits the LRU instead of rebuilding
	assert.Same(t, a, c.get(k1))
	assert.Equal(t, 2, c.builds)
}

func TestIndexTablesIdentity(t *testing.T) {
	t.Parallel()

	tab := newIndexTables(tableKey{srcW: 640, srcH: 480, dstW: 640, dstH: 480})
	assert.True(t, tab.identity)
	assert.Nil(t, tab.xs)
	assert.Len(t, tab.ys, 480)

	tab = newIndexTables(tableKey{srcW: 640, srcH: 480, dstW: 640, dstH: 240})
	assert.False(t, tab.identity)
	assert.Nil(t, tab.xs)
}
