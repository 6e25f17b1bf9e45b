package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type ctx struct {
	id string
}

func key(name string) Key {
	return Key{ConfigName: name, FactoryType: "JointModel"}
}

func build(id string) func() (*ctx, error) {
	return func() (*ctx, error) {
		return &ctx{id: id}, nil
	}
}

func TestGetOrBuild_MissBuildsAndChecksOut(t *testing.T) {
	c := New[*ctx](4)

	v, err := c.GetOrBuild(key("arm"), build("c1"))
	require.NoError(t, err)
	assert.Equal(t, "c1", v.id)
	assert.Equal(t, 1, c.Len())
}

func TestGetOrBuild_HitAfterRelease(t *testing.T) {
	c := New[*ctx](4)

	v1, err := c.GetOrBuild(key("arm"), build("c1"))
	require.NoError(t, err)
	c.Release(key("arm"), v1)

	v2, err := c.GetOrBuild(key("arm"), build("c2"))
	require.NoError(t, err)
	assert.Same(t, v1, v2, "released entry must be reused")
	assert.Equal(t, 1, c.Len())
}

func TestGetOrBuild_CheckedOutEntryNotShared(t *testing.T) {
	c := New[*ctx](4)

	v1, err := c.GetOrBuild(key("arm"), build("c1"))
	require.NoError(t, err)

	// v1 not released: the same key must yield a distinct context.
	v2, err := c.GetOrBuild(key("arm"), build("c2"))
	require.NoError(t, err)
	assert.NotSame(t, v1, v2)
}

func TestGetOrBuild_BuildErrorPropagates(t *testing.T) {
	c := New[*ctx](4)

	_, err := c.GetOrBuild(key("arm"), func() (*ctx, error) {
		return nil, fmt.Errorf("assembly failed")
	})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len(), "failed builds must not be cached")
}

func TestEviction_LRUOrder(t *testing.T) {
	c := New[*ctx](2)

	a, _ := c.GetOrBuild(key("a"), build("a"))
	b, _ := c.GetOrBuild(key("b"), build("b"))
	c.Release(key("a"), a)
	c.Release(key("b"), b)

	// Touch "a" so "b" is the least recently used.
	a2, _ := c.GetOrBuild(key("a"), build("a2"))
	c.Release(key("a"), a2)

	_, err := c.GetOrBuild(key("d"), build("d"))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	// "b" was evicted; rebuilding it yields a fresh context.
	b2, err := c.GetOrBuild(key("b"), build("b2"))
	require.NoError(t, err)
	assert.NotSame(t, b, b2)
}

func TestEviction_NeverRemovesCheckedOut(t *testing.T) {
	c := New[*ctx](2)

	a, _ := c.GetOrBuild(key("a"), build("a"))
	b, _ := c.GetOrBuild(key("b"), build("b"))
	_ = b // both stay checked out

	// Capacity exceeded with everything checked out: grow, do not evict.
	d, err := c.GetOrBuild(key("d"), build("d"))
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	// Releasing "a" restores it as reusable; it was never evicted.
	c.Release(key("a"), a)
	a2, err := c.GetOrBuild(key("a"), build("a-new"))
	require.NoError(t, err)
	assert.Same(t, a, a2)

	c.Release(key("d"), d)
}

func TestRelease_DisplacedValueDropped(t *testing.T) {
	c := New[*ctx](4)

	v1, _ := c.GetOrBuild(key("arm"), build("c1"))
	v2, _ := c.GetOrBuild(key("arm"), build("c2")) // displaces v1's slot

	// Releasing the displaced v1 must not clobber v2's checkout.
	c.Release(key("arm"), v1)
	v3, err := c.GetOrBuild(key("arm"), build("c3"))
	require.NoError(t, err)
	assert.NotSame(t, v2, v3, "v2 is still checked out")

	c.Release(key("arm"), v2)
}

func TestStats(t *testing.T) {
	c := New[*ctx](4)

	v, _ := c.GetOrBuild(key("arm"), build("c1"))
	c.Release(key("arm"), v)
	_, _ = c.GetOrBuild(key("arm"), build("c2"))

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestConcurrentCheckoutExclusivity(t *testing.T) {
	c := New[*ctx](4)
	const n = 64

	var mu sync.Mutex
	inUse := make(map[*ctx]int)
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := c.GetOrBuild(key("arm"), build(fmt.Sprintf("c%d", i)))
			if err != nil {
				t.Errorf("GetOrBuild: %v", err)
				return
			}

			mu.Lock()
			inUse[v]++
			if inUse[v] > 1 {
				t.Errorf("context %s handed to two callers simultaneously", v.id)
			}
			mu.Unlock()

			mu.Lock()
			inUse[v]--
			mu.Unlock()

			c.Release(key("arm"), v)
		}(i)
	}
	wg.Wait()
}

func TestPropertyCapacityRespectedWhenReleased(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 8).Draw(t, "capacity")
		c := New[*ctx](capacity)

		ops := rapid.IntRange(1, 50).Draw(t, "ops")
		for i := 0; i < ops; i++ {
			name := fmt.Sprintf("cfg_%d", rapid.IntRange(0, 12).Draw(t, "cfg"))
			v, err := c.GetOrBuild(key(name), build(name))
			if err != nil {
				t.Fatalf("GetOrBuild: %v", err)
			}
			// Release immediately: with no outstanding checkouts the
			// cache must never exceed its capacity.
			c.Release(key(name), v)
			if c.Len() > capacity {
				t.Fatalf("cache grew to %d entries with capacity %d and no checkouts", c.Len(), capacity)
			}
		}
	})
}
