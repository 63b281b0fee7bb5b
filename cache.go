package depot

import (
	"sync"

	"github.com/rotisserie/eris"
)

var _ Cache[any] = &SimpleCache[any]{}

// SimpleCache is a bounded string-keyed registry with stable integer
// indices. Registered items keep their index until Clear.
type SimpleCache[T any] struct {
	items       []T
	itemIndices map[string]int
	maxCapacity int
}

// FactoryNewCache creates a SimpleCache bounded at cap items.
func FactoryNewCache[T any](cap int) Cache[T] {
	return &SimpleCache[T]{
		itemIndices: make(map[string]int),
		maxCapacity: cap,
	}
}

func (c *SimpleCache[T]) GetIndex(key string) (int, bool) {
	index, ok := c.itemIndices[key]
	return index, ok
}

func (c *SimpleCache[T]) GetItem(index int) *T {
	return &c.items[index]
}

func (c *SimpleCache[T]) Register(key string, item T) (int, error) {
	if len(c.itemIndices) >= c.maxCapacity {
		return -1, eris.Errorf("cache at maximum capacity (%d)", c.maxCapacity)
	}
	idx := len(c.items)
	c.itemIndices[key] = idx
	c.items = append(c.items, item)
	return idx, nil
}

func (c *SimpleCache[T]) Clear() {
	c.items = nil
	c.itemIndices = make(map[string]int)
}

// queryMatchCache memoizes which archetypes match a query signature. A
// storage-wide version counter, bumped on every archetype creation,
// invalidates the whole cache at once; stale per-entry bookkeeping is not
// worth it when archetype creation is rare after warmup.
//
// Cursors opened by systems in the same parallel batch resolve through this
// cache concurrently, so it carries its own lock.
type queryMatchCache struct {
	mu      sync.RWMutex
	cache   Cache[[]int]
	version uint32
}

func newQueryMatchCache(capacity int) *queryMatchCache {
	return &queryMatchCache{cache: FactoryNewCache[[]int](capacity)}
}

func (c *queryMatchCache) lookup(signature string, version uint32) ([]int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.version != version {
		return nil, false
	}
	idx, ok := c.cache.GetIndex(signature)
	if !ok {
		return nil, false
	}
	return *c.cache.GetItem(idx), true
}

func (c *queryMatchCache) store(signature string, version uint32, matches []int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.version != version {
		c.cache.Clear()
		c.version = version
	}
	if _, idxOK := c.cache.GetIndex(signature); idxOK {
		// Another resolver stored the same plan first.
		return
	}
	if _, err := c.cache.Register(signature, matches); err != nil {
		// Full cache: drop everything and keep the newest entry.
		c.cache.Clear()
		_, _ = c.cache.Register(signature, matches)
	}
}
