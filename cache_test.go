package depot

import "testing"

// TestCacheBasicOperations tests the basic operations of the SimpleCache
func TestCacheBasicOperations(t *testing.T) {
	const capacity = 10
	cache := FactoryNewCache[string](capacity)

	items := []string{"item1", "item2", "item3", "item4", "item5"}
	indices := make([]int, len(items))

	for i, item := range items {
		index, err := cache.Register(item, item)
		if err != nil {
			t.Errorf("Failed to register item %s: %v", item, err)
		}
		indices[i] = index

		if index != i {
			t.Errorf("Index for item %s is %d, expected %d", item, index, i)
		}
	}

	for i, item := range items {
		index, found := cache.GetIndex(item)
		if !found {
			t.Errorf("Item %s not found in cache", item)
		}
		if index != indices[i] {
			t.Errorf("Index for item %s is %d, expected %d", item, index, indices[i])
		}
	}

	for i, item := range items {
		cachedItem := cache.GetItem(indices[i])
		if *cachedItem != item {
			t.Errorf("Item at index %d is %s, expected %s", indices[i], *cachedItem, item)
		}
	}

	if _, found := cache.GetIndex("nonexistent"); found {
		t.Errorf("Found non-existent item in cache")
	}
}

// TestCacheCapacity tests the cache capacity limits
func TestCacheCapacity(t *testing.T) {
	const capacity = 5
	cache := FactoryNewCache[int](capacity)

	for i := 1; i <= capacity; i++ {
		key := "item" + string(rune(i+'0'))
		if _, err := cache.Register(key, i); err != nil {
			t.Errorf("Failed to register item %s: %v", key, err)
		}
	}

	if _, err := cache.Register("overflow", 100); err == nil {
		t.Errorf("Expected error when exceeding cache capacity, but got none")
	}
}

// TestCacheClear tests the cache clear functionality
func TestCacheClear(t *testing.T) {
	cache := FactoryNewCache[string](10)

	items := []string{"item1", "item2", "item3"}
	for _, item := range items {
		if _, err := cache.Register(item, item); err != nil {
			t.Errorf("Failed to register item %s: %v", item, err)
		}
	}

	cache.Clear()

	for _, item := range items {
		if _, found := cache.GetIndex(item); found {
			t.Errorf("Item %s still found after cache clear", item)
		}
	}

	for _, item := range items {
		if _, err := cache.Register(item, item); err != nil {
			t.Errorf("Failed to register item %s after clear: %v", item, err)
		}
	}
}

// TestCacheWithComplexTypes tests the cache with struct values
func TestCacheWithComplexTypes(t *testing.T) {
	cache := FactoryNewCache[Position](10)

	positions := []Position{
		{X: 1.0, Y: 2.0},
		{X: 3.0, Y: 4.0},
		{X: 5.0, Y: 6.0},
	}
	keys := []string{"pos1", "pos2", "pos3"}

	for i, pos := range positions {
		if _, err := cache.Register(keys[i], pos); err != nil {
			t.Errorf("Failed to register position %v: %v", pos, err)
		}
	}

	for i, key := range keys {
		index, found := cache.GetIndex(key)
		if !found {
			t.Errorf("Position with key %s not found", key)
			continue
		}
		pos := cache.GetItem(index)
		if pos.X != positions[i].X || pos.Y != positions[i].Y {
			t.Errorf("Position at index %d is %v, expected %v", index, pos, positions[i])
		}
	}
}

func TestQueryMatchCacheVersioning(t *testing.T) {
	mc := newQueryMatchCache(4)

	mc.store("sig", 1, []int{0, 2})
	if got, ok := mc.lookup("sig", 1); !ok || len(got) != 2 {
		t.Fatalf("lookup() = (%v, %v) at matching version", got, ok)
	}
	if _, ok := mc.lookup("sig", 2); ok {
		t.Error("Stale entry served after version bump")
	}

	// Storing at the new version clears the old generation.
	mc.store("other", 2, []int{1})
	if _, ok := mc.lookup("sig", 2); ok {
		t.Error("Old-generation entry survived the clear")
	}
	if got, ok := mc.lookup("other", 2); !ok || len(got) != 1 {
		t.Errorf("lookup() = (%v, %v) for fresh entry", got, ok)
	}
}

func TestQueryMatchCacheEviction(t *testing.T) {
	mc := newQueryMatchCache(2)

	mc.store("a", 1, []int{0})
	mc.store("b", 1, []int{1})
	// Third entry overflows the bound: everything drops but the newest.
	mc.store("c", 1, []int{2})

	if _, ok := mc.lookup("a", 1); ok {
		t.Error("Evicted entry still served")
	}
	if got, ok := mc.lookup("c", 1); !ok || len(got) != 1 || got[0] != 2 {
		t.Errorf("lookup() = (%v, %v) for surviving entry", got, ok)
	}
}
