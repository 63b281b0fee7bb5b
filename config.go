package depot

// Config holds package-level tunables. Mutate it before creating Storages;
// values are read at construction and at cursor access time.
var Config = config{
	queryCacheCapacity: 1024,
}

type config struct {
	queryCacheCapacity int
	debugAccessChecks  bool
}

// SetQueryCacheCapacity bounds the per-storage query match cache. The cache
// clears wholesale when the bound is hit.
func (c *config) SetQueryCacheCapacity(n int) {
	if n > 0 {
		c.queryCacheCapacity = n
	}
}

// SetDebugAccessChecks toggles runtime verification that cursor accessors
// stay within their plan's declared reads and writes. Violations panic.
// Intended for development builds; the checks cost a mask test per access.
func (c *config) SetDebugAccessChecks(on bool) {
	c.debugAccessChecks = on
}
