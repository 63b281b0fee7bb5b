package depot

// Cursor walks the rows matched by a QueryPlan against one Storage. The
// first Next locks the storage against structural mutation; exhausting the
// cursor (or calling Reset early) releases it. Cursors are single-use per
// iteration but reusable across iterations.
type Cursor struct {
	plan    *QueryPlan
	sto     *Storage
	current *archetype
	row     int

	since       Tick
	matched     []int
	archPos     int
	nextRow     int
	initialized bool
}

func newCursor(plan *QueryPlan, sto *Storage) *Cursor {
	return &Cursor{plan: plan, sto: sto}
}

// Since sets the baseline tick for the plan's Changed and Added terms: only
// rows stamped strictly newer than the baseline match. Call before Next;
// the default baseline of zero matches everything ever stamped.
func (c *Cursor) Since(tick Tick) *Cursor {
	c.since = tick
	return c
}

// Next advances to the next matching row, returning false when the
// iteration is exhausted. Exhaustion resets the cursor and unlocks the
// storage.
func (c *Cursor) Next() bool {
	if !c.initialized {
		c.initialize()
	}
	for c.archPos < len(c.matched) {
		c.current = c.sto.archetypes.list[c.matched[c.archPos]]
		for c.nextRow < c.current.len() {
			row := c.nextRow
			c.nextRow++
			if c.rowMatches(row) {
				c.row = row
				return true
			}
		}
		c.archPos++
		c.nextRow = 0
	}
	c.Reset()
	return false
}

// rowMatches applies the per-row change filters. Filter kinds are always
// present on matched archetypes, so slot lookups cannot miss.
func (c *Cursor) rowMatches(row int) bool {
	for _, id := range c.plan.changed {
		pair := c.current.tickAt(c.current.slot(id), row)
		if !pair.changed.NewerThan(c.since) {
			return false
		}
	}
	for _, id := range c.plan.added {
		pair := c.current.tickAt(c.current.slot(id), row)
		if !pair.added.NewerThan(c.since) {
			return false
		}
	}
	return true
}

func (c *Cursor) initialize() {
	if c.initialized {
		return
	}
	c.sto.Lock()
	c.matched = c.plan.matchArchetypes(c.sto)
	c.archPos = 0
	c.nextRow = 0
	c.initialized = true
}

// Reset abandons the iteration and unlocks the storage. Safe to call on a
// never-started cursor.
func (c *Cursor) Reset() {
	if !c.initialized {
		return
	}
	c.matched = nil
	c.current = nil
	c.archPos = 0
	c.nextRow = 0
	c.row = 0
	c.initialized = false
	c.sto.Unlock()
}

// Entity returns the entity at the cursor's current row.
func (c *Cursor) Entity() Entity {
	return c.current.entities[c.row]
}

// TotalMatched counts the rows in matched archetypes, before per-row change
// filtering. Calling it outside an iteration locks and unlocks the storage.
func (c *Cursor) TotalMatched() int {
	started := c.initialized
	if !started {
		c.initialize()
	}
	total := 0
	for _, idx := range c.matched {
		total += c.sto.archetypes.list[idx].len()
	}
	if !started {
		c.Reset()
	}
	return total
}
