package depot

import "fmt"

// Component is the typed accessor for one registered component kind.
// Instances come from FactoryNewComponent and are cheap to copy; they carry
// only the kind's identifier.
type Component[T any] struct {
	id ComponentID
}

// ID returns the identifier of the component kind.
func (c Component[T]) ID() ComponentID { return c.id }

// ComponentID implements ComponentRef.
func (c Component[T]) ComponentID() ComponentID { return c.id }

// GetFromCursor returns a read-only pointer to the value at the cursor's
// current row. For kinds declared Optional it returns nil when the row's
// archetype lacks the kind. The pointer is valid until the next structural
// mutation.
func (c Component[T]) GetFromCursor(cur *Cursor) *T {
	if Config.debugAccessChecks && !cur.plan.canRead(c.id) {
		panic(fmt.Sprintf("depot: query did not declare read access to %s", c.id))
	}
	slot := cur.current.slot(c.id)
	if slot < 0 {
		return nil
	}
	return (*T)(cur.current.columns[slot].ptrAt(cur.row))
}

// MutFromCursor returns a mutable pointer to the value at the cursor's
// current row and stamps the row's changed tick. Call it only when you
// actually write; the stamp is what downstream Changed filters observe.
// Returns nil for an Optional kind absent from the current archetype.
func (c Component[T]) MutFromCursor(cur *Cursor) *T {
	if Config.debugAccessChecks && !cur.plan.canWrite(c.id) {
		panic(fmt.Sprintf("depot: query did not declare write access to %s", c.id))
	}
	slot := cur.current.slot(c.id)
	if slot < 0 {
		return nil
	}
	cur.current.stampChanged(slot, cur.row, cur.sto.tick)
	return (*T)(cur.current.columns[slot].ptrAt(cur.row))
}

// GetFromCursorSafe is GetFromCursor with an explicit presence flag, for
// Optional kinds where nil-checking reads poorly.
func (c Component[T]) GetFromCursorSafe(cur *Cursor) (bool, *T) {
	ptr := c.GetFromCursor(cur)
	return ptr != nil, ptr
}

// CheckCursor reports whether the cursor's current row carries the kind.
func (c Component[T]) CheckCursor(cur *Cursor) bool {
	return cur.current.slot(c.id) >= 0
}
