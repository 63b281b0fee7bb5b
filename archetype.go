package depot

import (
	"iter"
	"unsafe"

	"github.com/TheBitDrifter/mask"
)

// zeroSized backs pointers handed out for zero-size component kinds (tags).
var zeroSized struct{ _ [1]byte }

// column is the dense storage for one component kind within an archetype.
// Values live in an untyped byte array addressed by row * itemSize; tick
// pairs sit in a parallel slice so change filters never touch the data.
type column struct {
	data     []byte
	itemSize uintptr
	ticks    []tickPair
}

func (c *column) ptrAt(row int) unsafe.Pointer {
	if c.itemSize == 0 {
		return unsafe.Pointer(&zeroSized)
	}
	return unsafe.Pointer(&c.data[uintptr(row)*c.itemSize])
}

func (c *column) writeRaw(row int, src unsafe.Pointer) {
	if c.itemSize == 0 || src == nil {
		return
	}
	dst := c.data[uintptr(row)*c.itemSize : uintptr(row+1)*c.itemSize]
	copy(dst, unsafe.Slice((*byte)(src), c.itemSize))
}

// archetype is the columnar table for one exact component set. Rows are
// dense: removal swaps the last row into the hole, so row indices are only
// stable between structural mutations and must be re-resolved through the
// entity location index.
type archetype struct {
	index    int
	archMask mask.Mask
	compIDs  []ComponentID // sorted
	slots    [MaxComponentTypes]int16
	columns  []column
	entities []Entity
}

var _ mask.Maskable = &archetype{}

func newArchetype(index int, m mask.Mask, ids []ComponentID) *archetype {
	a := &archetype{
		index:    index,
		archMask: m,
		compIDs:  ids,
		columns:  make([]column, len(ids)),
	}
	for i := range a.slots {
		a.slots[i] = -1
	}
	for slot, id := range ids {
		a.slots[id] = int16(slot)
		a.columns[slot].itemSize = componentSize(id)
	}
	return a
}

// Mask returns the component-set mask identifying this archetype.
func (a *archetype) Mask() mask.Mask { return a.archMask }

func (a *archetype) len() int { return len(a.entities) }

// slot returns the column index for the kind, or -1 when absent.
func (a *archetype) slot(id ComponentID) int {
	return int(a.slots[id])
}

// Components yields the archetype's component kinds in sorted order.
func (a *archetype) Components() iter.Seq[ComponentID] {
	return func(yield func(ComponentID) bool) {
		for _, id := range a.compIDs {
			if !yield(id) {
				return
			}
		}
	}
}

// pushRow appends a zeroed row for e, stamping every column with the
// current tick as both added and changed. Returns the new row index.
func (a *archetype) pushRow(e Entity, tick Tick) int {
	row := len(a.entities)
	a.entities = append(a.entities, e)
	for i := range a.columns {
		col := &a.columns[i]
		if col.itemSize > 0 {
			col.data = append(col.data, make([]byte, col.itemSize)...)
		}
		col.ticks = append(col.ticks, tickPair{added: tick, changed: tick})
	}
	return row
}

// copyRowFrom copies every component kind shared with src byte-for-byte
// from srcRow into dstRow, carrying the source tick pairs along so a
// structural move never counts as a change.
func (a *archetype) copyRowFrom(dstRow int, src *archetype, srcRow int) {
	for srcSlot, id := range src.compIDs {
		dstSlot := a.slot(id)
		if dstSlot < 0 {
			continue
		}
		srcCol := &src.columns[srcSlot]
		dstCol := &a.columns[dstSlot]
		dstCol.writeRaw(dstRow, srcCol.ptrAt(srcRow))
		dstCol.ticks[dstRow] = srcCol.ticks[srcRow]
	}
}

// swapRemove deletes row by moving the last row into its place. It returns
// the entity that now occupies row, or the zero Entity when row was last.
func (a *archetype) swapRemove(row int) Entity {
	last := len(a.entities) - 1
	var moved Entity
	if row != last {
		moved = a.entities[last]
		a.entities[row] = moved
	}
	a.entities = a.entities[:last]
	for i := range a.columns {
		col := &a.columns[i]
		if row != last && col.itemSize > 0 {
			dst := col.data[uintptr(row)*col.itemSize : uintptr(row+1)*col.itemSize]
			srcBytes := col.data[uintptr(last)*col.itemSize : uintptr(last+1)*col.itemSize]
			copy(dst, srcBytes)
		}
		if row != last {
			col.ticks[row] = col.ticks[last]
		}
		if col.itemSize > 0 {
			col.data = col.data[:uintptr(last)*col.itemSize]
		}
		col.ticks = col.ticks[:last]
	}
	return moved
}

func (a *archetype) stampChanged(slot, row int, tick Tick) {
	a.columns[slot].ticks[row].changed = tick
}

func (a *archetype) tickAt(slot, row int) tickPair {
	return a.columns[slot].ticks[row]
}

// ifaceDataPtr extracts the data pointer from a boxed component value.
// Component kinds are plain structs, which interfaces store indirectly, so
// the data word points at the value bytes.
func ifaceDataPtr(v any) unsafe.Pointer {
	type eface struct {
		_    unsafe.Pointer
		data unsafe.Pointer
	}
	return (*eface)(unsafe.Pointer(&v)).data
}
