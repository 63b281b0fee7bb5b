package depot

import "fmt"

// Entity identifies a logical entity. The generation counter guards against
// stale handles: once an entity is destroyed its index may be reused, but
// only under a bumped generation, so old handles stop validating.
type Entity struct {
	id  uint32
	gen uint32
}

// ID returns the backing index of the entity.
func (e Entity) ID() uint32 { return e.id }

// Generation returns the generation counter of the handle.
func (e Entity) Generation() uint32 { return e.gen }

// IsZero reports whether the handle is the zero value. The zero Entity is
// never valid.
func (e Entity) IsZero() bool { return e.id == 0 && e.gen == 0 }

func (e Entity) String() string {
	return fmt.Sprintf("Entity(%d:%d)", e.id, e.gen)
}

// entityAllocator issues entity indices and recycles freed ones. Index 0 is
// burned at construction so the zero Entity can act as a sentinel.
type entityAllocator struct {
	generations []uint32
	free        []uint32
	alive       uint32
}

func newEntityAllocator() entityAllocator {
	return entityAllocator{generations: make([]uint32, 1)}
}

// alloc returns a fresh handle, reusing the most recently freed index when
// one is available. The generation is bumped on every allocation, so a
// recycled index never collides with a previously issued handle.
func (a *entityAllocator) alloc() Entity {
	var index uint32
	if n := len(a.free); n > 0 {
		index = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		index = uint32(len(a.generations))
		a.generations = append(a.generations, 0)
	}
	a.generations[index]++
	a.alive++
	return Entity{id: index, gen: a.generations[index]}
}

// release invalidates the handle and recycles its index.
func (a *entityAllocator) release(e Entity) error {
	if !a.isValid(e) {
		return ErrInvalidEntity
	}
	a.generations[e.id]++
	a.free = append(a.free, e.id)
	a.alive--
	return nil
}

func (a *entityAllocator) isValid(e Entity) bool {
	if e.IsZero() || e.id >= uint32(len(a.generations)) {
		return false
	}
	return a.generations[e.id] == e.gen
}

func (a *entityAllocator) count() int { return int(a.alive) }
