package depot

import (
	"reflect"
	"sort"
	"sync/atomic"
	"unsafe"

	"github.com/TheBitDrifter/mask"
	iter_util "github.com/TheBitDrifter/util/iter"
	"github.com/google/uuid"
	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// entityLocation is the single source of truth for where an entity's row
// lives. It is rewritten on every structural transition.
type entityLocation struct {
	archetype int32
	row       int32
}

var noLocation = entityLocation{archetype: -1, row: -1}

// archetypeIndex owns every archetype keyed by component-set mask, plus the
// lazily built add/remove transition edges between them. Archetypes are
// never destroyed; empty ones stay around so rapid add/remove cycling does
// not churn allocations.
type archetypeIndex struct {
	list    []*archetype
	byMask  map[mask.Mask]int
	edges   *intmap.Map[uint64, uint32]
	version uint32
}

const edgeAddBit = 1

func edgeKey(from int, id ComponentID, add bool) uint64 {
	key := uint64(from)<<10 | uint64(id)<<1
	if add {
		key |= edgeAddBit
	}
	return key
}

// Storage holds all entities, their component columns, resources, the
// deferred command queue, and the global change tick.
type Storage struct {
	id         string
	log        zerolog.Logger
	allocator  entityAllocator
	locations  []entityLocation
	archetypes archetypeIndex
	resources  resourceMap
	commands   CommandBuffer
	tick       Tick
	lockCount  atomic.Int32
	matchCache *queryMatchCache
}

// StorageOption configures a Storage at construction.
type StorageOption func(*Storage)

// WithLogger attaches a structured logger; the default logger is disabled.
func WithLogger(log zerolog.Logger) StorageOption {
	return func(s *Storage) { s.log = log }
}

func newStorage(opts ...StorageOption) *Storage {
	sto := &Storage{
		id:        uuid.NewString(),
		log:       zerolog.Nop(),
		allocator: newEntityAllocator(),
		archetypes: archetypeIndex{
			byMask: make(map[mask.Mask]int),
			edges:  intmap.New[uint64, uint32](64),
		},
		resources:  newResourceMap(),
		tick:       1,
		matchCache: newQueryMatchCache(Config.queryCacheCapacity),
	}
	for _, opt := range opts {
		opt(sto)
	}
	sto.log = sto.log.With().Str("storage", sto.id).Logger()
	return sto
}

// ID returns the storage instance identifier used in log output.
func (sto *Storage) ID() string { return sto.id }

// CurrentTick returns the global change tick.
func (sto *Storage) CurrentTick() Tick { return sto.tick }

func (sto *Storage) advanceTick() { sto.tick++ }

// Commands returns the storage-owned deferred command queue.
func (sto *Storage) Commands() *CommandBuffer { return &sto.commands }

// Locked reports whether query iteration currently holds the storage.
func (sto *Storage) Locked() bool { return sto.lockCount.Load() > 0 }

// Lock marks the storage as under iteration. Locks nest; each Lock needs a
// matching Unlock.
func (sto *Storage) Lock() { sto.lockCount.Add(1) }

// Unlock releases one iteration hold.
func (sto *Storage) Unlock() {
	if sto.lockCount.Add(-1) < 0 {
		sto.lockCount.Store(0)
	}
}

// Alive reports whether the handle refers to a live entity.
func (sto *Storage) Alive(e Entity) bool {
	return sto.allocator.isValid(e)
}

// EntityCount returns the number of live entities.
func (sto *Storage) EntityCount() int { return sto.allocator.count() }

func (sto *Storage) locationOf(e Entity) (entityLocation, error) {
	if !sto.allocator.isValid(e) {
		return noLocation, ErrInvalidEntity
	}
	loc := sto.locations[e.id]
	if loc.archetype < 0 {
		return noLocation, ErrInvalidEntity
	}
	return loc, nil
}

func (sto *Storage) setLocation(e Entity, arch, row int) {
	for int(e.id) >= len(sto.locations) {
		sto.locations = append(sto.locations, noLocation)
	}
	sto.locations[e.id] = entityLocation{archetype: int32(arch), row: int32(row)}
}

// getOrCreateArchetype resolves a sorted, duplicate-free component id set
// to its archetype, creating columns and bumping the cache-invalidating
// version when the set is new. This is the only place archetypes come from.
func (sto *Storage) getOrCreateArchetype(ids []ComponentID) *archetype {
	var m mask.Mask
	for _, id := range ids {
		m.Mark(uint32(id))
	}
	if idx, ok := sto.archetypes.byMask[m]; ok {
		return sto.archetypes.list[idx]
	}
	idx := len(sto.archetypes.list)
	arch := newArchetype(idx, m, append([]ComponentID(nil), ids...))
	sto.archetypes.list = append(sto.archetypes.list, arch)
	sto.archetypes.byMask[m] = idx
	sto.archetypes.version++
	sto.log.Debug().
		Int("archetype", idx).
		Int("components", len(ids)).
		Msg("archetype created")
	return arch
}

// archetypeWithAdded resolves the "from plus id" transition through the
// edge index, creating the target archetype and edge on first use.
func (sto *Storage) archetypeWithAdded(from *archetype, id ComponentID) *archetype {
	key := edgeKey(from.index, id, true)
	if to, ok := sto.archetypes.edges.Get(key); ok {
		return sto.archetypes.list[to]
	}
	ids := make([]ComponentID, 0, len(from.compIDs)+1)
	ids = append(ids, from.compIDs...)
	ids = append(ids, id)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	to := sto.getOrCreateArchetype(ids)
	sto.archetypes.edges.Put(key, uint32(to.index))
	return to
}

// archetypeWithRemoved resolves the "from minus id" transition.
func (sto *Storage) archetypeWithRemoved(from *archetype, id ComponentID) *archetype {
	key := edgeKey(from.index, id, false)
	if to, ok := sto.archetypes.edges.Get(key); ok {
		return sto.archetypes.list[to]
	}
	ids := make([]ComponentID, 0, len(from.compIDs)-1)
	for _, existing := range from.compIDs {
		if existing != id {
			ids = append(ids, existing)
		}
	}
	to := sto.getOrCreateArchetype(ids)
	sto.archetypes.edges.Put(key, uint32(to.index))
	return to
}

// NewEntity spawns an entity carrying the given component values. Each
// value's shape is registered on first sight. Passing two values of the
// same kind fails with ErrDuplicateComponent.
func (sto *Storage) NewEntity(values ...any) (Entity, error) {
	if sto.Locked() {
		return Entity{}, ErrStorageLocked
	}
	ids := make([]ComponentID, len(values))
	for i, v := range values {
		id, err := registerComponentType(reflect.TypeOf(v))
		if err != nil {
			return Entity{}, err
		}
		ids[i] = id
	}
	sorted := append([]ComponentID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1] {
			return Entity{}, eris.Wrapf(ErrDuplicateComponent, "spawn with repeated kind %s", sorted[i])
		}
	}

	arch := sto.getOrCreateArchetype(sorted)
	e := sto.allocator.alloc()
	row := arch.pushRow(e, sto.tick)
	for i, v := range values {
		arch.columns[arch.slot(ids[i])].writeRaw(row, ifaceDataPtr(v))
	}
	sto.setLocation(e, arch.index, row)
	return e, nil
}

// NewEntities spawns n entities with zero-valued components of the given
// kinds, all landing in the same archetype.
func (sto *Storage) NewEntities(n int, comps ...ComponentRef) ([]Entity, error) {
	if sto.Locked() {
		return nil, ErrStorageLocked
	}
	ids := make([]ComponentID, len(comps))
	for i, c := range comps {
		ids[i] = c.ComponentID()
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			return nil, eris.Wrapf(ErrDuplicateComponent, "spawn with repeated kind %s", ids[i])
		}
	}
	arch := sto.getOrCreateArchetype(ids)
	entities := make([]Entity, n)
	for i := range entities {
		e := sto.allocator.alloc()
		row := arch.pushRow(e, sto.tick)
		sto.setLocation(e, arch.index, row)
		entities[i] = e
	}
	return entities, nil
}

// DestroyEntity despawns the entity, invalidating its handle and recycling
// its index under a new generation.
func (sto *Storage) DestroyEntity(e Entity) error {
	if sto.Locked() {
		return ErrStorageLocked
	}
	loc, err := sto.locationOf(e)
	if err != nil {
		return err
	}
	arch := sto.archetypes.list[loc.archetype]
	moved := arch.swapRemove(int(loc.row))
	if !moved.IsZero() {
		sto.locations[moved.id].row = loc.row
	}
	sto.locations[e.id] = noLocation
	return sto.allocator.release(e)
}

// moveEntity transfers e between archetypes: the destination gains a row
// with all shared column values copied byte-for-byte (tick stamps carried
// over), the optional inserted value written on top (keeping the fresh
// added stamp from pushRow), and the vacated source row swap-removed with
// both affected locations re-indexed.
func (sto *Storage) moveEntity(e Entity, loc entityLocation, to *archetype, insertSlot int, insertVal unsafe.Pointer) int {
	from := sto.archetypes.list[loc.archetype]
	newRow := to.pushRow(e, sto.tick)
	to.copyRowFrom(newRow, from, int(loc.row))
	if insertSlot >= 0 {
		to.columns[insertSlot].writeRaw(newRow, insertVal)
	}
	moved := from.swapRemove(int(loc.row))
	sto.setLocation(e, to.index, newRow)
	if !moved.IsZero() {
		sto.locations[moved.id].row = loc.row
	}
	return newRow
}

func (sto *Storage) addComponentID(e Entity, id ComponentID, src unsafe.Pointer) error {
	if sto.Locked() {
		return ErrStorageLocked
	}
	loc, err := sto.locationOf(e)
	if err != nil {
		return err
	}
	from := sto.archetypes.list[loc.archetype]
	if from.slot(id) >= 0 {
		return eris.Wrapf(ErrDuplicateComponent, "adding %s to %s", id, e)
	}
	to := sto.archetypeWithAdded(from, id)
	sto.moveEntity(e, loc, to, to.slot(id), src)
	return nil
}

func (sto *Storage) removeComponentID(e Entity, id ComponentID) error {
	if sto.Locked() {
		return ErrStorageLocked
	}
	loc, err := sto.locationOf(e)
	if err != nil {
		return err
	}
	from := sto.archetypes.list[loc.archetype]
	if from.slot(id) < 0 {
		return eris.Wrapf(ErrMissingComponent, "removing %s from %s", id, e)
	}
	to := sto.archetypeWithRemoved(from, id)
	sto.moveEntity(e, loc, to, -1, nil)
	return nil
}

// AddComponent attaches value to the entity, moving it to the archetype
// that includes T. Adding a kind the entity already has is an error; use a
// mutable query fetch to overwrite existing values.
func AddComponent[T any](sto *Storage, e Entity, value T) error {
	id, err := registerComponentType(reflect.TypeOf(value))
	if err != nil {
		return err
	}
	return sto.addComponentID(e, id, unsafe.Pointer(&value))
}

// RemoveComponent detaches kind T from the entity and returns the removed
// value.
func RemoveComponent[T any](sto *Storage, e Entity) (T, error) {
	var zero T
	id, err := registerComponentType(reflect.TypeOf(zero))
	if err != nil {
		return zero, err
	}
	loc, err := sto.locationOf(e)
	if err != nil {
		return zero, err
	}
	arch := sto.archetypes.list[loc.archetype]
	slot := arch.slot(id)
	if slot < 0 {
		return zero, eris.Wrapf(ErrMissingComponent, "removing %s from %s", id, e)
	}
	value := *(*T)(arch.columns[slot].ptrAt(int(loc.row)))
	if err := sto.removeComponentID(e, id); err != nil {
		return zero, err
	}
	return value, nil
}

// GetComponent returns a pointer to the entity's value for kind T. The
// pointer is valid only until the next structural mutation.
func GetComponent[T any](sto *Storage, e Entity) (*T, error) {
	var zero T
	id, err := registerComponentType(reflect.TypeOf(zero))
	if err != nil {
		return nil, err
	}
	loc, err := sto.locationOf(e)
	if err != nil {
		return nil, err
	}
	arch := sto.archetypes.list[loc.archetype]
	slot := arch.slot(id)
	if slot < 0 {
		return nil, eris.Wrapf(ErrMissingComponent, "getting %s from %s", id, e)
	}
	return (*T)(arch.columns[slot].ptrAt(int(loc.row))), nil
}

// EntityInfo is a debugging snapshot of where an entity lives.
type EntityInfo struct {
	Entity     Entity
	Archetype  int
	Row        int
	Components []ComponentID
}

// EntityInfo reports the entity's archetype, row, and component set.
func (sto *Storage) EntityInfo(e Entity) (EntityInfo, error) {
	loc, err := sto.locationOf(e)
	if err != nil {
		return EntityInfo{}, err
	}
	arch := sto.archetypes.list[loc.archetype]
	return EntityInfo{
		Entity:     e,
		Archetype:  arch.index,
		Row:        int(loc.row),
		Components: iter_util.Collect(arch.Components()),
	}, nil
}
