package depot

import "reflect"

// resourceMap holds storage-global singletons keyed by their Go type. Each
// value is boxed behind a pointer so GetResource hands out stable mutable
// references.
type resourceMap struct {
	items map[reflect.Type]any
}

func newResourceMap() resourceMap {
	return resourceMap{items: make(map[reflect.Type]any)}
}

// ResourceKey identifies a resource kind without carrying its static type,
// for access declarations and deferred removals.
type ResourceKey struct {
	t reflect.Type
}

func (k ResourceKey) String() string {
	if k.t == nil {
		return "ResourceKey(nil)"
	}
	return k.t.String()
}

// ResourceKeyFor returns the key for resource kind T.
func ResourceKeyFor[T any]() ResourceKey {
	var zero T
	return ResourceKey{t: reflect.TypeOf(zero)}
}

// InsertResource stores value as the singleton for kind T, returning the
// previous value when one was replaced.
func InsertResource[T any](sto *Storage, value T) (prev T, replaced bool) {
	t := reflect.TypeOf(value)
	if existing, ok := sto.resources.items[t]; ok {
		box := existing.(*T)
		prev, *box = *box, value
		return prev, true
	}
	box := new(T)
	*box = value
	sto.resources.items[t] = box
	return prev, false
}

// GetResource returns a mutable reference to the singleton for kind T. The
// reference stays valid until the resource is removed.
func GetResource[T any](sto *Storage) (*T, bool) {
	var zero T
	existing, ok := sto.resources.items[reflect.TypeOf(zero)]
	if !ok {
		return nil, false
	}
	return existing.(*T), true
}

// RemoveResource deletes the singleton for kind T, returning the removed
// value.
func RemoveResource[T any](sto *Storage) (T, bool) {
	var zero T
	t := reflect.TypeOf(zero)
	existing, ok := sto.resources.items[t]
	if !ok {
		return zero, false
	}
	delete(sto.resources.items, t)
	return *existing.(*T), true
}

// insertResourceAny is the untyped insert used at the command-buffer
// boundary, where values arrive boxed. It rebuilds the pointer box through
// reflection since the static type is gone.
func (sto *Storage) insertResourceAny(value any) {
	t := reflect.TypeOf(value)
	if existing, ok := sto.resources.items[t]; ok {
		reflect.ValueOf(existing).Elem().Set(reflect.ValueOf(value))
		return
	}
	box := reflect.New(t)
	box.Elem().Set(reflect.ValueOf(value))
	sto.resources.items[t] = box.Interface()
}

func (sto *Storage) removeResourceKey(key ResourceKey) bool {
	if _, ok := sto.resources.items[key.t]; !ok {
		return false
	}
	delete(sto.resources.items, key.t)
	return true
}
