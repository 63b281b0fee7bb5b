package depot

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/rotisserie/eris"
)

// ComponentID identifies a registered component kind.
type ComponentID uint32

// MaxComponentTypes bounds the component identifier space. It matches the
// width of the archetype masks, so a kind beyond it cannot be tracked.
const MaxComponentTypes = 256

// The registry is process-global: a component kind keeps the same
// identifier for the lifetime of the process no matter how many Storages
// exist. Only registration takes the lock; lookups after registration read
// the fixed arrays directly.
var registry = struct {
	mu    sync.Mutex
	ids   map[reflect.Type]ComponentID
	next  ComponentID
	sizes [MaxComponentTypes]uintptr
	names [MaxComponentTypes]string
	types [MaxComponentTypes]reflect.Type
}{ids: make(map[reflect.Type]ComponentID, 64)}

// String renders the registered type name for the identifier.
func (id ComponentID) String() string {
	if int(id) < MaxComponentTypes && registry.names[id] != "" {
		return registry.names[id]
	}
	return fmt.Sprintf("ComponentID(%d)", uint32(id))
}

// ComponentID lets a bare identifier satisfy ComponentRef.
func (id ComponentID) ComponentID() ComponentID { return id }

func registerComponentType(t reflect.Type) (ComponentID, error) {
	if t == nil {
		return 0, eris.New("depot: cannot register nil component type")
	}
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if id, ok := registry.ids[t]; ok {
		return id, nil
	}
	if int(registry.next) >= MaxComponentTypes {
		return 0, eris.Wrapf(ErrRegistryOverflow, "registering %s", t)
	}
	id := registry.next
	registry.ids[t] = id
	registry.sizes[id] = t.Size()
	registry.names[id] = t.String()
	registry.types[id] = t
	registry.next++
	return id, nil
}

func componentSize(id ComponentID) uintptr { return registry.sizes[id] }

// FactoryNewComponent registers the shape T and returns its typed accessor.
// Registration is idempotent per shape; it fails only once the identifier
// space is exhausted.
func FactoryNewComponent[T any]() (Component[T], error) {
	var zero T
	id, err := registerComponentType(reflect.TypeOf(zero))
	if err != nil {
		return Component[T]{}, err
	}
	return Component[T]{id: id}, nil
}
