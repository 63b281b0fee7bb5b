package depot

// ComponentRef identifies a registered component kind without carrying its
// static type. Component[T] is the usual implementation.
type ComponentRef interface {
	ComponentID() ComponentID
}

// Command represents a deferred structural edit applied at a flush point.
type Command interface {
	apply(sto *Storage) error
}

// System is executable logic scheduled against a Storage. Access must
// declare every component and resource kind the system touches; the
// scheduler relies on it to build conflict-free parallel batches, so an
// incomplete declaration is a programming error, not a detectable race.
type System interface {
	Name() string
	Access() AccessSet
	Run(ctx *SystemContext) error
}

// Cache is a bounded string-keyed registry with stable integer indices.
type Cache[T any] interface {
	GetIndex(string) (int, bool)
	GetItem(int) *T
	Register(string, T) (int, error)
	Clear()
}
