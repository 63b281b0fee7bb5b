package depot

import (
	"fmt"

	"github.com/rotisserie/eris"
)

var (
	// ErrInvalidEntity indicates a stale or unknown entity handle.
	ErrInvalidEntity = eris.New("depot: invalid entity")
	// ErrMissingComponent indicates a fetch or removal of a component kind
	// the entity does not have.
	ErrMissingComponent = eris.New("depot: component not on entity")
	// ErrDuplicateComponent indicates an add of a component kind the entity
	// already has.
	ErrDuplicateComponent = eris.New("depot: component already on entity")
	// ErrConflictingAccess indicates aliased mutable access to one component
	// kind within a single query or system declaration.
	ErrConflictingAccess = eris.New("depot: conflicting component access")
	// ErrRegistryOverflow indicates the component identifier space is
	// exhausted.
	ErrRegistryOverflow = eris.New("depot: component registry overflow")
	// ErrStorageLocked indicates a direct structural mutation was attempted
	// while query iteration holds the storage locked. Queue the mutation on
	// a CommandBuffer instead.
	ErrStorageLocked = eris.New("depot: storage is locked for iteration")
)

// ComponentAccessError reports which kind a query declared conflicting
// access to.
type ComponentAccessError struct {
	Component ComponentID
}

func (e ComponentAccessError) Error() string {
	return fmt.Sprintf("conflicting access to component %s", e.Component)
}

func (e ComponentAccessError) Unwrap() error { return ErrConflictingAccess }
