package depot

import (
	"reflect"

	"github.com/rotisserie/eris"
)

// CommandBuffer queues structural edits for deferred application. Systems
// record into buffers while iteration holds the storage locked; the
// scheduler merges and flushes them at the pass boundary. Buffers preserve
// FIFO order and are not safe for concurrent use; give each goroutine its
// own.
type CommandBuffer struct {
	queue []Command
}

func newCommandBuffer() *CommandBuffer { return &CommandBuffer{} }

// Push appends a prebuilt command.
func (cb *CommandBuffer) Push(cmd Command) {
	cb.queue = append(cb.queue, cmd)
}

// Len returns the number of pending commands.
func (cb *CommandBuffer) Len() int { return len(cb.queue) }

// Snapshot marks the current queue position for a later Restore.
func (cb *CommandBuffer) Snapshot() int { return len(cb.queue) }

// Restore discards every command recorded after the snapshot mark. The
// scheduler uses it to drop the recordings of a system that failed.
func (cb *CommandBuffer) Restore(mark int) {
	if mark >= 0 && mark <= len(cb.queue) {
		cb.queue = cb.queue[:mark]
	}
}

// Spawn queues creation of an entity carrying the given component values.
func (cb *CommandBuffer) Spawn(values ...any) {
	cb.Push(spawnCommand{values: values})
}

// Despawn queues destruction of the entity. Applies as a no-op when the
// handle has gone stale by flush time.
func (cb *CommandBuffer) Despawn(e Entity) {
	cb.Push(despawnCommand{entity: e})
}

// Add queues attaching value to the entity. Stale handles and kinds the
// entity already carries by flush time apply as no-ops.
func (cb *CommandBuffer) Add(e Entity, value any) {
	cb.Push(addCommand{entity: e, value: value})
}

// Remove queues detaching the kind from the entity. Stale handles and
// absent kinds apply as no-ops.
func (cb *CommandBuffer) Remove(e Entity, ref ComponentRef) {
	cb.Push(removeCommand{entity: e, id: ref.ComponentID()})
}

// InsertResource queues storing value as the singleton for its kind.
func (cb *CommandBuffer) InsertResource(value any) {
	cb.Push(insertResourceCommand{value: value})
}

// RemoveResource queues deleting the singleton for the kind.
func (cb *CommandBuffer) RemoveResource(key ResourceKey) {
	cb.Push(removeResourceCommand{key: key})
}

// merge appends other's pending commands and empties it.
func (cb *CommandBuffer) merge(other *CommandBuffer) {
	cb.queue = append(cb.queue, other.queue...)
	other.queue = nil
}

// staleTarget reports errors that mean the command's target moved on
// between recording and flush. These are expected and swallowed: deferred
// edits race with each other by design and the queue order decides.
func staleTarget(err error) bool {
	return eris.Is(err, ErrInvalidEntity) ||
		eris.Is(err, ErrDuplicateComponent) ||
		eris.Is(err, ErrMissingComponent)
}

// Flush applies every pending command against the storage in FIFO order,
// draining to a fixed point so commands enqueued by commands (through the
// storage's own buffer) apply in the same flush. Refuses to run while the
// storage is locked for iteration.
func (cb *CommandBuffer) Flush(sto *Storage) error {
	if sto.Locked() {
		return ErrStorageLocked
	}
	for len(cb.queue) > 0 {
		batch := cb.queue
		cb.queue = nil
		for i, cmd := range batch {
			if err := cmd.apply(sto); err != nil {
				if staleTarget(err) {
					sto.log.Debug().Err(err).Msg("skipped stale command")
					continue
				}
				// Keep everything not yet applied (the failed command is
				// dropped) so an unrelated failure doesn't discard the queue.
				rest := append([]Command(nil), batch[i+1:]...)
				cb.queue = append(rest, cb.queue...)
				return err
			}
		}
	}
	return nil
}

type spawnCommand struct {
	values []any
}

func (c spawnCommand) apply(sto *Storage) error {
	_, err := sto.NewEntity(c.values...)
	return err
}

type despawnCommand struct {
	entity Entity
}

func (c despawnCommand) apply(sto *Storage) error {
	return sto.DestroyEntity(c.entity)
}

type addCommand struct {
	entity Entity
	value  any
}

func (c addCommand) apply(sto *Storage) error {
	id, err := registerComponentType(reflect.TypeOf(c.value))
	if err != nil {
		return err
	}
	return sto.addComponentID(c.entity, id, ifaceDataPtr(c.value))
}

type removeCommand struct {
	entity Entity
	id     ComponentID
}

func (c removeCommand) apply(sto *Storage) error {
	return sto.removeComponentID(c.entity, c.id)
}

type insertResourceCommand struct {
	value any
}

func (c insertResourceCommand) apply(sto *Storage) error {
	sto.insertResourceAny(c.value)
	return nil
}

type removeResourceCommand struct {
	key ResourceKey
}

func (c removeResourceCommand) apply(sto *Storage) error {
	sto.removeResourceKey(c.key)
	return nil
}
