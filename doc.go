/*
Package depot provides the runtime core of an Entity-Component-System (ECS)
for games and simulations.

Depot stores component data in archetype-grouped columns so that entities
sharing the same component set sit next to each other in memory. On top of
the columnar store it layers a query engine with filter predicates, per-row
change tracking, a deferred command buffer for structural edits queued
during iteration, and a scheduler that runs systems in parallel batches
derived from their declared access sets.

Core Concepts:

  - Entity: a generational identifier representing a game object.
  - Component: a plain-data value attached to entities, stored columnar.
  - Archetype: the columnar table for one exact component set.
  - Query: a filtered view over entities with specific component sets.
  - Command: a structural edit deferred until the next flush point.
  - System: a unit of logic with a declared read/write access set.

Basic Usage:

	// Create storage
	storage := depot.Factory.NewStorage()

	// Define components
	position, _ := depot.FactoryNewComponent[Position]()
	velocity, _ := depot.FactoryNewComponent[Velocity]()

	// Create entities
	storage.NewEntity(Position{}, Velocity{X: 1, Y: 1})

	// Query entities and process them
	plan, _ := depot.Factory.NewQuery().Read(velocity).Write(position).Build()
	cursor := depot.Factory.NewCursor(plan, storage)

	for cursor.Next() {
		pos := position.MutFromCursor(cursor)
		vel := velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}

Component values are copied into untyped byte columns; they should be plain
data (no pointers, maps, or slices), since the columns are opaque to the
garbage collector.
*/
package depot
