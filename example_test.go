package depot_test

import (
	"context"
	"fmt"

	"github.com/TheBitDrifter/depot"
)

// Position is a simple component for 2D coordinates
type Position struct {
	X float64
	Y float64
}

// Velocity is a simple component for 2D movement
type Velocity struct {
	X float64
	Y float64
}

// Frozen marks entities that should not move
type Frozen struct{}

// Example shows basic depot usage with entity creation and queries
func Example_basic() {
	storage := depot.Factory.NewStorage()

	position, _ := depot.FactoryNewComponent[Position]()
	velocity, _ := depot.FactoryNewComponent[Velocity]()
	frozen, _ := depot.FactoryNewComponent[Frozen]()

	storage.NewEntity(Position{X: 10, Y: 20}, Velocity{X: 1, Y: 2})
	storage.NewEntity(Position{}, Velocity{X: 5, Y: 5}, Frozen{})
	storage.NewEntity(Position{X: 3, Y: 3})

	// Move everything with a velocity, unless frozen.
	plan, _ := depot.Factory.NewQuery().
		Write(position).
		Read(velocity).
		Without(frozen).
		Build()

	cursor := depot.Factory.NewCursor(plan, storage)
	for cursor.Next() {
		pos := position.MutFromCursor(cursor)
		vel := velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
		fmt.Printf("moved to (%.0f, %.0f)\n", pos.X, pos.Y)
	}

	// Output:
	// moved to (11, 22)
}

// movementSystem advances positions by their velocity each pass.
type movementSystem struct {
	position depot.Component[Position]
	velocity depot.Component[Velocity]
	plan     *depot.QueryPlan
}

func (s *movementSystem) Name() string            { return "movement" }
func (s *movementSystem) Access() depot.AccessSet { return s.plan.Access() }

func (s *movementSystem) Run(ctx *depot.SystemContext) error {
	cursor := ctx.Cursor(s.plan)
	for cursor.Next() {
		pos := s.position.MutFromCursor(cursor)
		vel := s.velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}
	return nil
}

// Example_scheduler runs a system over several passes.
func Example_scheduler() {
	storage := depot.Factory.NewStorage()

	position, _ := depot.FactoryNewComponent[Position]()
	velocity, _ := depot.FactoryNewComponent[Velocity]()

	e, _ := storage.NewEntity(Position{}, Velocity{X: 1, Y: 1})

	plan, _ := depot.Factory.NewQuery().Write(position).Read(velocity).Build()
	sched := depot.Factory.NewScheduler(storage)
	defer sched.Close()
	sched.Register(&movementSystem{position: position, velocity: velocity, plan: plan}, depot.StageUpdate)

	for i := 0; i < 4; i++ {
		if err := sched.RunSchedule(context.Background()); err != nil {
			fmt.Println("schedule failed:", err)
			return
		}
	}

	pos, _ := depot.GetComponent[Position](storage, e)
	fmt.Printf("final position (%.0f, %.0f)\n", pos.X, pos.Y)

	// Output:
	// final position (4, 4)
}
