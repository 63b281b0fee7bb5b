package depot

import "testing"

// Test component types
type Position struct {
	X, Y float64
}

type Velocity struct {
	X, Y float64
}

type Health struct {
	Current, Max int
}

// Tagged is a zero-size marker component
type Tagged struct{}

func TestEntityCreation(t *testing.T) {
	posComp, _ := FactoryNewComponent[Position]()
	velComp, _ := FactoryNewComponent[Velocity]()
	healthComp, _ := FactoryNewComponent[Health]()

	tests := []struct {
		name        string
		components  []ComponentRef
		entityCount int
	}{
		{"Empty entity", []ComponentRef{}, 1},
		{"Single component", []ComponentRef{posComp}, 10},
		{"Multiple components", []ComponentRef{posComp, velComp}, 5},
		{"Large batch", []ComponentRef{posComp, velComp, healthComp}, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := Factory.NewStorage()

			entities, err := storage.NewEntities(tt.entityCount, tt.components...)
			if err != nil {
				t.Fatalf("NewEntities() error = %v", err)
			}
			if len(entities) != tt.entityCount {
				t.Errorf("Created %d entities, want %d", len(entities), tt.entityCount)
			}
			for i, entity := range entities {
				if !storage.Alive(entity) {
					t.Errorf("Entity %d is not alive after creation", i)
				}
			}
			if storage.EntityCount() != tt.entityCount {
				t.Errorf("EntityCount() = %d, want %d", storage.EntityCount(), tt.entityCount)
			}
		})
	}
}

func TestEntityHandleStaleness(t *testing.T) {
	storage := Factory.NewStorage()

	e, err := storage.NewEntity(Position{X: 1})
	if err != nil {
		t.Fatalf("NewEntity() error = %v", err)
	}
	if err := storage.DestroyEntity(e); err != nil {
		t.Fatalf("DestroyEntity() error = %v", err)
	}

	if storage.Alive(e) {
		t.Error("Destroyed entity still reports alive")
	}
	if err := storage.DestroyEntity(e); err == nil {
		t.Error("Destroying a stale handle should fail")
	}
	if _, err := GetComponent[Position](storage, e); err == nil {
		t.Error("GetComponent on a stale handle should fail")
	}

	// Index reuse must come with a fresh generation.
	e2, err := storage.NewEntity(Position{X: 2})
	if err != nil {
		t.Fatalf("NewEntity() error = %v", err)
	}
	if e2.ID() != e.ID() {
		t.Fatalf("Expected index reuse, got %d and %d", e.ID(), e2.ID())
	}
	if e2.Generation() == e.Generation() {
		t.Error("Recycled index kept its old generation")
	}
	if storage.Alive(e) {
		t.Error("Old handle validates against recycled index")
	}
	if !storage.Alive(e2) {
		t.Error("New handle does not validate")
	}
}

func TestZeroEntityNeverValid(t *testing.T) {
	storage := Factory.NewStorage()

	if storage.Alive(Entity{}) {
		t.Error("Zero entity reports alive")
	}
	e, _ := storage.NewEntity()
	if e.IsZero() {
		t.Error("Allocator issued the zero entity")
	}
}

func TestEntityAllocatorRecycling(t *testing.T) {
	storage := Factory.NewStorage()

	entities, err := storage.NewEntities(100)
	if err != nil {
		t.Fatalf("NewEntities() error = %v", err)
	}
	for _, e := range entities {
		if err := storage.DestroyEntity(e); err != nil {
			t.Fatalf("DestroyEntity() error = %v", err)
		}
	}
	if storage.EntityCount() != 0 {
		t.Fatalf("EntityCount() = %d after destroying everything", storage.EntityCount())
	}

	recycled, err := storage.NewEntities(100)
	if err != nil {
		t.Fatalf("NewEntities() error = %v", err)
	}
	seen := make(map[uint32]bool, len(recycled))
	for _, e := range recycled {
		if seen[e.ID()] {
			t.Fatalf("Index %d issued twice in one batch", e.ID())
		}
		seen[e.ID()] = true
		if e.ID() > 100 {
			t.Errorf("Index %d allocated fresh instead of recycled", e.ID())
		}
	}
}
