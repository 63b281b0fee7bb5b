package depot

import "testing"

type frameTime struct {
	Delta float64
}

type score struct {
	Points int
}

func TestResourceLifecycle(t *testing.T) {
	storage := Factory.NewStorage()

	if _, ok := GetResource[frameTime](storage); ok {
		t.Error("GetResource on empty storage reported a value")
	}

	_, replaced := InsertResource(storage, frameTime{Delta: 0.016})
	if replaced {
		t.Error("First insert reported a replacement")
	}

	res, ok := GetResource[frameTime](storage)
	if !ok || res.Delta != 0.016 {
		t.Fatalf("GetResource() = (%+v, %v), want ({0.016}, true)", res, ok)
	}

	// The reference is live: writes through it are visible to later gets.
	res.Delta = 0.033
	again, _ := GetResource[frameTime](storage)
	if again.Delta != 0.033 {
		t.Errorf("Mutation through the reference lost: Delta = %v", again.Delta)
	}

	prev, replaced := InsertResource(storage, frameTime{Delta: 1})
	if !replaced || prev.Delta != 0.033 {
		t.Errorf("Replace returned (%+v, %v), want ({0.033}, true)", prev, replaced)
	}

	removed, ok := RemoveResource[frameTime](storage)
	if !ok || removed.Delta != 1 {
		t.Errorf("RemoveResource() = (%+v, %v), want ({1}, true)", removed, ok)
	}
	if _, ok := RemoveResource[frameTime](storage); ok {
		t.Error("Second removal reported a value")
	}
}

func TestResourcesAreKeyedByType(t *testing.T) {
	storage := Factory.NewStorage()

	InsertResource(storage, frameTime{Delta: 1})
	InsertResource(storage, score{Points: 7})

	ft, ok := GetResource[frameTime](storage)
	if !ok || ft.Delta != 1 {
		t.Errorf("frameTime = (%+v, %v)", ft, ok)
	}
	sc, ok := GetResource[score](storage)
	if !ok || sc.Points != 7 {
		t.Errorf("score = (%+v, %v)", sc, ok)
	}

	RemoveResource[frameTime](storage)
	if _, ok := GetResource[score](storage); !ok {
		t.Error("Removing one kind disturbed another")
	}
}

func TestResourceKeyFor(t *testing.T) {
	a := ResourceKeyFor[frameTime]()
	b := ResourceKeyFor[frameTime]()
	c := ResourceKeyFor[score]()

	if a != b {
		t.Error("Keys for the same kind differ")
	}
	if a == c {
		t.Error("Keys for different kinds collide")
	}
	if a.String() == "" {
		t.Error("Key renders empty")
	}
}
