package ids

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDAllocatorUnique(t *testing.T) {
	var a Allocator = UUID{}
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := a.NewID()
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("expected valid uuid got %q: %v", id, err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestSequence(t *testing.T) {
	var a Allocator = Sequence("q")
	for _, want := range []string{"q1", "q2", "q3"} {
		if got := a.NewID(); got != want {
			t.Fatalf("expected %s got %s", want, got)
		}
	}
}
