package identity

import (
	"testing"

	"github.com/google/uuid"
)

func TestEntityUUIDIsStable(t *testing.T) {
	first := EntityUUID("article", "42")
	if first == uuid.Nil {
		t.Fatal("expected non-nil id")
	}
	if again := EntityUUID(" Article ", " 42 "); again != first {
		t.Fatalf("expected normalised inputs to map to %s, got %s", first, again)
	}
	if other := EntityUUID("page", "42"); other == first {
		t.Fatal("expected different types to produce different ids")
	}
	if other := EntityUUID("article", "43"); other == first {
		t.Fatal("expected different keys to produce different ids")
	}
}

func TestEntityUUIDRequiresInputs(t *testing.T) {
	if got := EntityUUID("", "42"); got != uuid.Nil {
		t.Fatalf("expected nil id without type, got %s", got)
	}
	if got := EntityUUID("article", "  "); got != uuid.Nil {
		t.Fatalf("expected nil id without key, got %s", got)
	}
	if got := UUID(""); got != uuid.Nil {
		t.Fatalf("expected nil id for empty key, got %s", got)
	}
}
