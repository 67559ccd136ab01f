package tatty

import (
	"testing"

	"github.com/google/uuid"
)

func TestNewIDIsUUIDv7(t *testing.T) {
	id := NewID()
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("parse %q: %v", id, err)
	}
	if parsed.Version() != 7 {
		t.Errorf("version = %d, want 7", parsed.Version())
	}
}

func TestNewIDTimeOrdered(t *testing.T) {
	a := NewID()
	b := NewID()
	if a == b {
		t.Fatal("duplicate ids")
	}
	if a > b {
		t.Errorf("ids not time-ordered: %s > %s", a, b)
	}
}
