package server

import (
	"fmt"
	"testing"
)

func TestTrailEmptyForUnknownID(t *testing.T) {
	h := NewHistoryStore()

	trail := h.Trail("nope")
	if trail == nil {
		t.Fatal("Trail should return an empty slice, not nil")
	}
	if len(trail) != 0 {
		t.Errorf("Trail length = %d, want 0", len(trail))
	}
}

func TestAppendLazyCreation(t *testing.T) {
	h := NewHistoryStore()

	// appending for an id nobody registered must work
	h.Append("orphan", &Sample{Latitude: 1, Longitude: 2, Timestamp: "t"})

	if got := len(h.Trail("orphan")); got != 1 {
		t.Errorf("Trail length = %d, want 1", got)
	}
}

func TestTrailBounded(t *testing.T) {
	h := NewHistoryStore()

	for i := 0; i <= MaxTrail; i++ {
		h.Append("abc123", &Sample{Latitude: float64(i), Timestamp: fmt.Sprintf("t%d", i)})
	}

	trail := h.Trail("abc123")
	if len(trail) != MaxTrail {
		t.Fatalf("trail length = %d, want %d", len(trail), MaxTrail)
	}

	// first appended sample evicted, the rest kept in arrival order
	if trail[0].Latitude != 1 {
		t.Errorf("oldest surviving sample = %v, want 1", trail[0].Latitude)
	}
	if trail[len(trail)-1].Latitude != float64(MaxTrail) {
		t.Errorf("newest sample = %v, want %d", trail[len(trail)-1].Latitude, MaxTrail)
	}
	for i := 1; i < len(trail); i++ {
		if trail[i].Latitude != trail[i-1].Latitude+1 {
			t.Fatalf("trail out of arrival order at %d", i)
		}
	}
}

func TestTrailsIndependent(t *testing.T) {
	h := NewHistoryStore()

	h.Append("a", &Sample{Latitude: 1, Timestamp: "t"})
	h.Append("b", &Sample{Latitude: 2, Timestamp: "t"})

	if got := len(h.Trail("a")); got != 1 {
		t.Errorf("trail a length = %d, want 1", got)
	}
	if got := len(h.Trail("b")); got != 1 {
		t.Errorf("trail b length = %d, want 1", got)
	}
}

func TestTrailReturnsCopy(t *testing.T) {
	h := NewHistoryStore()
	h.Append("a", &Sample{Latitude: 1, Timestamp: "t"})

	trail := h.Trail("a")
	trail[0] = &Sample{Latitude: 99, Timestamp: "x"}

	if h.Trail("a")[0].Latitude != 1 {
		t.Error("mutating a returned trail changed the store")
	}
}
