package idhash

import (
	"strings"
	"testing"
	"time"
)

func TestComputeHoldingID(t *testing.T) {
	got := ComputeHoldingID("ACC-001", "AAPL")
	if len(got) != 64 {
		t.Errorf("ComputeHoldingID() length = %d, want 64", len(got))
	}
	if got != ComputeHoldingID("ACC-001", "AAPL") {
		t.Error("ComputeHoldingID() not deterministic")
	}
	if got == ComputeHoldingID("ACC-001", "MSFT") {
		t.Error("Different symbol should produce different hash")
	}
	// Separator prevents ambiguous concatenation.
	if ComputeHoldingID("AB", "C") == ComputeHoldingID("A", "BC") {
		t.Error("Ambiguous concatenation should not collide")
	}
}

func TestComputeRingID_OrderIndependent(t *testing.T) {
	a := ComputeRingID("s1", []string{"A", "B", "C"})
	b := ComputeRingID("s1", []string{"C", "A", "B"})
	if a != b {
		t.Errorf("ring id depends on member order: %s != %s", a, b)
	}
	if !strings.HasPrefix(a, "RING-") || len(a) != 13 {
		t.Errorf("unexpected ring id format %q", a)
	}
	if a == ComputeRingID("s2", []string{"A", "B", "C"}) {
		t.Error("Different scenario should produce different ring id")
	}
}

func TestStream_Deterministic(t *testing.T) {
	s1 := NewStream(42, "legit|ACC-1")
	s2 := NewStream(42, "legit|ACC-1")
	s3 := NewStream(42, "legit|ACC-2")

	for i := 0; i < 20; i++ {
		a, b := s1.Uint64(), s2.Uint64()
		if a != b {
			t.Fatalf("draw %d differs: %d != %d", i, a, b)
		}
	}
	if NewStream(42, "legit|ACC-1").Uint64() == s3.Uint64() {
		t.Error("Different labels should produce different streams")
	}
}

func TestTradeIDs_SortWithTime(t *testing.T) {
	ids := NewTradeIDs(NewStream(7, "ids"))
	t0 := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	first := ids.Next(t0)
	same := ids.Next(t0)
	later := ids.Next(t0.Add(time.Second))

	if len(first) != 26 {
		t.Errorf("ULID length = %d, want 26", len(first))
	}
	if !(first < same) {
		t.Errorf("ids within one millisecond must increase: %s >= %s", first, same)
	}
	if !(same < later) {
		t.Errorf("later trade must sort after: %s >= %s", same, later)
	}

	again := NewTradeIDs(NewStream(7, "ids"))
	if again.Next(t0) != first {
		t.Error("same seed should reproduce ids")
	}
}

func TestScenarioIDs(t *testing.T) {
	r := NewStream(1, "scenario")
	id := NewScenarioID(r)
	if len(id) != 36 {
		t.Errorf("scenario id length = %d, want 36", len(id))
	}
	scheme := NewSchemeID(r)
	if !strings.HasPrefix(scheme, "SCHEME-") || len(scheme) != 15 {
		t.Errorf("unexpected scheme id %q", scheme)
	}
	if NewScenarioID(NewStream(1, "scenario")) != id {
		t.Error("scenario id should be reproducible from seed")
	}
}
