package cache

import (
	"testing"
	"time"
)

func TestAssemble(t *testing.T) {
	base := time.Date(2023, 8, 16, 0, 0, 0, 0, time.UTC)
	at := func(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

	in := []time.Time{at(60), at(0), at(45), at(15), at(30), at(30), at(120)}
	got := Assemble(in, at(0), at(60))

	want := []time.Time{at(15), at(30), at(30), at(45)}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}

	// Input untouched.
	if !in[0].Equal(at(60)) || len(in) != 7 {
		t.Errorf("input modified: %v", in)
	}
}

func TestAssembleEmpty(t *testing.T) {
	base := time.Date(2023, 8, 16, 0, 0, 0, 0, time.UTC)
	if got := Assemble(nil, base, base.Add(time.Hour)); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
	if got := Assemble([]time.Time{base}, base, base.Add(time.Hour)); len(got) != 0 {
		t.Errorf("start bound is exclusive, got %v", got)
	}
}

func TestDedup(t *testing.T) {
	base := time.Date(2023, 8, 16, 0, 0, 0, 0, time.UTC)
	in := []time.Time{base, base, base.Add(time.Minute), base.Add(time.Minute).In(time.FixedZone("X", 3600)), base.Add(2 * time.Minute)}
	got := Dedup(in)
	if len(got) != 3 {
		t.Errorf("Dedup len = %d, want 3: %v", len(got), got)
	}
}
