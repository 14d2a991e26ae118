package engine

import (
	"testing"

	"github.com/nathoo/responsecore/types"
)

func TestRNG_Deterministic(t *testing.T) {
	rng1 := NewRNG(42)
	rng2 := NewRNG(42)

	for i := 0; i < 20; i++ {
		a := rng1.RandomInt(1, 6)
		b := rng2.RandomInt(1, 6)
		if a != b {
			t.Fatalf("draw %d: got %d and %d from same seed", i, a, b)
		}
	}
}

func TestRNG_RandomInt_Range(t *testing.T) {
	rng := NewRNG(99)

	for i := 0; i < 1000; i++ {
		r := rng.RandomInt(1, 6)
		if r < 1 || r > 6 {
			t.Fatalf("draw out of range [1,6]: got %d", r)
		}
	}
}

func TestRNG_RandomInt_Degenerate(t *testing.T) {
	rng := NewRNG(1)

	for i := 0; i < 10; i++ {
		if r := rng.RandomInt(3, 3); r != 3 {
			t.Fatalf("[3,3] should always be 3, got %d", r)
		}
	}
	if rng.Position() != 10 {
		t.Errorf("degenerate draws must still advance, position = %d", rng.Position())
	}
}

func TestRNG_RandomFloat_Range(t *testing.T) {
	rng := NewRNG(7)

	for i := 0; i < 1000; i++ {
		f := rng.RandomFloat(2, 5)
		if f < 2 || f > 5 {
			t.Fatalf("draw out of range [2,5]: got %v", f)
		}
	}
}

func TestRNG_RandomInt_Distribution(t *testing.T) {
	rng := NewRNG(12345)
	counts := [3]int{}

	const trials = 9000
	for i := 0; i < trials; i++ {
		counts[rng.RandomInt(0, 2)]++
	}

	for i, c := range counts {
		if c < 2700 || c > 3300 {
			t.Errorf("value %d drawn %d times, want ~3000", i, c)
		}
	}
}

func TestRNG_Interval(t *testing.T) {
	rng := NewRNG(3)
	if got := rng.Interval(types.Interval{Min: 2, Max: 2}); got != 2 {
		t.Errorf("Interval(2,2) = %v", got)
	}
	for i := 0; i < 100; i++ {
		got := rng.Interval(types.Interval{Min: 1, Max: 1.5})
		if got < 1 || got > 1.5 {
			t.Fatalf("Interval(1,1.5) = %v", got)
		}
	}
}

func TestRNG_Position(t *testing.T) {
	rng := NewRNG(42)

	if rng.Position() != 0 {
		t.Fatalf("initial position = %d, want 0", rng.Position())
	}

	rng.RandomInt(0, 5)
	rng.RandomFloat(0, 1)
	rng.RandomInt(0, 5)

	if rng.Position() != 3 {
		t.Errorf("position after 3 calls = %d, want 3", rng.Position())
	}
	if rng.Seed() != 42 {
		t.Errorf("Seed() = %d, want 42", rng.Seed())
	}
}

func TestRestoreRNG(t *testing.T) {
	original := NewRNG(42)
	for i := 0; i < 10; i++ {
		original.RandomFloat(0, 10)
	}

	restored := RestoreRNG(42, original.Position())

	for i := 0; i < 20; i++ {
		a := original.RandomInt(0, 99)
		b := restored.RandomInt(0, 99)
		if a != b {
			t.Fatalf("after restore, draw %d: original=%d, restored=%d", i, a, b)
		}
	}
	if original.Position() != restored.Position() {
		t.Errorf("positions differ: %d vs %d", original.Position(), restored.Position())
	}
}
