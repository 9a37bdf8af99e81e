package note

import (
	"math"
	"testing"
)

func TestFrequencyIncreasesWithIndex(t *testing.T) {
	prev := 0.0
	for n := Note(0); n < Count; n++ {
		f := n.Frequency()
		if f <= prev {
			t.Fatalf("%v frequency %f not above previous %f", n, f, prev)
		}
		prev = f
	}
}

func TestReferencePitches(t *testing.T) {
	if got := A4.Frequency(); got != 440 {
		t.Fatalf("A4 = %f, want 440", got)
	}
	if got := A4.Offset(); got != 0 {
		t.Fatalf("A4 offset = %d, want 0", got)
	}
	if got := C4.Offset(); got != -9 {
		t.Fatalf("C4 offset = %d, want -9", got)
	}
	if got := C4.Frequency(); math.Abs(got-261.6256) > 1e-3 {
		t.Fatalf("C4 = %f, want ~261.6256", got)
	}
}

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Note
	}{
		{"C4", C4},
		{"c#4", CSharp4},
		{" B4 ", B4},
		{"9", A4},
	} {
		got, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"", "H4", "12", "-1"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) should fail", bad)
		}
	}
}

func TestSetOperations(t *testing.T) {
	var s Set
	s = s.With(C4).With(E4).With(G4)
	if s.Len() != 3 || !s.Has(E4) || s.Has(D4) {
		t.Fatalf("unexpected set %v", s)
	}
	// Adding an existing member is a no-op.
	if s.With(E4) != s {
		t.Fatal("With should be idempotent")
	}
	s = s.Without(E4).Without(E4)
	if s.Has(E4) || s.Len() != 2 {
		t.Fatalf("unexpected set after Without: %v", s)
	}
	if got := s.String(); got != "{C4 G4}" {
		t.Fatalf("String() = %q", got)
	}
	if All.Len() != Count {
		t.Fatalf("All has %d members", All.Len())
	}
}

func TestSharedDropsOutOfRangeBits(t *testing.T) {
	var sh Shared
	if !sh.Snapshot().Empty() {
		t.Fatal("zero Shared should be empty")
	}
	sh.Store(Set(0xFFFF))
	if got := sh.Snapshot(); got != All {
		t.Fatalf("Snapshot() = %b, want %b", got, All)
	}
	sh.Store(A4.Bit())
	if got := sh.Snapshot(); got != A4.Bit() {
		t.Fatalf("Snapshot() = %v, want {A4}", got)
	}
}
