package team

import (
	"math/rand/v2"
	"testing"
)

func TestFullFeatureTableHasThirtyColumns(t *testing.T) {
	table := FullFeatureTable()
	if len(table) != 30 {
		t.Fatalf("len(FullFeatureTable()) = %d, want 30", len(table))
	}
	for i, f := range table[:15] {
		if !f.IsTeamA {
			t.Fatalf("table[%d] = %q, want IsTeamA", i, f.FullName)
		}
	}
	for i, f := range table[15:] {
		if f.IsTeamA {
			t.Fatalf("table[%d] = %q, want not IsTeamA", i, f.FullName)
		}
	}
}

func TestFeatureGetWithRoundTrip(t *testing.T) {
	for _, f := range Features() {
		if !f.Settable {
			continue
		}
		s := DefaultStats()
		updated := f.With(s, 0.42)
		if got := f.Get(updated); got != 0.42 {
			t.Fatalf("feature %q: Get(With(s, 0.42)) = %v, want 0.42", f.Name, got)
		}
	}
}

func TestPerturbStaysInRangeAndRenormalizes(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	s := DefaultStats()
	for i := 0; i < 100; i++ {
		s = s.Perturb(0.05, rng)
		for _, f := range Features() {
			v := f.Get(s)
			if v < f.Range[0]-1e-9 || v > f.Range[1]+1e-9 {
				t.Fatalf("feature %q = %v out of range %v", f.Name, v, f.Range)
			}
		}
		sum := s.ReceptionPerfect + s.ReceptionGood + s.ReceptionPoor + s.ReceptionError
		if sum < 0.999 || sum > 1.001 {
			t.Fatalf("reception sum after perturb = %v, want ~1", sum)
		}
	}
}
