package team

import "testing"

func TestIDOther(t *testing.T) {
	if TeamA.Other() != TeamB {
		t.Fatalf("TeamA.Other() = %v, want TeamB", TeamA.Other())
	}
	if TeamB.Other() != TeamA {
		t.Fatalf("TeamB.Other() = %v, want TeamA", TeamB.Other())
	}
}

func TestIDString(t *testing.T) {
	if TeamA.String() != "A" || TeamB.String() != "B" {
		t.Fatalf("String() = %q/%q, want A/B", TeamA.String(), TeamB.String())
	}
}
