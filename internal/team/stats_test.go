package team

import (
	"errors"
	"testing"

	"github.com/lox/rallysim/internal/rerr"
)

func TestDefaultStatsValidates(t *testing.T) {
	if err := DefaultStats().Validate(); err != nil {
		t.Fatalf("DefaultStats().Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	s := DefaultStats()
	s.Ace = 1.5
	err := s.Validate()
	if !errors.Is(err, rerr.ErrInvalidStats) {
		t.Fatalf("err = %v, want ErrInvalidStats", err)
	}
}

func TestValidateRejectsBadReceptionSum(t *testing.T) {
	s := DefaultStats()
	s.ReceptionPerfect = 0.9
	err := s.Validate()
	if !errors.Is(err, rerr.ErrInvalidStats) {
		t.Fatalf("err = %v, want ErrInvalidStats", err)
	}
}

func TestClampBoundsEveryField(t *testing.T) {
	s := Stats{Ace: 2, Error: -1, Kill: 1.2, AtkErr: -0.5}
	c := s.Clamp()
	if c.Ace != 1 || c.Error != 0 || c.Kill != 1 || c.AtkErr != 0 {
		t.Fatalf("Clamp() = %+v, want all fields in [0,1]", c)
	}
}

func TestRenormalizeReceptionSumsToOne(t *testing.T) {
	s := Stats{ReceptionPerfect: 0.6, ReceptionGood: 0.6, ReceptionPoor: 0.2, ReceptionError: 0.2}
	r := s.RenormalizeReception()
	sum := r.ReceptionPerfect + r.ReceptionGood + r.ReceptionPoor + r.ReceptionError
	if sum < 0.999 || sum > 1.001 {
		t.Fatalf("reception sum = %v, want ~1", sum)
	}
}

func TestInPlayAndHittingEfficiency(t *testing.T) {
	s := DefaultStats()
	if got, want := s.InPlay(), 1-s.Ace-s.Error; got != want {
		t.Fatalf("InPlay() = %v, want %v", got, want)
	}
	if got, want := s.HittingEfficiency(), s.Kill-s.AtkErr; got != want {
		t.Fatalf("HittingEfficiency() = %v, want %v", got, want)
	}
}
