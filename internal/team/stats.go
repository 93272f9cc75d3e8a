// Package team holds the immutable per-team rate profiles the simulator is built on,
// the conditional probability tables that connect one rally action to the next, and the
// explicit feature table used by perturbation and attribution instead of reflection.
package team

import (
	"fmt"
	"math"

	"github.com/lox/rallysim/internal/rerr"
)

const sumTolerance = 0.005

// Stats is an immutable record of a team's rates, all fractions in [0,1].
// Constructed once per simulation request and never mutated afterward.
type Stats struct {
	// Serve
	Ace   float64
	Error float64

	// Reception distribution; must sum to 1 within sumTolerance.
	ReceptionPerfect float64
	ReceptionGood    float64
	ReceptionPoor    float64
	ReceptionError   float64

	// Setting
	BallHandlingError float64

	// Attack
	Kill    float64
	AtkErr  float64

	// Defense
	Dig            float64
	BlockKill      float64
	ControlledBlock float64
	BlockError     float64
}

// InPlay returns the fraction of serves that land in play (neither ace nor error).
func (s Stats) InPlay() float64 {
	return 1 - s.Ace - s.Error
}

// HittingEfficiency is derived, never re-read from input: kill minus error.
func (s Stats) HittingEfficiency() float64 {
	return s.Kill - s.AtkErr
}

// Validate checks every range and sum invariant from the data model. It returns
// rerr.ErrInvalidStats wrapped with the offending field and value when a check fails.
func (s Stats) Validate() error {
	checks := []struct {
		name string
		val  float64
	}{
		{"ace", s.Ace}, {"error", s.Error},
		{"reception_perfect", s.ReceptionPerfect}, {"reception_good", s.ReceptionGood},
		{"reception_poor", s.ReceptionPoor}, {"reception_error", s.ReceptionError},
		{"ball_handling_error", s.BallHandlingError},
		{"kill", s.Kill}, {"atk_err", s.AtkErr},
		{"dig", s.Dig}, {"block_kill", s.BlockKill},
		{"controlled_block", s.ControlledBlock}, {"block_error", s.BlockError},
	}
	for _, c := range checks {
		if c.val < 0 || c.val > 1 {
			return fmt.Errorf("%w: field %q = %v out of range [0,1]", rerr.ErrInvalidStats, c.name, c.val)
		}
	}

	if s.Ace+s.Error > 1+1e-9 {
		return fmt.Errorf("%w: serve ace+error = %v exceeds 1", rerr.ErrInvalidStats, s.Ace+s.Error)
	}

	receptionSum := s.ReceptionPerfect + s.ReceptionGood + s.ReceptionPoor + s.ReceptionError
	if math.Abs(receptionSum-1) > sumTolerance {
		return fmt.Errorf("%w: reception distribution sums to %v, want 1±%v", rerr.ErrInvalidStats, receptionSum, sumTolerance)
	}

	if s.Kill+s.AtkErr > 1+1e-9 {
		return fmt.Errorf("%w: attack kill+error = %v exceeds 1", rerr.ErrInvalidStats, s.Kill+s.AtkErr)
	}

	return nil
}

// Clamp returns a copy of s with every field clamped into [0,1]. Used after
// perturbation, before the reception/serve rows are re-normalized.
func (s Stats) Clamp() Stats {
	c := s
	clamp := func(v float64) float64 { return math.Max(0, math.Min(1, v)) }
	c.Ace = clamp(c.Ace)
	c.Error = clamp(c.Error)
	c.ReceptionPerfect = clamp(c.ReceptionPerfect)
	c.ReceptionGood = clamp(c.ReceptionGood)
	c.ReceptionPoor = clamp(c.ReceptionPoor)
	c.ReceptionError = clamp(c.ReceptionError)
	c.BallHandlingError = clamp(c.BallHandlingError)
	c.Kill = clamp(c.Kill)
	c.AtkErr = clamp(c.AtkErr)
	c.Dig = clamp(c.Dig)
	c.BlockKill = clamp(c.BlockKill)
	c.ControlledBlock = clamp(c.ControlledBlock)
	c.BlockError = clamp(c.BlockError)
	return c
}

// RenormalizeReception rescales the reception row so it sums to exactly 1,
// preserving relative proportions. Used after an additive perturbation.
func (s Stats) RenormalizeReception() Stats {
	c := s
	sum := c.ReceptionPerfect + c.ReceptionGood + c.ReceptionPoor + c.ReceptionError
	if sum <= 0 {
		return c
	}
	c.ReceptionPerfect /= sum
	c.ReceptionGood /= sum
	c.ReceptionPoor /= sum
	c.ReceptionError /= sum
	return c
}

// DefaultStats returns the equal-teams baseline used throughout the end-to-end
// scenarios: ace=0.10, err=0.05, reception=(0.30,0.50,0.15,0.05), bhe=0.02,
// kill=0.45, atk_err=0.10, dig=0.60, block_kill=0.15, ctrl_block=0.25, block_err=0.05.
func DefaultStats() Stats {
	return Stats{
		Ace:   0.10,
		Error: 0.05,

		ReceptionPerfect: 0.30,
		ReceptionGood:    0.50,
		ReceptionPoor:    0.15,
		ReceptionError:   0.05,

		BallHandlingError: 0.02,

		Kill:   0.45,
		AtkErr: 0.10,

		Dig:             0.60,
		BlockKill:       0.15,
		ControlledBlock: 0.25,
		BlockError:      0.05,
	}
}
