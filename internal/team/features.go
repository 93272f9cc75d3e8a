package team

import "math/rand/v2"

// FeatureCategory groups a feature by the phase of play it describes.
type FeatureCategory uint8

const (
	CategoryServe FeatureCategory = iota
	CategoryReception
	CategorySetting
	CategoryAttack
	CategoryDefense
)

func (c FeatureCategory) String() string {
	switch c {
	case CategoryServe:
		return "serve"
	case CategoryReception:
		return "reception"
	case CategorySetting:
		return "setting"
	case CategoryAttack:
		return "attack"
	case CategoryDefense:
		return "defense"
	default:
		return "unknown"
	}
}

// Feature is one column of the perturbation/attribution feature table: a name, an
// accessor, a category and a valid range. Settable features are independent inputs
// that perturbation may vary directly; non-settable features are derived (e.g.
// hitting efficiency) and only ever read, never perturbed directly, per spec.
type Feature struct {
	Name     string
	Category FeatureCategory
	Settable bool
	Range    [2]float64
	Get      func(Stats) float64
	With     func(Stats, float64) Stats // no-op for non-settable features
}

func noopSet(s Stats, _ float64) Stats { return s }

// Features is the ordered, explicit feature list for a single team's stats.
// Perturbation, feature importance, and SHAP all iterate this table; there is no
// string-keyed reflection anywhere in the hot path.
func Features() []Feature {
	return []Feature{
		{Name: "ace", Category: CategoryServe, Settable: true, Range: [2]float64{0, 1},
			Get: func(s Stats) float64 { return s.Ace },
			With: func(s Stats, v float64) Stats { s.Ace = v; return s }},
		{Name: "error", Category: CategoryServe, Settable: true, Range: [2]float64{0, 1},
			Get: func(s Stats) float64 { return s.Error },
			With: func(s Stats, v float64) Stats { s.Error = v; return s }},
		{Name: "in_play", Category: CategoryServe, Settable: false, Range: [2]float64{0, 1},
			Get: func(s Stats) float64 { return s.InPlay() }, With: noopSet},

		{Name: "perfect", Category: CategoryReception, Settable: true, Range: [2]float64{0, 1},
			Get: func(s Stats) float64 { return s.ReceptionPerfect },
			With: func(s Stats, v float64) Stats { s.ReceptionPerfect = v; return s }},
		{Name: "good", Category: CategoryReception, Settable: true, Range: [2]float64{0, 1},
			Get: func(s Stats) float64 { return s.ReceptionGood },
			With: func(s Stats, v float64) Stats { s.ReceptionGood = v; return s }},
		{Name: "poor", Category: CategoryReception, Settable: true, Range: [2]float64{0, 1},
			Get: func(s Stats) float64 { return s.ReceptionPoor },
			With: func(s Stats, v float64) Stats { s.ReceptionPoor = v; return s }},
		{Name: "reception_error", Category: CategoryReception, Settable: true, Range: [2]float64{0, 1},
			Get: func(s Stats) float64 { return s.ReceptionError },
			With: func(s Stats, v float64) Stats { s.ReceptionError = v; return s }},

		{Name: "ball_handling_error", Category: CategorySetting, Settable: true, Range: [2]float64{0, 1},
			Get: func(s Stats) float64 { return s.BallHandlingError },
			With: func(s Stats, v float64) Stats { s.BallHandlingError = v; return s }},

		{Name: "kill", Category: CategoryAttack, Settable: true, Range: [2]float64{0, 1},
			Get: func(s Stats) float64 { return s.Kill },
			With: func(s Stats, v float64) Stats { s.Kill = v; return s }},
		{Name: "atk_err", Category: CategoryAttack, Settable: true, Range: [2]float64{0, 1},
			Get: func(s Stats) float64 { return s.AtkErr },
			With: func(s Stats, v float64) Stats { s.AtkErr = v; return s }},
		{Name: "hitting_efficiency", Category: CategoryAttack, Settable: false, Range: [2]float64{-1, 1},
			Get: func(s Stats) float64 { return s.HittingEfficiency() }, With: noopSet},

		{Name: "dig", Category: CategoryDefense, Settable: true, Range: [2]float64{0, 1},
			Get: func(s Stats) float64 { return s.Dig },
			With: func(s Stats, v float64) Stats { s.Dig = v; return s }},
		{Name: "block_kill", Category: CategoryDefense, Settable: true, Range: [2]float64{0, 1},
			Get: func(s Stats) float64 { return s.BlockKill },
			With: func(s Stats, v float64) Stats { s.BlockKill = v; return s }},
		{Name: "controlled_block", Category: CategoryDefense, Settable: true, Range: [2]float64{0, 1},
			Get: func(s Stats) float64 { return s.ControlledBlock },
			With: func(s Stats, v float64) Stats { s.ControlledBlock = v; return s }},
		{Name: "block_error", Category: CategoryDefense, Settable: true, Range: [2]float64{0, 1},
			Get: func(s Stats) float64 { return s.BlockError },
			With: func(s Stats, v float64) Stats { s.BlockError = v; return s }},
	}
}

// TeamFeature is one column of the full a_/b_ prefixed feature table.
type TeamFeature struct {
	Feature
	FullName string // "a_ace", "b_kill", ...
	IsTeamA  bool
}

// FullFeatureTable returns the ordered a_*/b_* feature table used by the
// perturbation generator and the attribution engine.
func FullFeatureTable() []TeamFeature {
	base := Features()
	out := make([]TeamFeature, 0, len(base)*2)
	for _, f := range base {
		out = append(out, TeamFeature{Feature: f, FullName: "a_" + f.Name, IsTeamA: true})
	}
	for _, f := range base {
		out = append(out, TeamFeature{Feature: f, FullName: "b_" + f.Name, IsTeamA: false})
	}
	return out
}

// Perturb returns a copy of s with every settable feature nudged by
// independent uniform noise in [-delta, delta], clamped into range, with
// the reception row renormalized back to 1, and with ace and error scaled
// down proportionally whenever their sum exceeds 1. Used by the attribution
// engine's design-point sampling; never called on the hot rally-stepping path.
func (s Stats) Perturb(delta float64, rng *rand.Rand) Stats {
	out := s
	for _, f := range Features() {
		if !f.Settable {
			continue
		}
		noise := (rng.Float64()*2 - 1) * delta
		out = f.With(out, f.Get(out)+noise)
	}
	out = out.Clamp().RenormalizeReception()
	if sum := out.Ace + out.Error; sum > 1 {
		out.Ace /= sum
		out.Error /= sum
	}
	return out
}
