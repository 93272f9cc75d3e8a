package attribution

import (
	"github.com/lox/rallysim/internal/kernel"
	"github.com/lox/rallysim/internal/rally"
	"github.com/lox/rallysim/internal/randutil"
	"github.com/lox/rallysim/internal/team"
)

// defaultR, defaultM, defaultDelta, defaultShiftDelta mirror the spec's
// suggested defaults for the perturbation sampling scheme.
const (
	defaultR          = 300
	defaultM          = 1
	defaultDelta      = 0.05
	defaultShiftDelta = 0.05
)

// generateDataset builds the labeled design-point dataset: R perturbed
// parameter vectors around (baseA, baseB), each simulated M times through the
// rally state machine with a fixed server, one row per rally. A single
// master seed deterministically drives both the perturbations and the rally
// sampling, so the whole dataset is reproducible.
func generateDataset(baseA, baseB team.Stats, cfg Config) (Dataset, error) {
	table := team.FullFeatureTable()
	names := make([]string, len(table))
	for i, f := range table {
		names[i] = f.FullName
	}

	r := cfg.r()
	m := cfg.m()
	delta := cfg.delta()
	model := cfg.conditionalModel()
	params := kernel.DefaultParams()

	ds := Dataset{FeatureNames: names, X: make([][]float64, 0, r*m), Y: make([]float64, 0, r*m)}

	for point := 0; point < r; point++ {
		pointRNG := randutil.New(cfg.masterSeed() + int64(point)*2654435761)
		a := baseA.Perturb(delta, pointRNG)
		b := baseB.Perturb(delta, pointRNG)

		row := make([]float64, len(table))
		for i, f := range table {
			if f.IsTeamA {
				row[i] = f.Get(a)
			} else {
				row[i] = f.Get(b)
			}
		}

		rallyRNG := randutil.New(cfg.masterSeed() + int64(point)*2654435761 + 1)
		for i := 0; i < m; i++ {
			out, err := rally.Run(rallyRNG, team.TeamA, a, b, model, params, rally.Options{})
			if err != nil {
				return Dataset{}, err
			}
			y := 0.0
			if out.Winner == team.TeamA {
				y = 1.0
			}
			ds.X = append(ds.X, row)
			ds.Y = append(ds.Y, y)
		}
	}

	return ds, nil
}
