package attribution

import (
	"math/rand/v2"
	"sort"
)

// Dataset is the labeled table the perturbation generator produces: one row
// per simulated rally, X holding the design point's feature values and Y
// marking a Team A win (1) or loss (0). X is row-major but not contiguous:
// it holds one slice per row, and the M rows of one design point share the
// same slice.
type Dataset struct {
	X            [][]float64
	Y            []float64
	FeatureNames []string
}

func (d Dataset) Rows() int { return len(d.Y) }
func (d Dataset) Cols() int { return len(d.FeatureNames) }

// imbalance returns the fraction of the minority class.
func (d Dataset) imbalance() float64 {
	if len(d.Y) == 0 {
		return 0
	}
	ones := 0
	for _, y := range d.Y {
		if y == 1 {
			ones++
		}
	}
	frac := float64(ones) / float64(len(d.Y))
	if frac > 0.5 {
		return 1 - frac
	}
	return frac
}

// split performs a deterministic stratified 80/20 (or holdoutFraction) train/
// holdout split: rows are shuffled within each class separately using rng, so
// the holdout set's class balance matches the full dataset's.
func (d Dataset) split(holdoutFraction float64, rng *rand.Rand) (train, holdout Dataset) {
	var idx0, idx1 []int
	for i, y := range d.Y {
		if y == 1 {
			idx1 = append(idx1, i)
		} else {
			idx0 = append(idx0, i)
		}
	}
	rng.Shuffle(len(idx0), func(i, j int) { idx0[i], idx0[j] = idx0[j], idx0[i] })
	rng.Shuffle(len(idx1), func(i, j int) { idx1[i], idx1[j] = idx1[j], idx1[i] })

	hold0 := int(float64(len(idx0)) * holdoutFraction)
	hold1 := int(float64(len(idx1)) * holdoutFraction)

	var trainIdx, holdoutIdx []int
	holdoutIdx = append(holdoutIdx, idx0[:hold0]...)
	holdoutIdx = append(holdoutIdx, idx1[:hold1]...)
	trainIdx = append(trainIdx, idx0[hold0:]...)
	trainIdx = append(trainIdx, idx1[hold1:]...)
	sort.Ints(trainIdx)
	sort.Ints(holdoutIdx)

	return d.subset(trainIdx), d.subset(holdoutIdx)
}

func (d Dataset) subset(idx []int) Dataset {
	out := Dataset{FeatureNames: d.FeatureNames, X: make([][]float64, len(idx)), Y: make([]float64, len(idx))}
	for i, j := range idx {
		out.X[i] = d.X[j]
		out.Y[i] = d.Y[j]
	}
	return out
}
