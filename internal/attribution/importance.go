package attribution

import (
	"sort"

	"github.com/lox/rallysim/internal/team"
)

// FeatureImportance is one ranked row of the attribution report.
type FeatureImportance struct {
	Feature                string
	Score                  float64 // normalized gain (GBT) or |standardized coef| (logistic)
	MarginalImpactAbs      float64
	MarginalImpactRelative float64
	Rank                   uint16
	Category               team.FeatureCategory
}

// computeImportances ranks features by the model's native importance score,
// then attaches each feature's marginal impact: the change in mean predicted
// P(A wins) over the holdout set when that one feature is shifted by
// shiftDelta (clamped to its valid range), holding every other feature at
// its observed value.
func computeImportances(model classifier, table []team.TeamFeature, holdout Dataset, shiftDelta float64) []FeatureImportance {
	scores := model.importances()
	baseMean := meanPredicted(model, holdout.X)

	out := make([]FeatureImportance, len(table))
	for j, f := range table {
		shifted := shiftFeature(holdout.X, j, shiftDelta, f.Range)
		shiftedMean := meanPredicted(model, shifted)
		impact := shiftedMean - baseMean
		rel := 0.0
		if baseMean != 0 {
			rel = impact / baseMean
		}
		out[j] = FeatureImportance{
			Feature:                f.FullName,
			Score:                  scores[j],
			MarginalImpactAbs:      impact,
			MarginalImpactRelative: rel,
			Category:               f.Category,
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Feature < out[j].Feature
	})
	for i := range out {
		out[i].Rank = uint16(i + 1)
	}
	return out
}

func meanPredicted(model classifier, X [][]float64) float64 {
	if len(X) == 0 {
		return 0
	}
	var sum float64
	for _, row := range X {
		sum += model.predictProba(row)
	}
	return sum / float64(len(X))
}

// shiftFeature returns a copy of X with column j shifted by delta and
// clamped to rng, leaving every other column untouched.
func shiftFeature(X [][]float64, j int, delta float64, rng [2]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		nr := append([]float64{}, row...)
		v := nr[j] + delta
		if v < rng[0] {
			v = rng[0]
		}
		if v > rng[1] {
			v = rng[1]
		}
		nr[j] = v
		out[i] = nr
	}
	return out
}
