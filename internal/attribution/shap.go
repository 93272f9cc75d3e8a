package attribution

import "sort"

// ShapValue is one feature's additive contribution to a single prediction,
// in the model's natural link space (log-odds for GBT, linear predictor for
// logistic) so that base_value + sum(values) reproduces the linear-predictor
// prediction exactly.
type ShapValue struct {
	Feature string
	Value   float64
}

// SampleShap holds one reference sample's per-feature contributions plus the
// base value and the model's actual link-space prediction; BaseValue plus
// the sum of Contributions reproduces Predicted (within float tolerance).
type SampleShap struct {
	Contributions []ShapValue
	BaseValue     float64
	Predicted     float64 // the model's own link-space score for this row
}

// maxShapSamples bounds how many holdout rows carry per-sample SHAP detail.
const maxShapSamples = 200

// computeShap returns the mean |contribution| per feature (global
// importance) and up to maxShapSamples per-sample decompositions.
func computeShap(model classifier, featureNames []string, X [][]float64) (global []ShapValue, perSample []SampleShap) {
	n := len(X)
	limit := n
	if limit > maxShapSamples {
		limit = maxShapSamples
	}

	sums := make([]float64, len(featureNames))
	perSample = make([]SampleShap, 0, limit)

	for i := 0; i < limit; i++ {
		contrib, base := shapOne(model, X[i])
		values := make([]ShapValue, len(featureNames))
		for j, name := range featureNames {
			values[j] = ShapValue{Feature: name, Value: contrib[j]}
			sums[j] += absf(contrib[j])
		}
		perSample = append(perSample, SampleShap{
			Contributions: values,
			BaseValue:     base,
			Predicted:     linkScore(model, X[i]),
		})
	}

	global = make([]ShapValue, len(featureNames))
	for j, name := range featureNames {
		mean := 0.0
		if limit > 0 {
			mean = sums[j] / float64(limit)
		}
		global[j] = ShapValue{Feature: name, Value: mean}
	}
	sort.SliceStable(global, func(i, j int) bool {
		if global[i].Value != global[j].Value {
			return global[i].Value > global[j].Value
		}
		return global[i].Feature < global[j].Feature
	})
	return global, perSample
}

// shapOne dispatches to the tree or closed-form logistic SHAP depending on
// the concrete model type, returning per-feature contributions and the base
// value, both in link space, such that base+sum(contrib) == linkScore(model, x).
func shapOne(model classifier, x []float64) (contrib []float64, base float64) {
	switch m := model.(type) {
	case *gbtModel:
		contrib = make([]float64, m.nFeatures)
		var rootSum float64
		for _, t := range m.trees {
			treeContrib := make([]float64, m.nFeatures)
			t.saabasContribution(x, treeContrib)
			for j := range contrib {
				contrib[j] += m.lr * treeContrib[j]
			}
			// saabasContribution telescopes to lr*(leaf.value-root.value) per
			// tree; folding lr*root.value into the base keeps additivity
			// exact against the model's actual predictScore, which includes
			// every tree's root prediction regardless of depth reached.
			rootSum += t.value
		}
		return contrib, m.baseScore + m.lr*rootSum
	case *logisticModel:
		contrib = make([]float64, len(m.coef))
		base = 0 // the logistic link has no separate additive intercept term
		for j, c := range m.coef {
			xs := (x[j] - m.mean[j]) / m.stdDev[j]
			contrib[j] = c * xs
		}
		return contrib, base
	default:
		return make([]float64, 0), 0
	}
}

// linkScore returns the model's own link-space prediction for x: log-odds
// for GBT, linear predictor for logistic. This is what Predicted is checked
// against, independent of how the SHAP contributions above were derived.
func linkScore(model classifier, x []float64) float64 {
	switch m := model.(type) {
	case *gbtModel:
		return m.predictScore(x)
	case *logisticModel:
		return m.linearPredictor(x)
	default:
		return 0
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
