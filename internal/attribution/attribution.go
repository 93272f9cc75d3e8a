// Package attribution generates a perturbed labeled dataset from a pair of
// team stats, fits a binary classifier to it, and reports ranked feature
// importances, per-feature marginal impacts, and SHAP-style additive
// attributions.
package attribution

import (
	"fmt"

	"github.com/lox/rallysim/internal/randutil"
	"github.com/lox/rallysim/internal/rerr"
	"github.com/lox/rallysim/internal/team"
)

// Config tunes a single call to Attribute. Zero-value fields fall back to
// the spec's suggested defaults via the accessor methods below.
type Config struct {
	RDesignPoints     int
	MRalliesPerPoint  int
	Delta             float64
	Model             ModelKind
	HoldoutFraction   float64
	MasterSeed        int64
	FeatureShiftDelta float64
	CacheModels       bool
}

func (c Config) r() int {
	if c.RDesignPoints <= 0 {
		return defaultR
	}
	return c.RDesignPoints
}

func (c Config) m() int {
	if c.MRalliesPerPoint <= 0 {
		return defaultM
	}
	return c.MRalliesPerPoint
}

func (c Config) delta() float64 {
	if c.Delta <= 0 {
		return defaultDelta
	}
	return c.Delta
}

func (c Config) conditionalModel() team.ConditionalModel { return team.DefaultConditionalModel() }

func (c Config) holdoutFraction() float64 {
	if c.HoldoutFraction <= 0 {
		return 0.2
	}
	return c.HoldoutFraction
}

func (c Config) masterSeed() int64 { return c.MasterSeed }

func (c Config) shiftDelta() float64 {
	if c.FeatureShiftDelta <= 0 {
		return defaultShiftDelta
	}
	return c.FeatureShiftDelta
}

// degenerateImbalance is the minority-class fraction below which the
// engine refuses to fit a model and reports DegenerateOutcome instead.
const degenerateImbalance = 0.02

// ModelMetrics summarizes holdout performance.
type ModelMetrics struct {
	Accuracy float64
	AUC      float64
}

// AttributionReport is the full output of Attribute.
type AttributionReport struct {
	Importances   []FeatureImportance
	Shap          []ShapValue
	PerSampleShap []SampleShap
	ModelMetrics  ModelMetrics
	NSamples      int
	Degenerate    bool
}

// Attribute builds a perturbed dataset around (teamA, teamB), fits cfg.Model,
// and returns a ranked AttributionReport. If the dataset's outcome class is
// near-constant (imbalance worse than 0.98/0.02) it returns DegenerateOutcome
// with importances but no SHAP. If the classifier fails to produce finite
// output it returns ModelFitFailure.
func Attribute(teamA, teamB team.Stats, cfg Config) (AttributionReport, error) {
	if err := teamA.Validate(); err != nil {
		return AttributionReport{}, err
	}
	if err := teamB.Validate(); err != nil {
		return AttributionReport{}, err
	}

	if cfg.CacheModels {
		key := cacheKey(teamA, teamB, cfg)
		if cached, ok := globalCache.get(key); ok {
			return *cached, nil
		}
		report, err := attributeUncached(teamA, teamB, cfg)
		if err == nil {
			globalCache.put(key, &report)
		}
		return report, err
	}
	return attributeUncached(teamA, teamB, cfg)
}

func attributeUncached(teamA, teamB team.Stats, cfg Config) (AttributionReport, error) {
	ds, err := generateDataset(teamA, teamB, cfg)
	if err != nil {
		return AttributionReport{}, err
	}

	table := team.FullFeatureTable()

	if ds.imbalance() < degenerateImbalance {
		importances := degenerateImportances(table)
		return AttributionReport{
			Importances: importances,
			NSamples:    ds.Rows(),
			Degenerate:  true,
		}, fmt.Errorf("%w: outcome class imbalance below %.2f", rerr.ErrDegenerateOutcome, degenerateImbalance)
	}

	splitRNG := randutil.New(cfg.masterSeed() + 2)
	train, holdout := ds.split(cfg.holdoutFraction(), splitRNG)

	var model classifier
	switch cfg.Model {
	case Logistic:
		model, err = fitLogistic(train)
	default:
		model, err = fitGBT(train, holdout)
	}
	if err != nil {
		return AttributionReport{}, fmt.Errorf("%w: %v", rerr.ErrModelFitFailure, err)
	}

	predicted := make([]float64, holdout.Rows())
	for i, row := range holdout.X {
		p := model.predictProba(row)
		predicted[i] = 0
		if p >= 0.5 {
			predicted[i] = 1
		}
	}

	accuracy, err := holdoutAccuracy(ds.FeatureNames, holdout, predicted)
	if err != nil {
		return AttributionReport{}, fmt.Errorf("%w: %v", rerr.ErrModelFitFailure, err)
	}
	auc := computeAUC(model, holdout)

	importances := computeImportances(model, table, holdout, cfg.shiftDelta())
	globalShap, perSample := computeShap(model, ds.FeatureNames, holdout.X)

	return AttributionReport{
		Importances:   importances,
		Shap:          globalShap,
		PerSampleShap: perSample,
		ModelMetrics:  ModelMetrics{Accuracy: accuracy, AUC: auc},
		NSamples:      ds.Rows(),
	}, nil
}

// degenerateImportances reports the dataset's feature table with zeroed
// scores: the engine declined to fit a model, but the shape of the report
// (one row per feature) is preserved per the failure-semantics contract.
func degenerateImportances(table []team.TeamFeature) []FeatureImportance {
	out := make([]FeatureImportance, len(table))
	for i, f := range table {
		out[i] = FeatureImportance{Feature: f.FullName, Category: f.Category, Rank: uint16(i + 1)}
	}
	return out
}

// computeAUC ranks holdout predictions and computes the Mann-Whitney U
// statistic, equivalent to the area under the ROC curve. Hand-rolled: no
// library in the available stack exposes AUC directly, and the computation
// is a handful of lines once predictions are sorted.
func computeAUC(model classifier, holdout Dataset) float64 {
	type scored = struct {
		p float64
		y float64
	}
	rows := make([]scored, holdout.Rows())
	var nPos, nNeg float64
	for i, row := range holdout.X {
		rows[i] = scored{p: model.predictProba(row), y: holdout.Y[i]}
		if holdout.Y[i] == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5
	}
	sortScored(rows)

	var rankSum float64
	i := 0
	for i < len(rows) {
		j := i
		for j < len(rows) && rows[j].p == rows[i].p {
			j++
		}
		avgRank := float64(i+1+j) / 2
		for k := i; k < j; k++ {
			if rows[k].y == 1 {
				rankSum += avgRank
			}
		}
		i = j
	}
	u := rankSum - nPos*(nPos+1)/2
	return u / (nPos * nNeg)
}

func sortScored(rows []struct {
	p float64
	y float64
}) {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rows[j-1].p > rows[j].p; j-- {
			rows[j-1], rows[j] = rows[j], rows[j-1]
		}
	}
}

func errModelFitf(msg string) error {
	return fmt.Errorf("%w: %s", rerr.ErrModelFitFailure, msg)
}
