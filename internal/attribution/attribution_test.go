package attribution

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/rallysim/internal/rerr"
	"github.com/lox/rallysim/internal/team"
)

func TestAttributeShape(t *testing.T) {
	for _, seed := range []int64{1, 2, 3, 4, 5} {
		stats := team.DefaultStats()
		report, err := Attribute(stats, stats, Config{
			RDesignPoints: 300,
			Delta:         0.05,
			MasterSeed:    seed,
		})
		require.NoError(t, err)

		assert.GreaterOrEqual(t, len(report.Importances), 20)

		top5 := map[string]bool{}
		for i := 0; i < 5 && i < len(report.Importances); i++ {
			top5[report.Importances[i].Feature] = true
		}
		candidates := []string{"a_ace", "a_kill", "a_perfect", "a_dig", "b_ace", "b_kill", "b_perfect", "b_dig"}
		hits := 0
		for _, c := range candidates {
			if top5[c] {
				hits++
			}
		}
		assert.GreaterOrEqual(t, hits, 1, "seed %d: top-5 importances should include at least one high-leverage feature", seed)

		// sample.Predicted comes from the model's own link-space score
		// (linkScore), independent of BaseValue/Contributions, so this
		// checks real SHAP additivity rather than a self-referential sum.
		for _, sample := range report.PerSampleShap {
			var sum float64
			for _, c := range sample.Contributions {
				sum += c.Value
			}
			assert.InDelta(t, sample.Predicted, sample.BaseValue+sum, 1e-4)
		}
	}
}

func TestAttributeDegenerateOutcome(t *testing.T) {
	dominant := team.DefaultStats()
	dominant.Ace = 0.99
	dominant.Error = 0
	dominant.ReceptionPerfect = 0.01
	dominant.ReceptionGood = 0.79

	weak := team.DefaultStats()
	weak.Kill = 0.01
	weak.AtkErr = 0.5

	report, err := Attribute(dominant, weak, Config{
		RDesignPoints: 50,
		MasterSeed:    7,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, rerr.ErrDegenerateOutcome))
	assert.True(t, report.Degenerate)
	assert.NotEmpty(t, report.Importances)
}

func TestAttributeLogisticModel(t *testing.T) {
	stats := team.DefaultStats()
	report, err := Attribute(stats, stats, Config{
		RDesignPoints: 150,
		MasterSeed:    11,
		Model:         Logistic,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.ModelMetrics.Accuracy, 0.0)
	assert.LessOrEqual(t, report.ModelMetrics.Accuracy, 1.0)
	assert.False(t, math.IsNaN(report.ModelMetrics.AUC))
}

func TestAttributeCaching(t *testing.T) {
	stats := team.DefaultStats()
	cfg := Config{RDesignPoints: 60, MasterSeed: 99, CacheModels: true}

	first, err := Attribute(stats, stats, cfg)
	require.NoError(t, err)
	second, err := Attribute(stats, stats, cfg)
	require.NoError(t, err)

	assert.Equal(t, first.NSamples, second.NSamples)
	assert.Equal(t, first.Importances[0].Feature, second.Importances[0].Feature)
}
