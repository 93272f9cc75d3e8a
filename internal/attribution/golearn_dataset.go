package attribution

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/sjwhitworth/golearn/base"
	"github.com/sjwhitworth/golearn/evaluation"
)

// toGoLearnGrid writes ds to a temporary CSV (features then a trailing class
// column) and loads it back as a golearn FixedDataGrid, the same round-trip
// the broader example pack uses to bridge a plain matrix into golearn.
func toGoLearnGrid(featureNames []string, X [][]float64, labels []float64) (base.FixedDataGrid, error) {
	tmp, err := os.CreateTemp("", "rallysim_attrib_*.csv")
	if err != nil {
		return nil, fmt.Errorf("creating golearn staging file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	w := csv.NewWriter(tmp)
	header := append(append([]string{}, featureNames...), "label")
	if err := w.Write(header); err != nil {
		tmp.Close()
		return nil, err
	}
	for i, row := range X {
		record := make([]string, 0, len(row)+1)
		for _, v := range row {
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		record = append(record, strconv.Itoa(int(labels[i])))
		if err := w.Write(record); err != nil {
			tmp.Close()
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	grid, err := base.ParseCSVToInstances(path, true)
	if err != nil {
		return nil, fmt.Errorf("parsing golearn staging csv: %w", err)
	}
	return grid, nil
}

// holdoutAccuracy builds two golearn grids sharing the holdout's features —
// one with the true labels, one with the model's predicted labels — and
// reports the confusion-matrix accuracy between them. This is the one place
// the GBT/logistic split-brain (hand-rolled training, golearn-backed
// scoring) meets: both model families' holdout accuracy goes through the
// same golearn evaluation path.
func holdoutAccuracy(featureNames []string, holdout Dataset, predicted []float64) (float64, error) {
	ref, err := toGoLearnGrid(featureNames, holdout.X, holdout.Y)
	if err != nil {
		return 0, err
	}
	gen, err := toGoLearnGrid(featureNames, holdout.X, predicted)
	if err != nil {
		return 0, err
	}
	confusion, err := evaluation.GetConfusionMatrix(ref, gen)
	if err != nil {
		return 0, fmt.Errorf("building golearn confusion matrix: %w", err)
	}
	return evaluation.GetAccuracy(confusion), nil
}
