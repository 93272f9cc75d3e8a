package attribution

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// logisticModel is an L2-regularized logistic regression: standardized
// features, coefficients fit by IRLS (Newton's method on the weighted least
// squares normal equations). No intercept term is fit: the perturbed design
// is centered on each team's own rates, so the decision boundary is expected
// to pass near the origin in standardized-feature space. Revisit if this
// model is ever pointed at a design that isn't centered this way.
type logisticModel struct {
	coef   []float64 // length nFeatures, in standardized-feature space
	mean   []float64
	stdDev []float64
	lambda float64
}

const (
	irlsMaxIters = 50
	irlsTol      = 1e-7
)

// lambdaGrid is the geometric grid 5-fold CV selects from.
func lambdaGrid() []float64 {
	return []float64{0.001, 0.01, 0.1, 1, 10}
}

// fitLogistic standardizes train's features, selects lambda by 5-fold CV on
// train over lambdaGrid, then refits on the full training set at the chosen
// lambda.
func fitLogistic(train Dataset) (*logisticModel, error) {
	n, p := train.Rows(), train.Cols()
	if n == 0 {
		return nil, errModelFitf("no training rows")
	}

	means := make([]float64, p)
	stds := make([]float64, p)
	for j := 0; j < p; j++ {
		col := make([]float64, n)
		for i := 0; i < n; i++ {
			col[i] = train.X[i][j]
		}
		means[j] = stat.Mean(col, nil)
		stds[j] = stat.StdDev(col, nil)
		if stds[j] < 1e-9 {
			stds[j] = 1
		}
	}

	standardize := func(ds Dataset) [][]float64 {
		out := make([][]float64, ds.Rows())
		for i, row := range ds.X {
			sr := make([]float64, p)
			for j := 0; j < p; j++ {
				sr[j] = (row[j] - means[j]) / stds[j]
			}
			out[i] = sr
		}
		return out
	}

	Xs := standardize(train)

	bestLambda := lambdaGrid()[0]
	bestLoss := math.Inf(1)
	folds := makeFolds(n, 5)
	for _, lambda := range lambdaGrid() {
		var total float64
		for k := 0; k < len(folds); k++ {
			trainIdx, testIdx := foldSplit(folds, k)
			coef, err := irls(subsetRows(Xs, trainIdx), subsetVals(train.Y, trainIdx), lambda)
			if err != nil {
				total = math.Inf(1)
				break
			}
			scores := make([]float64, len(testIdx))
			ys := make([]float64, len(testIdx))
			for i, idx := range testIdx {
				scores[i] = dot(coef, Xs[idx])
				ys[i] = train.Y[idx]
			}
			total += logloss(ys, scores)
		}
		if total < bestLoss {
			bestLoss = total
			bestLambda = lambda
		}
	}

	coef, err := irls(Xs, train.Y, bestLambda)
	if err != nil {
		return nil, err
	}
	if !allFinite(coef) {
		return nil, errModelFitf("logistic coefficients are non-finite")
	}

	return &logisticModel{coef: coef, mean: means, stdDev: stds, lambda: bestLambda}, nil
}

// irls fits an L2-regularized logistic regression by iteratively reweighted
// least squares, solving the Newton step's normal equations with gonum/mat.
func irls(X [][]float64, y []float64, lambda float64) ([]float64, error) {
	n := len(X)
	if n == 0 {
		return nil, errModelFitf("empty fold")
	}
	p := len(X[0])
	beta := make([]float64, p)

	Xmat := mat.NewDense(n, p, nil)
	for i, row := range X {
		Xmat.SetRow(i, row)
	}

	for iter := 0; iter < irlsMaxIters; iter++ {
		eta := make([]float64, n)
		w := make([]float64, n)
		z := make([]float64, n)
		for i := 0; i < n; i++ {
			s := dot(beta, X[i])
			mu := clampProb(sigmoid(s))
			eta[i] = s
			wi := mu * (1 - mu)
			if wi < 1e-6 {
				wi = 1e-6
			}
			w[i] = wi
			z[i] = eta[i] + (y[i]-mu)/wi
		}

		// Solve (X'WX + lambda*I) beta = X'Wz
		xtW := weightedTranspose(Xmat, w) // p x n

		var xtwx mat.Dense
		xtwx.Mul(xtW, Xmat)
		for d := 0; d < p; d++ {
			xtwx.Set(d, d, xtwx.At(d, d)+lambda)
		}

		zVec := mat.NewVecDense(n, z)
		var xtwz mat.VecDense
		xtwz.MulVec(xtW, zVec)

		var newBeta mat.VecDense
		if err := newBeta.SolveVec(&xtwx, &xtwz); err != nil {
			return nil, errModelFitf("IRLS normal equations are singular: " + err.Error())
		}

		maxDelta := 0.0
		for d := 0; d < p; d++ {
			delta := math.Abs(newBeta.AtVec(d) - beta[d])
			if delta > maxDelta {
				maxDelta = delta
			}
			beta[d] = newBeta.AtVec(d)
		}
		if maxDelta < irlsTol {
			break
		}
	}
	return beta, nil
}

// weightedTranspose returns X' diag(w) as a p x n matrix, without
// materializing the n x n diagonal weight matrix.
func weightedTranspose(X *mat.Dense, w []float64) mat.Matrix {
	n, p := X.Dims()
	weighted := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < p; j++ {
			weighted.Set(i, j, X.At(i, j)*w[i])
		}
	}
	return weighted.T()
}

func (g *logisticModel) predictProba(xRaw []float64) float64 {
	return sigmoid(g.linearPredictor(xRaw))
}

// linearPredictor returns the fitted linear predictor dot(coef, standardized
// x), the logistic family's link-space score (no separate intercept term is
// fit, so this is the whole score).
func (g *logisticModel) linearPredictor(xRaw []float64) float64 {
	x := make([]float64, len(xRaw))
	for j, v := range xRaw {
		x[j] = (v - g.mean[j]) / g.stdDev[j]
	}
	return dot(g.coef, x)
}

// importances reports |standardized coefficient|, the textbook logistic
// feature-importance proxy once features are on a common scale.
func (g *logisticModel) importances() []float64 {
	out := make([]float64, len(g.coef))
	for i, c := range g.coef {
		out[i] = math.Abs(c)
	}
	return out
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if !isFinite(x) {
			return false
		}
	}
	return true
}

func subsetRows(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func subsetVals(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}

// makeFolds assigns each row index to one of k folds round-robin.
func makeFolds(n, k int) [][]int {
	folds := make([][]int, k)
	for i := 0; i < n; i++ {
		f := i % k
		folds[f] = append(folds[f], i)
	}
	return folds
}

func foldSplit(folds [][]int, k int) (train, test []int) {
	test = folds[k]
	for i, f := range folds {
		if i != k {
			train = append(train, f...)
		}
	}
	return train, test
}
