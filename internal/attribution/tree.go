package attribution

import "math"

// treeNode is one node of a shallow CART-style regression tree, fit on
// residuals during boosting. Leaves hold a constant prediction; internal
// nodes split on a single feature threshold.
type treeNode struct {
	leaf      bool
	value     float64 // leaf prediction
	feature   int     // split feature index
	threshold float64
	left      *treeNode
	right     *treeNode
	gain      float64 // variance reduction this split contributed
}

func (n *treeNode) predict(x []float64) float64 {
	if n.leaf {
		return n.value
	}
	if x[n.feature] <= n.threshold {
		return n.left.predict(x)
	}
	return n.right.predict(x)
}

// addGain walks the tree accumulating each feature's total variance-reduction
// gain into acc, indexed by feature.
func (n *treeNode) addGain(acc []float64) {
	if n.leaf {
		return
	}
	acc[n.feature] += n.gain
	n.left.addGain(acc)
	n.right.addGain(acc)
}

// fitTree grows a regression tree of at most maxDepth greedily, splitting on
// whichever (feature, threshold) pair reduces squared error the most. minLeaf
// bounds how small a leaf may get, to keep splits from overfitting to single
// points at depth 4.
func fitTree(X [][]float64, residuals []float64, maxDepth, minLeaf int) *treeNode {
	idx := make([]int, len(residuals))
	for i := range idx {
		idx[i] = i
	}
	return growNode(X, residuals, idx, 0, maxDepth, minLeaf)
}

func growNode(X [][]float64, residuals []float64, idx []int, depth, maxDepth, minLeaf int) *treeNode {
	if depth >= maxDepth || len(idx) < 2*minLeaf {
		return &treeNode{leaf: true, value: mean(residuals, idx)}
	}

	bestFeature := -1
	var bestThreshold, bestGain float64
	parentSSE := sse(residuals, idx)
	nFeatures := len(X[idx[0]])

	for f := 0; f < nFeatures; f++ {
		thresholds := candidateThresholds(X, idx, f)
		for _, thr := range thresholds {
			var left, right []int
			for _, i := range idx {
				if X[i][f] <= thr {
					left = append(left, i)
				} else {
					right = append(right, i)
				}
			}
			if len(left) < minLeaf || len(right) < minLeaf {
				continue
			}
			gain := parentSSE - sse(residuals, left) - sse(residuals, right)
			if gain > bestGain {
				bestGain, bestFeature, bestThreshold = gain, f, thr
			}
		}
	}

	if bestFeature < 0 {
		return &treeNode{leaf: true, value: mean(residuals, idx)}
	}

	var left, right []int
	for _, i := range idx {
		if X[i][bestFeature] <= bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &treeNode{
		leaf:      false,
		value:     mean(residuals, idx), // the node's own prediction were the tree pruned here; used by SHAP
		feature:   bestFeature,
		threshold: bestThreshold,
		gain:      bestGain,
		left:      growNode(X, residuals, left, depth+1, maxDepth, minLeaf),
		right:     growNode(X, residuals, right, depth+1, maxDepth, minLeaf),
	}
}

// saabasContribution walks the decision path for x, attributing to each
// feature the change in the node's mean prediction caused by the split on
// that feature. This is the standard single-tree ("Saabas") approximation to
// Tree-SHAP: exact Tree-SHAP additionally reweights by off-path node
// coverage, which this implementation omits for simplicity. Contributions
// telescope exactly to leaf.value - root.value, so per-tree additivity
// (and therefore the ensemble's sum(shap)+base==predicted identity in log-odds
// space) still holds.
func (n *treeNode) saabasContribution(x []float64, contrib []float64) {
	node := n
	for !node.leaf {
		var next *treeNode
		if x[node.feature] <= node.threshold {
			next = node.left
		} else {
			next = node.right
		}
		contrib[node.feature] += next.value - node.value
		node = next
	}
}

// candidateThresholds samples a handful of split points for feature f from
// the observed values at idx, rather than trying every distinct value —
// adequate at R~=200-400 design points and keeps tree-fitting linear-ish.
func candidateThresholds(X [][]float64, idx []int, f int) []float64 {
	vals := make([]float64, len(idx))
	for i, row := range idx {
		vals[i] = X[row][f]
	}
	sortFloats(vals)
	const maxCandidates = 16
	if len(vals) <= 1 {
		return nil
	}
	step := len(vals) / maxCandidates
	if step < 1 {
		step = 1
	}
	seen := make(map[float64]bool)
	var out []float64
	for i := step; i < len(vals); i += step {
		v := (vals[i-1] + vals[i]) / 2
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func mean(v []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += v[i]
	}
	return sum / float64(len(idx))
}

func sse(v []float64, idx []int) float64 {
	m := mean(v, idx)
	var s float64
	for _, i := range idx {
		d := v[i] - m
		s += d * d
	}
	return s
}

func sortFloats(v []float64) {
	// insertion sort is fine here: candidateThresholds is called on at most a
	// few hundred values per (node, feature) pair.
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j-1] > v[j]; j-- {
			v[j-1], v[j] = v[j], v[j-1]
		}
	}
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// gbtModel is an additive logistic-loss boosting ensemble of shallow
// regression trees, the GBT family from the spec's model design.
type gbtModel struct {
	baseScore float64
	trees     []*treeNode
	lr        float64
	nFeatures int
}

const (
	gbtMaxDepth       = 4
	gbtMaxRounds      = 200
	gbtLearningRate   = 0.05
	gbtEarlyStopRound = 20
	gbtMinLeaf        = 5
)

// fitGBT trains the boosting ensemble on train, using holdout logloss for
// early stopping: if it hasn't improved in gbtEarlyStopRound rounds, training
// stops and the best-so-far ensemble (by holdout logloss) is returned.
func fitGBT(train, holdout Dataset) (*gbtModel, error) {
	n := train.Rows()
	if n == 0 {
		return nil, errModelFitf("no training rows")
	}
	meanY := mean(train.Y, allIdx(n))
	meanY = clampProb(meanY)
	baseScore := math.Log(meanY / (1 - meanY))

	m := &gbtModel{baseScore: baseScore, lr: gbtLearningRate, nFeatures: train.Cols()}

	trainScores := make([]float64, n)
	for i := range trainScores {
		trainScores[i] = baseScore
	}
	holdoutScores := make([]float64, holdout.Rows())
	for i := range holdoutScores {
		holdoutScores[i] = baseScore
	}

	bestLoss := math.Inf(1)
	var bestTrees []*treeNode
	bestBase := baseScore
	roundsSinceImprovement := 0

	for round := 0; round < gbtMaxRounds; round++ {
		residuals := make([]float64, n)
		for i := 0; i < n; i++ {
			residuals[i] = train.Y[i] - sigmoid(trainScores[i])
		}

		tree := fitTree(train.X, residuals, gbtMaxDepth, gbtMinLeaf)
		m.trees = append(m.trees, tree)

		for i := 0; i < n; i++ {
			trainScores[i] += m.lr * tree.predict(train.X[i])
		}
		for i := 0; i < holdout.Rows(); i++ {
			holdoutScores[i] += m.lr * tree.predict(holdout.X[i])
		}

		loss := logloss(holdout.Y, holdoutScores)
		if loss < bestLoss-1e-6 {
			bestLoss = loss
			bestTrees = append([]*treeNode{}, m.trees...)
			bestBase = m.baseScore
			roundsSinceImprovement = 0
		} else {
			roundsSinceImprovement++
			if roundsSinceImprovement >= gbtEarlyStopRound {
				break
			}
		}
	}

	if !isFinite(bestLoss) {
		return nil, errModelFitf("holdout logloss is non-finite")
	}
	if len(bestTrees) == 0 {
		bestTrees = m.trees
	}
	return &gbtModel{baseScore: bestBase, trees: bestTrees, lr: m.lr, nFeatures: m.nFeatures}, nil
}

func (g *gbtModel) predictScore(x []float64) float64 {
	score := g.baseScore
	for _, t := range g.trees {
		score += g.lr * t.predict(x)
	}
	return score
}

func (g *gbtModel) predictProba(x []float64) float64 { return sigmoid(g.predictScore(x)) }

func (g *gbtModel) importances() []float64 {
	acc := make([]float64, g.nFeatures)
	for _, t := range g.trees {
		t.addGain(acc)
	}
	var total float64
	for _, v := range acc {
		total += v
	}
	if total <= 0 {
		return acc
	}
	for i := range acc {
		acc[i] /= total
	}
	return acc
}

func logloss(y, scores []float64) float64 {
	var sum float64
	n := 0
	for i, s := range scores {
		p := clampProb(sigmoid(s))
		if y[i] == 1 {
			sum -= math.Log(p)
		} else {
			sum -= math.Log(1 - p)
		}
		n++
	}
	if n == 0 {
		return math.Inf(1)
	}
	return sum / float64(n)
}

func clampProb(p float64) float64 {
	const eps = 1e-9
	return math.Max(eps, math.Min(1-eps, p))
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func allIdx(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
