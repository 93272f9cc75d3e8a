package attribution

// ModelKind is the closed set of binary classifier families the attribution
// engine can fit. A tagged set replaces open-ended model polymorphism: the
// engine dispatches on this value and needs no further extension point.
type ModelKind uint8

const (
	GBT ModelKind = iota
	Logistic
)

func (k ModelKind) String() string {
	if k == Logistic {
		return "logistic"
	}
	return "gbt"
}

// classifier is the minimal contract both model families satisfy: a
// probabilistic prediction and a per-feature importance score.
type classifier interface {
	// predictProba returns P(Team A wins | x).
	predictProba(x []float64) float64
	// importances returns a score per feature, same order as the dataset's
	// FeatureNames, normalized so GBT gains sum to 1 and logistic holds
	// absolute standardized coefficients.
	importances() []float64
}
