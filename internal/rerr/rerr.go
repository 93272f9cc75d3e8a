// Package rerr defines the sentinel error kinds shared across the simulator and
// attribution engine. Callers compare with errors.Is; the wrapped detail carries the
// offending feature name and value where applicable.
package rerr

import "errors"

var (
	// ErrInvalidStats is returned when a field is out of range, a distribution does not
	// sum to 1 within tolerance, or a conditional model is malformed. Fatal to the call.
	ErrInvalidStats = errors.New("invalid stats")

	// ErrBudgetExceeded is returned when a rally exceeds its step fuel. Fatal to the
	// rally; the driver aborts the whole batch and surfaces it.
	ErrBudgetExceeded = errors.New("rally exceeded step fuel")

	// ErrCancelled is returned on cooperative cancellation or deadline. The result
	// carries the number of rallies completed; no aggregated probability is reported.
	ErrCancelled = errors.New("simulation cancelled")

	// ErrModelFitFailure is returned when classifier training produces non-finite
	// values or fails to converge. Fatal to Attribute.
	ErrModelFitFailure = errors.New("model fit failure")

	// ErrDegenerateOutcome is returned when the outcome class is near-constant.
	// Attribute still returns a partial report (importances only, no SHAP).
	ErrDegenerateOutcome = errors.New("degenerate outcome")

	// ErrInternal marks a bug-class invariant violation. Must be reproducible from seed.
	ErrInternal = errors.New("internal error")
)
