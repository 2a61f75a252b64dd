package measurement

import (
	"errors"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/mmgsem/syntax"
)

var (
	// ErrDimensionMismatch indicates group data that does not fit the model
	// (wrong number of indicators, malformed loadings, ...).
	ErrDimensionMismatch = errors.New("measurement: dimension mismatch")

	// ErrNoGroups is returned when no group data is supplied.
	ErrNoGroups = errors.New("measurement: no groups")

	// ErrTooFewObservations is returned for groups with N < 2.
	ErrTooFewObservations = errors.New("measurement: group needs at least two observations")

	// ErrNonConvergence flags a step-1 fit that hit MaxIterations. The fit is
	// still returned, with Converged=false.
	ErrNonConvergence = errors.New("measurement: iteration limit reached before convergence")
)

// GroupData is the sufficient-statistic summary of one group.
type GroupData struct {
	ID    string
	N     int
	Means []float64
	Cov   *mat.SymDense // maximum-likelihood covariance (divisor N)
}

// GroupFit holds the group-specific step-1 estimates.
type GroupFit struct {
	ID         string
	N          int
	Intercepts []float64
	Theta      []float64     // unique variances (diagonal of Θ_g)
	Phi        *mat.SymDense // factor covariance Φ_g
	Cov        *mat.SymDense // observed covariance S_g
}

// Fit is a step-1 solution shared by all later stages.
type Fit struct {
	Model      *syntax.Model
	Loadings   *mat.Dense // p×m, shared across groups
	Groups     []GroupFit
	LogLik     float64
	Iterations int
	Converged  bool
}

// Options configures Estimate.
type Options struct {
	// MaxIterations caps the ECM loop. Must be ≥ 1.
	MaxIterations int

	// Tolerance is the relative log-likelihood change that ends the loop:
	// |ℓ_t − ℓ_{t−1}| ≤ Tolerance·(1 + |ℓ_{t−1}|).
	Tolerance float64

	// MinTheta floors each unique variance at MinTheta·S_ii (Heywood guard).
	MinTheta float64

	// Logger receives progress and warnings; nil discards.
	Logger *slog.Logger
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MaxIterations: 5000,
		Tolerance:     1e-10,
		MinTheta:      1e-4,
	}
}
