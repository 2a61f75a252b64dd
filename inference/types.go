package inference

import (
	"errors"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"
)

// ErrSingularInformation reports an information matrix (or a Wald contrast
// covariance) that cannot be inverted.
var ErrSingularInformation = errors.New("inference: singular information matrix")

// ErrUnknownParameter is returned by Lookup for names not in the model.
var ErrUnknownParameter = errors.New("inference: unknown parameter")

// Options configures ComputeSE.
type Options struct {
	// Naive selects the block-diagonal complete-data approximation.
	Naive bool

	// TwoStep adds the Murphy–Topel correction when the input carries its
	// step-1 fit. Ignored in naive mode.
	TwoStep bool

	// Step is the finite-difference step; 0 uses the gonum default.
	Step float64

	Logger *slog.Logger
}

// DefaultOptions is the full, two-step corrected computation.
func DefaultOptions() Options {
	return Options{TwoStep: true}
}

// Estimate is one coefficient with its standard error.
type Estimate struct {
	Cluster int
	Name    string
	Value   float64
	SE      float64
}

// StandardErrors is attached to a model on demand.
type StandardErrors struct {
	K     int
	Names []string // coefficient names, one cluster's worth

	// Coefficients and SE are K×q.
	Coefficients [][]float64
	SE           [][]float64

	// Cov is the covariance of the flattened coefficients (B_1, ..., B_K).
	Cov *mat.SymDense

	// Full is the covariance of every step-2 parameter; nil when naive.
	Full *mat.SymDense

	Naive     bool
	Corrected bool
}

// Lookup returns the estimate of parameter name in cluster k.
func (s *StandardErrors) Lookup(k int, name string) (Estimate, error) {
	if k < 0 || k >= s.K {
		return Estimate{}, fmt.Errorf("inference: cluster %d of %d: %w", k, s.K, ErrUnknownParameter)
	}
	for i, n := range s.Names {
		if n == name {
			return Estimate{Cluster: k, Name: n, Value: s.Coefficients[k][i], SE: s.SE[k][i]}, nil
		}
	}

	return Estimate{}, fmt.Errorf("inference: %q: %w", name, ErrUnknownParameter)
}

// Table lists every (cluster, parameter) estimate, cluster-major.
func (s *StandardErrors) Table() []Estimate {
	out := make([]Estimate, 0, s.K*len(s.Names))
	for k := 0; k < s.K; k++ {
		for i, n := range s.Names {
			out = append(out, Estimate{Cluster: k, Name: n, Value: s.Coefficients[k][i], SE: s.SE[k][i]})
		}
	}

	return out
}
