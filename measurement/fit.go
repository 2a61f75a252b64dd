package measurement

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/mmgsem/linalg"
	"github.com/katalvlaran/mmgsem/syntax"
)

// NewFit wraps step-1 estimates produced outside this package. Loadings must
// be p×m for the model; every group needs Θ (len p), Φ (m×m) and its observed
// covariance (p×p). The log-likelihood is recomputed from the inputs.
func NewFit(model *syntax.Model, loadings *mat.Dense, groups []GroupFit) (*Fit, error) {
	if len(groups) == 0 {
		return nil, ErrNoGroups
	}
	p, m := model.NumIndicators(), model.NumFactors()
	if r, c := loadings.Dims(); r != p || c != m {
		return nil, fmt.Errorf("loadings are %dx%d, model needs %dx%d: %w", r, c, p, m, ErrDimensionMismatch)
	}
	for _, g := range groups {
		switch {
		case g.N < 2:
			return nil, fmt.Errorf("group %q: %w", g.ID, ErrTooFewObservations)
		case len(g.Theta) != p, g.Phi == nil, g.Cov == nil:
			return nil, fmt.Errorf("group %q: %w", g.ID, ErrDimensionMismatch)
		}
		if err := linalg.ValidateCovariance(g.Phi, m, linalg.DefaultEpsilon); err != nil {
			return nil, fmt.Errorf("group %q: factor covariance: %w", g.ID, err)
		}
		if err := linalg.ValidateCovariance(g.Cov, p, linalg.DefaultEpsilon); err != nil {
			return nil, fmt.Errorf("group %q: observed covariance: %w", g.ID, err)
		}
	}
	fit := &Fit{Model: model, Loadings: mat.DenseCopyOf(loadings), Groups: append([]GroupFit(nil), groups...), Converged: true}
	ll, err := totalLogLik(fit.Loadings, fit.Groups)
	if err != nil {
		return nil, err
	}
	fit.LogLik = ll

	return fit, nil
}

// Implied returns the model-implied covariance Λ Φ_g Λᵀ + Θ_g of group g.
func (f *Fit) Implied(g int) *mat.SymDense {
	return impliedCov(f.Loadings, f.Groups[g].Phi, f.Groups[g].Theta)
}

// GroupLogLik evaluates the step-1 log-likelihood of group g with its factor
// covariance replaced by phi (Λ and Θ_g held at their estimates). It is the
// function whose curvature gives the sampling covariance of Φ_g.
func (f *Fit) GroupLogLik(g int, phi mat.Symmetric) (float64, error) {
	if g < 0 || g >= len(f.Groups) {
		return 0, fmt.Errorf("group index %d: %w", g, ErrDimensionMismatch)
	}
	if phi.SymmetricDim() != f.Model.NumFactors() {
		return 0, fmt.Errorf("phi is %d-dimensional: %w", phi.SymmetricDim(), ErrDimensionMismatch)
	}
	gr := f.Groups[g]
	ll, _, err := gaussLogLik(gr.N, gr.Cov, impliedCov(f.Loadings, phi, gr.Theta))

	return ll, err
}

// ParamCount is the number of free step-1 parameters: free loadings plus, per
// group, unique variances, intercepts and factor covariances.
func (f *Fit) ParamCount() int {
	p, m := f.Model.NumIndicators(), f.Model.NumFactors()
	return f.Model.FreeLoadings() + len(f.Groups)*(2*p+linalg.VechLen(m))
}

// TotalN sums the group sizes.
func (f *Fit) TotalN() int {
	n := 0
	for _, g := range f.Groups {
		n += g.N
	}

	return n
}
