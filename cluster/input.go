package cluster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/mmgsem/linalg"
	"github.com/katalvlaran/mmgsem/measurement"
	"github.com/katalvlaran/mmgsem/structural"
	"github.com/katalvlaran/mmgsem/syntax"
)

// Group is one group as seen by the mixture step.
type Group struct {
	ID  string
	N   float64
	Phi *mat.SymDense // step-1 factor covariance Φ̂_g

	// ExoLogLik is the saturated exogenous term; it is the same in every
	// cluster and only shifts the log-likelihood.
	ExoLogLik float64

	// Own and OwnPsi are the single-group estimates, used for
	// hierarchical starts and initial disturbance variances.
	Own    structural.Params
	OwnPsi []float64
}

// Input is the precomputed, read-only input of Fit. It is safe to share
// between concurrent fits.
type Input struct {
	Model     *syntax.Model
	Equations []syntax.Equation
	Exogenous []int
	Groups    []Group

	// Step1 is the measurement fit the groups came from, when known.
	// Inference uses it for the two-step correction.
	Step1 *measurement.Fit
}

// NewInput prepares the mixture input from a step-1 fit.
func NewInput(fit *measurement.Fit) (*Input, error) {
	if fit == nil || fit.Model == nil {
		return nil, fmt.Errorf("NewInput: nil fit: %w", ErrDimensionMismatch)
	}
	ids := make([]string, len(fit.Groups))
	ns := make([]int, len(fit.Groups))
	phis := make([]*mat.SymDense, len(fit.Groups))
	for g, gf := range fit.Groups {
		ids[g], ns[g], phis[g] = gf.ID, gf.N, gf.Phi
	}
	in, err := NewInputFromPhi(fit.Model, ids, ns, phis)
	if err != nil {
		return nil, err
	}
	in.Step1 = fit

	return in, nil
}

// NewInputFromPhi prepares the mixture input from factor covariances
// estimated elsewhere.
func NewInputFromPhi(model *syntax.Model, ids []string, n []int, phi []*mat.SymDense) (*Input, error) {
	if model == nil {
		return nil, fmt.Errorf("NewInput: nil model: %w", ErrDimensionMismatch)
	}
	eqs := model.Equations()
	if len(eqs) == 0 {
		return nil, fmt.Errorf("NewInput: structural model has no equations: %w", ErrDimensionMismatch)
	}
	if len(ids) != len(phi) || len(n) != len(phi) || len(phi) == 0 {
		return nil, fmt.Errorf("NewInput: %d ids, %d sizes, %d covariances: %w", len(ids), len(n), len(phi), ErrDimensionMismatch)
	}
	in := &Input{
		Model:     model,
		Equations: eqs,
		Exogenous: model.Exogenous(),
		Groups:    make([]Group, len(phi)),
	}
	m := model.NumFactors()
	for g := range phi {
		if phi[g] == nil || phi[g].SymmetricDim() != m {
			return nil, fmt.Errorf("NewInput: group %s: factor covariance must be %d×%d: %w", ids[g], m, m, ErrDimensionMismatch)
		}
		if n[g] < 1 {
			return nil, fmt.Errorf("NewInput: group %s: size %d: %w", ids[g], n[g], ErrDimensionMismatch)
		}
		if err := linalg.ValidateFinite(phi[g]); err != nil {
			return nil, fmt.Errorf("NewInput: group %s: %w", ids[g], err)
		}
		c := mat.NewSymDense(m, nil)
		c.CopySym(phi[g])
		exo, err := structural.ExogenousLogLik(c, float64(n[g]), in.Exogenous)
		if err != nil {
			return nil, fmt.Errorf("NewInput: group %s: exogenous block: %w", ids[g], err)
		}
		own, psi, err := structural.SingleGroup(c, eqs)
		if err != nil {
			return nil, fmt.Errorf("NewInput: group %s: %w", ids[g], err)
		}
		in.Groups[g] = Group{ID: ids[g], N: float64(n[g]), Phi: c, ExoLogLik: exo, Own: own, OwnPsi: psi}
	}

	return in, nil
}

// NumGroups is G.
func (in *Input) NumGroups() int { return len(in.Groups) }

// TotalN is the summed sample size.
func (in *Input) TotalN() float64 {
	var n float64
	for _, g := range in.Groups {
		n += g.N
	}

	return n
}

// NumCoefficients is the number of regression coefficients per cluster.
func (in *Input) NumCoefficients() int {
	n := 0
	for _, e := range in.Equations {
		n += len(e.Predictors)
	}

	return n
}

// ComponentLogLik returns ℓ_gk without the mixing weight and the exogenous
// term, for coefficients p and disturbance variances psi of group g.
func (in *Input) ComponentLogLik(g int, p structural.Params, psi []float64) float64 {
	gr := in.Groups[g]

	return structural.LogLik(gr.Phi, gr.N, psi, in.Equations, p)
}

// GroupLogLik is log Σ_k π_k exp(ℓ_gk) + ℓ_exo,g evaluated at an arbitrary
// factor covariance phi for group g. Inference differentiates it in phi.
func (in *Input) GroupLogLik(g int, phi mat.Symmetric, params []structural.Params, pi, psi []float64) (float64, error) {
	n := in.Groups[g].N
	exo, err := structural.ExogenousLogLik(phi, n, in.Exogenous)
	if err != nil {
		return 0, err
	}
	comp := make([]float64, len(params))
	for k, p := range params {
		comp[k] = math.Log(pi[k]) + structural.LogLik(phi, n, psi, in.Equations, p)
	}

	return floats.LogSumExp(comp) + exo, nil
}

// LogLik is the mixture log-likelihood Σ_g GroupLogLik at the step-1 Φ̂_g.
func (in *Input) LogLik(params []structural.Params, pi []float64, psi [][]float64) (float64, error) {
	if len(params) != len(pi) || len(psi) != len(in.Groups) {
		return 0, ErrDimensionMismatch
	}
	var ll float64
	for g, gr := range in.Groups {
		comp := make([]float64, len(params))
		for k, p := range params {
			comp[k] = math.Log(pi[k]) + in.ComponentLogLik(g, p, psi[g])
		}
		ll += floats.LogSumExp(comp) + gr.ExoLogLik
	}

	return ll, nil
}
