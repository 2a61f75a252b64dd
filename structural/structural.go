package structural

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/mmgsem/linalg"
	"github.com/katalvlaran/mmgsem/syntax"
)

var (
	// ErrNoWeight is returned when an equation receives no positive weight,
	// i.e. the cluster holds no posterior mass.
	ErrNoWeight = errors.New("structural: no positive weight")

	// ErrDimensionMismatch reports a coefficient vector or residual-variance
	// slice that does not match the equations.
	ErrDimensionMismatch = errors.New("structural: dimension mismatch")

	// ErrSingular reports a singular weighted predictor covariance.
	ErrSingular = errors.New("structural: singular predictor covariance")
)

var log2Pi = math.Log(2 * math.Pi)

// Params are the structural coefficients of one cluster, one slice per
// equation aligned with Equation.Predictors.
type Params struct {
	Coefficients [][]float64
}

// Flatten concatenates the coefficients in equation order.
func (p Params) Flatten() []float64 {
	var out []float64
	for _, c := range p.Coefficients {
		out = append(out, c...)
	}

	return out
}

// Clone deep-copies p.
func (p Params) Clone() Params {
	out := Params{Coefficients: make([][]float64, len(p.Coefficients))}
	for i, c := range p.Coefficients {
		out.Coefficients[i] = append([]float64(nil), c...)
	}

	return out
}

// Unflatten is the inverse of Flatten for the given equations.
func Unflatten(eqs []syntax.Equation, v []float64) (Params, error) {
	out := Params{Coefficients: make([][]float64, len(eqs))}
	k := 0
	for j, eq := range eqs {
		n := len(eq.Predictors)
		if k+n > len(v) {
			return Params{}, ErrDimensionMismatch
		}
		out.Coefficients[j] = append([]float64(nil), v[k:k+n]...)
		k += n
	}
	if k != len(v) {
		return Params{}, ErrDimensionMismatch
	}

	return out, nil
}

// WeightedGroup is one group's contribution to a cluster's estimate.
type WeightedGroup struct {
	Phi    mat.Symmetric // step-1 factor covariance Φ̂_g
	N      float64       // group size
	Weight float64       // posterior membership in [0,1]
	Psi    []float64     // disturbance variance per equation
}

// Estimate computes the weighted GLS coefficients of every equation.
//
// Errors:
//   - ErrNoWeight when all weights of an equation are zero.
//   - ErrSingular when Σ_g w_g S_g[P,P] is not positive definite.
//   - ErrDimensionMismatch when a group's Psi does not cover the equations.
func Estimate(eqs []syntax.Equation, groups []WeightedGroup) (Params, error) {
	out := Params{Coefficients: make([][]float64, len(eqs))}
	for _, g := range groups {
		if len(g.Psi) != len(eqs) {
			return Params{}, ErrDimensionMismatch
		}
	}
	for j, eq := range eqs {
		q := len(eq.Predictors)
		a := mat.NewSymDense(q, nil)
		c := make([]float64, q)
		total := 0.0
		for _, g := range groups {
			if g.Weight <= 0 {
				continue
			}
			w := g.Weight * g.N / g.Psi[j]
			total += w
			spp := linalg.Sub(g.Phi, eq.Predictors)
			spp.ScaleSym(w, spp)
			a.AddSym(a, spp)
			floats.AddScaled(c, w, linalg.Cross(g.Phi, eq.Predictors, eq.Outcome))
		}
		if total <= 0 {
			return Params{}, fmt.Errorf("equation %d: %w", j, ErrNoWeight)
		}
		b, err := linalg.Solve(a, c)
		if err != nil {
			return Params{}, fmt.Errorf("equation %d: %w: %w", j, ErrSingular, err)
		}
		out.Coefficients[j] = b
	}

	return out, nil
}

// Residual returns r = s_jj − 2 bᵀ S_Pj + bᵀ S_PP b, the disturbance variance
// implied by coefficients b in a group with factor covariance phi.
func Residual(phi mat.Symmetric, eq syntax.Equation, b []float64) float64 {
	r := phi.At(eq.Outcome, eq.Outcome)
	for u, pu := range eq.Predictors {
		r -= 2 * b[u] * phi.At(pu, eq.Outcome)
		for v, pv := range eq.Predictors {
			r += b[u] * b[v] * phi.At(pu, pv)
		}
	}

	return r
}

// Residuals evaluates Residual for every equation.
func Residuals(phi mat.Symmetric, eqs []syntax.Equation, p Params) []float64 {
	out := make([]float64, len(eqs))
	for j, eq := range eqs {
		out[j] = Residual(phi, eq, p.Coefficients[j])
	}

	return out
}

// EquationLogLik is −n/2·[log(2πψ) + r/ψ].
func EquationLogLik(n, psi, r float64) float64 {
	return -0.5 * n * (log2Pi + math.Log(psi) + r/psi)
}

// LogLik sums the equation terms of a group under coefficients p.
func LogLik(phi mat.Symmetric, n float64, psi []float64, eqs []syntax.Equation, p Params) float64 {
	var ll float64
	for j, eq := range eqs {
		ll += EquationLogLik(n, psi[j], Residual(phi, eq, p.Coefficients[j]))
	}

	return ll
}

// ExogenousLogLik is the saturated normal log-likelihood of the exogenous
// block: −n/2·[m log 2π + log|S_xx| + m]. It does not depend on the cluster.
func ExogenousLogLik(phi mat.Symmetric, n float64, exo []int) (float64, error) {
	if len(exo) == 0 {
		return 0, nil
	}
	logdet, err := linalg.LogDet(linalg.Sub(phi, exo))
	if err != nil {
		return 0, err
	}
	m := float64(len(exo))

	return -0.5 * n * (m*log2Pi + logdet + m), nil
}

// SingleGroup returns the maximum-likelihood estimates of one group on its
// own: ordinary regression on Φ̂ (b_j = S_PP⁻¹ S_Pj) and ψ_j = r_j.
func SingleGroup(phi mat.Symmetric, eqs []syntax.Equation) (Params, []float64, error) {
	ones := make([]float64, len(eqs))
	for j := range ones {
		ones[j] = 1
	}
	p, err := Estimate(eqs, []WeightedGroup{{Phi: phi, N: 1, Weight: 1, Psi: ones}})
	if err != nil {
		return Params{}, nil, err
	}

	return p, Residuals(phi, eqs, p), nil
}
