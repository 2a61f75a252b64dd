package measurement

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/mmgsem/linalg"
	"github.com/katalvlaran/mmgsem/syntax"
)

var log2Pi = math.Log(2 * math.Pi)

// suffStats are the E-step expectations of one group.
type suffStats struct {
	cxz *mat.Dense    // E[x ηᵀ], p×m
	czz *mat.SymDense // E[η ηᵀ], m×m
}

// rowPlan caches, per indicator, which loadings are free and which are fixed.
type rowPlan struct {
	free  []int
	fixed []int // marker positions, value 1
}

// Estimate fits the multigroup CFA with metric invariance to groups.
//
// Implementation:
//   - Stage 1: validate shapes, build starting values (marker loadings 1,
//     θ = S_ii/2, φ_ff = S_rr/2 for marker r).
//   - Stage 2: ECM loop; E-step per group, M-step for Φ_g, Λ, Θ_g.
//   - Stage 3: final log-likelihood on the returned parameters.
//
// A fit that hits MaxIterations is returned together with an error wrapping
// ErrNonConvergence.
//
// Complexity: O(iter · G · p³).
func Estimate(ctx context.Context, model *syntax.Model, groups []GroupData, opts Options) (*Fit, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.MaxIterations < 1 {
		opts.MaxIterations = DefaultOptions().MaxIterations
	}
	if err := validateGroups(model, groups); err != nil {
		return nil, err
	}

	p, m := model.NumIndicators(), model.NumFactors()
	lambda, fits := startValues(model, groups)
	plans := planRows(model)

	var (
		prev      = math.Inf(-1)
		ll        float64
		converged bool
		iter      int
		err       error
	)
	stats := make([]suffStats, len(groups))
	for iter = 1; iter <= opts.MaxIterations; iter++ {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		ll = 0
		for g := range fits {
			var llg float64
			stats[g], llg, err = eStep(lambda, &fits[g])
			if err != nil {
				return nil, fmt.Errorf("measurement: group %q, iteration %d: %w", fits[g].ID, iter, err)
			}
			ll += llg
		}
		if iter > 1 && math.Abs(ll-prev) <= opts.Tolerance*(1+math.Abs(prev)) {
			converged = true
			break
		}
		if iter > 1 && ll < prev-1e-8*math.Abs(prev) {
			logger.Warn("measurement log-likelihood decreased", "iteration", iter, "prev", prev, "loglik", ll)
		}
		prev = ll

		// M-step: Φ_g, then Λ given Θ, then Θ given Λ.
		for g := range fits {
			fits[g].Phi = stats[g].czz
		}
		if err = updateLoadings(lambda, plans, fits, stats); err != nil {
			return nil, fmt.Errorf("measurement: iteration %d: %w", iter, err)
		}
		updateTheta(lambda, fits, stats, opts.MinTheta)
	}
	if !converged {
		iter = opts.MaxIterations
		ll, err = totalLogLik(lambda, fits)
		if err != nil {
			return nil, err
		}
	}

	fit := &Fit{
		Model:      model,
		Loadings:   lambda,
		Groups:     fits,
		LogLik:     ll,
		Iterations: iter,
		Converged:  converged,
	}
	logger.Debug("measurement model estimated",
		"groups", len(groups), "indicators", p, "factors", m,
		"iterations", iter, "loglik", ll, "converged", converged)
	if !converged {
		logger.Warn("measurement model did not converge", "iterations", iter)
		return fit, fmt.Errorf("measurement: after %d iterations: %w", iter, ErrNonConvergence)
	}

	return fit, nil
}

func validateGroups(model *syntax.Model, groups []GroupData) error {
	if len(groups) == 0 {
		return ErrNoGroups
	}
	p := model.NumIndicators()
	for _, g := range groups {
		if g.N < 2 {
			return fmt.Errorf("group %q: %w", g.ID, ErrTooFewObservations)
		}
		if g.Cov == nil || g.Cov.SymmetricDim() != p || len(g.Means) != p {
			return fmt.Errorf("group %q: model has %d indicators: %w", g.ID, p, ErrDimensionMismatch)
		}
	}

	return nil
}

func startValues(model *syntax.Model, groups []GroupData) (*mat.Dense, []GroupFit) {
	p, m := model.NumIndicators(), model.NumFactors()

	// Pooled covariance, weighted by N_g.
	pooled := mat.NewSymDense(p, nil)
	total := 0.0
	for _, g := range groups {
		pooled.AddSym(pooled, scaledSym(g.Cov, float64(g.N)))
		total += float64(g.N)
	}
	pooled.ScaleSym(1/total, pooled)

	lambda := mat.NewDense(p, m, nil)
	for f := 0; f < m; f++ {
		r := model.Marker(f)
		phi := 0.5 * pooled.At(r, r)
		for i := 0; i < p; i++ {
			if !model.Loads(i, f) {
				continue
			}
			if model.IsMarker(i, f) {
				lambda.Set(i, f, 1)
				continue
			}
			lambda.Set(i, f, pooled.At(i, r)/phi)
		}
	}

	fits := make([]GroupFit, len(groups))
	for gi, g := range groups {
		theta := make([]float64, p)
		for i := range theta {
			theta[i] = 0.5 * g.Cov.At(i, i)
		}
		phi := mat.NewSymDense(m, nil)
		for f := 0; f < m; f++ {
			r := model.Marker(f)
			phi.SetSym(f, f, 0.5*g.Cov.At(r, r))
		}
		fits[gi] = GroupFit{
			ID:         g.ID,
			N:          g.N,
			Intercepts: append([]float64(nil), g.Means...),
			Theta:      theta,
			Phi:        phi,
			Cov:        g.Cov,
		}
	}

	return lambda, fits
}

func scaledSym(a mat.Symmetric, s float64) *mat.SymDense {
	out := mat.NewSymDense(a.SymmetricDim(), nil)
	out.ScaleSym(s, a)

	return out
}

func planRows(model *syntax.Model) []rowPlan {
	p, m := model.NumIndicators(), model.NumFactors()
	plans := make([]rowPlan, p)
	for i := 0; i < p; i++ {
		for f := 0; f < m; f++ {
			switch {
			case !model.Loads(i, f):
			case model.IsMarker(i, f):
				plans[i].fixed = append(plans[i].fixed, f)
			default:
				plans[i].free = append(plans[i].free, f)
			}
		}
	}

	return plans
}

// impliedCov returns Λ Φ Λᵀ + diag(θ).
func impliedCov(lambda *mat.Dense, phi mat.Symmetric, theta []float64) *mat.SymDense {
	p, _ := lambda.Dims()
	var lp, s mat.Dense
	lp.Mul(lambda, phi)
	s.Mul(&lp, lambda.T())
	out := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := 0.5 * (s.At(i, j) + s.At(j, i))
			if i == j {
				v += theta[i]
			}
			out.SetSym(i, j, v)
		}
	}

	return out
}

// traceProd returns tr(A·B) for symmetric A and B.
func traceProd(a, b mat.Symmetric) float64 {
	n := a.SymmetricDim()
	var s float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			s += a.At(i, j) * b.At(j, i)
		}
	}

	return s
}

// gaussLogLik is the covariance part of the normal log-likelihood of a group
// with ML covariance s under model covariance sigma.
func gaussLogLik(n int, s, sigma mat.Symmetric) (float64, *mat.SymDense, error) {
	inv, logdet, err := linalg.Inverse(sigma)
	if err != nil {
		return 0, nil, err
	}
	p := float64(s.SymmetricDim())

	return -0.5 * float64(n) * (p*log2Pi + logdet + traceProd(s, inv)), inv, nil
}

// eStep returns the expected sufficient statistics of group g and its
// log-likelihood at the current parameters.
func eStep(lambda *mat.Dense, g *GroupFit) (suffStats, float64, error) {
	sigma := impliedCov(lambda, g.Phi, g.Theta)
	ll, inv, err := gaussLogLik(g.N, g.Cov, sigma)
	if err != nil {
		return suffStats{}, 0, err
	}

	// β = Φ Λᵀ Σ⁻¹ (m×p)
	var pl, beta mat.Dense
	pl.Mul(g.Phi, lambda.T())
	beta.Mul(&pl, inv)

	// E[x ηᵀ] = S βᵀ (p×m)
	cxz := new(mat.Dense)
	cxz.Mul(g.Cov, beta.T())

	// E[η ηᵀ] = Φ − β Λ Φ + β S βᵀ
	var bl, blp, bsb mat.Dense
	bl.Mul(&beta, lambda)
	blp.Mul(&bl, g.Phi)
	bsb.Mul(&beta, cxz)
	m := g.Phi.SymmetricDim()
	raw := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			raw.Set(i, j, g.Phi.At(i, j)-blp.At(i, j)+bsb.At(i, j))
		}
	}
	czz, err := linalg.Symmetrize(raw)
	if err != nil {
		return suffStats{}, 0, err
	}

	return suffStats{cxz: cxz, czz: czz}, ll, nil
}

// updateLoadings solves, row by row, the pooled weighted least-squares
// problem for the free loadings given the current unique variances.
func updateLoadings(lambda *mat.Dense, plans []rowPlan, fits []GroupFit, stats []suffStats) error {
	for i, plan := range plans {
		if len(plan.free) == 0 {
			continue
		}
		k := len(plan.free)
		a := mat.NewSymDense(k, nil)
		c := make([]float64, k)
		for g := range fits {
			w := float64(fits[g].N) / fits[g].Theta[i]
			czz, cxz := stats[g].czz, stats[g].cxz
			for u, fu := range plan.free {
				for v := u; v < k; v++ {
					a.SetSym(u, v, a.At(u, v)+w*czz.At(fu, plan.free[v]))
				}
				rhs := cxz.At(i, fu)
				for _, fx := range plan.fixed {
					rhs -= czz.At(fu, fx)
				}
				c[u] += w * rhs
			}
		}
		sol, err := linalg.Solve(a, c)
		if err != nil {
			return fmt.Errorf("loadings of indicator %d: %w", i, err)
		}
		for u, f := range plan.free {
			lambda.Set(i, f, sol[u])
		}
	}

	return nil
}

// updateTheta sets θ_gi = S_ii − 2 λ_iᵀ E[x_i η] + λ_iᵀ E[ηηᵀ] λ_i.
func updateTheta(lambda *mat.Dense, fits []GroupFit, stats []suffStats, minTheta float64) {
	p, m := lambda.Dims()
	row := make([]float64, m)
	for g := range fits {
		for i := 0; i < p; i++ {
			mat.Row(row, i, lambda)
			sii := fits[g].Cov.At(i, i)
			v := sii + linalg.QuadForm(stats[g].czz, row)
			for f := 0; f < m; f++ {
				v -= 2 * row[f] * stats[g].cxz.At(i, f)
			}
			if floor := minTheta * sii; v < floor {
				v = floor
			}
			fits[g].Theta[i] = v
		}
	}
}

func totalLogLik(lambda *mat.Dense, fits []GroupFit) (float64, error) {
	var ll float64
	for g := range fits {
		llg, _, err := gaussLogLik(fits[g].N, fits[g].Cov, impliedCov(lambda, fits[g].Phi, fits[g].Theta))
		if err != nil {
			return 0, fmt.Errorf("measurement: group %q: %w", fits[g].ID, err)
		}
		ll += llg
	}

	return ll, nil
}
