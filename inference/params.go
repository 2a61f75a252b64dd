package inference

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/mmgsem/cluster"
	"github.com/katalvlaran/mmgsem/structural"
)

// layout indexes θ = (B_1..B_K, log ψ_1..log ψ_G, η_1..η_{K−1}). The mixing
// weights are π_k = exp(η_k)/(1 + Σ_l exp(η_l)) with η_K = 0.
type layout struct {
	in      *cluster.Input
	k, q, j int
}

func newLayout(m *cluster.Model) layout {
	return layout{in: m.Input, k: m.K, q: m.Input.NumCoefficients(), j: len(m.Input.Equations)}
}

func (l layout) size() int     { return l.k*l.q + l.in.NumGroups()*l.j + l.k - 1 }
func (l layout) b(k int) int   { return k * l.q }
func (l layout) psi(g int) int { return l.k*l.q + g*l.j }
func (l layout) eta() int      { return l.k*l.q + l.in.NumGroups()*l.j }

// pack maps a fitted model to θ.
func (l layout) pack(m *cluster.Model) []float64 {
	theta := make([]float64, l.size())
	for k, c := range m.Clusters {
		copy(theta[l.b(k):], c.Params.Flatten())
	}
	for g, psi := range m.Psi {
		for j, v := range psi {
			theta[l.psi(g)+j] = math.Log(v)
		}
	}
	last := math.Log(m.Clusters[l.k-1].Weight)
	for k := 0; k < l.k-1; k++ {
		theta[l.eta()+k] = math.Log(m.Clusters[k].Weight) - last
	}

	return theta
}

// unpack is the inverse of pack.
func (l layout) unpack(theta []float64) ([]structural.Params, []float64, [][]float64) {
	params := make([]structural.Params, l.k)
	for k := range params {
		p, _ := structural.Unflatten(l.in.Equations, theta[l.b(k):l.b(k)+l.q])
		params[k] = p
	}
	psi := make([][]float64, l.in.NumGroups())
	for g := range psi {
		psi[g] = make([]float64, l.j)
		for j := range psi[g] {
			psi[g][j] = math.Exp(theta[l.psi(g)+j])
		}
	}
	logits := make([]float64, l.k)
	copy(logits, theta[l.eta():])
	lse := floats.LogSumExp(logits)
	pi := make([]float64, l.k)
	for k := range pi {
		pi[k] = math.Exp(logits[k] - lse)
	}

	return params, pi, psi
}

// logLik is the mixture log-likelihood at θ.
func (l layout) logLik(theta []float64) float64 {
	params, pi, psi := l.unpack(theta)
	ll, err := l.in.LogLik(params, pi, psi)
	if err != nil {
		return math.NaN()
	}

	return ll
}

// groupScore adds ∂ℓ_g/∂θ, evaluated at factor covariance phi, to dst.
//
//	∂ℓ_g/∂b_kj   = z_gk·N_g/ψ_gj·(S_Pj − S_PP b_kj)
//	∂ℓ_g/∂logψ_gj = −N_g/2·Σ_k z_gk·(1 − r_gkj/ψ_gj)
//	∂ℓ_g/∂η_k    = z_gk − π_k
func (l layout) groupScore(dst []float64, g int, phi mat.Symmetric, params []structural.Params, pi []float64, psi []float64) {
	n := l.in.Groups[g].N
	eqs := l.in.Equations
	resid := make([][]float64, l.k)
	comp := make([]float64, l.k)
	for k, p := range params {
		resid[k] = structural.Residuals(phi, eqs, p)
		comp[k] = math.Log(pi[k])
		for j := range eqs {
			comp[k] += structural.EquationLogLik(n, psi[j], resid[k][j])
		}
	}
	lse := floats.LogSumExp(comp)

	for k, p := range params {
		z := math.Exp(comp[k] - lse)
		off := l.b(k)
		for j, eq := range eqs {
			b := p.Coefficients[j]
			w := z * n / psi[j]
			for u, pu := range eq.Predictors {
				s := phi.At(pu, eq.Outcome)
				for v, pv := range eq.Predictors {
					s -= phi.At(pu, pv) * b[v]
				}
				dst[off+u] += w * s
			}
			off += len(eq.Predictors)
			dst[l.psi(g)+j] -= 0.5 * n * z * (1 - resid[k][j]/psi[j])
		}
		if k < l.k-1 {
			dst[l.eta()+k] += z - pi[k]
		}
	}
}

// score is ∂ℓ/∂θ at the step-1 factor covariances.
func (l layout) score(dst, theta []float64) {
	for i := range dst {
		dst[i] = 0
	}
	params, pi, psi := l.unpack(theta)
	for g, gr := range l.in.Groups {
		l.groupScore(dst, g, gr.Phi, params, pi, psi[g])
	}
}
