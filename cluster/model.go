package cluster

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/mmgsem/structural"
)

// Cluster is one mixture component.
type Cluster struct {
	Index  int
	Params structural.Params
	Weight float64 // mixing proportion π_k
	Mass   float64 // Σ_g z_gk
}

// Model is a fitted mixture.
type Model struct {
	K        int
	Clusters []Cluster

	// Posterior is G×K; every row sums to one.
	Posterior *mat.Dense

	// Psi holds the disturbance variances, one row per group.
	Psi [][]float64

	LogLik float64

	// LogLikHistory is the objective after every iteration: the mixture
	// log-likelihood, or the classification log-likelihood for hard fits.
	LogLikHistory []float64

	Iterations        int
	Converged         bool
	Violations        int // iterations whose objective decreased
	Reinitializations int

	Seed  int64
	Start int // winning start

	Input *Input
}

// NumGroups is G.
func (m *Model) NumGroups() int { return len(m.Psi) }

// ParamCount is the number of free step-2 parameters: K·q coefficients,
// K−1 mixing weights, and per group one disturbance variance per equation
// plus the saturated exogenous covariance.
func (m *Model) ParamCount() int {
	q := m.Input.NumCoefficients()
	e := len(m.Input.Exogenous)
	perGroup := len(m.Input.Equations) + e*(e+1)/2

	return m.K*q + (m.K - 1) + m.NumGroups()*perGroup
}

// Params returns the coefficients of every cluster.
func (m *Model) Params() []structural.Params {
	out := make([]structural.Params, m.K)
	for k, c := range m.Clusters {
		out[k] = c.Params
	}

	return out
}

// Weights returns the mixing proportions.
func (m *Model) Weights() []float64 {
	out := make([]float64, m.K)
	for k, c := range m.Clusters {
		out[k] = c.Weight
	}

	return out
}

// Assignments returns the modal cluster of every group.
func (m *Model) Assignments() []int {
	out := make([]int, m.NumGroups())
	for g := range out {
		best := 0
		for k := 1; k < m.K; k++ {
			if m.Posterior.At(g, k) > m.Posterior.At(g, best) {
				best = k
			}
		}
		out[g] = best
	}

	return out
}

// Entropy is the classification entropy EN = −Σ_g Σ_k z_gk log z_gk.
func (m *Model) Entropy() float64 {
	var en float64
	r, c := m.Posterior.Dims()
	for g := 0; g < r; g++ {
		for k := 0; k < c; k++ {
			if z := m.Posterior.At(g, k); z > 0 {
				en -= z * math.Log(z)
			}
		}
	}

	return en
}

// RelativeEntropy is 1 − EN/(G·log K), in [0,1]; 1 means crisp
// classification. It is 1 for K=1.
func (m *Model) RelativeEntropy() float64 {
	if m.K < 2 {
		return 1
	}

	return 1 - m.Entropy()/(float64(m.NumGroups())*math.Log(float64(m.K)))
}

// Permute relabels the clusters so that new cluster i is old cluster perm[i].
func (m *Model) Permute(perm []int) error {
	if len(perm) != m.K {
		return fmt.Errorf("Permute: %d labels for K=%d: %w", len(perm), m.K, ErrDimensionMismatch)
	}
	seen := make([]bool, m.K)
	for _, p := range perm {
		if p < 0 || p >= m.K || seen[p] {
			return fmt.Errorf("Permute: %v is not a permutation: %w", perm, ErrDimensionMismatch)
		}
		seen[p] = true
	}

	clusters := make([]Cluster, m.K)
	z := mat.NewDense(m.NumGroups(), m.K, nil)
	for i, p := range perm {
		clusters[i] = m.Clusters[p]
		clusters[i].Index = i
		z.SetCol(i, mat.Col(nil, p, m.Posterior))
	}
	m.Clusters, m.Posterior = clusters, z

	return nil
}
