package inference

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/katalvlaran/mmgsem/cluster"
	"github.com/katalvlaran/mmgsem/linalg"
)

// Correction adjusts pairwise p-values for multiplicity.
type Correction int

const (
	Bonferroni Correction = iota
	Holm
)

func (c Correction) String() string {
	if c == Holm {
		return "holm"
	}

	return "bonferroni"
}

// ParseCorrection maps "bonferroni" or "holm".
func ParseCorrection(s string) (Correction, error) {
	switch strings.ToLower(s) {
	case "bonferroni", "":
		return Bonferroni, nil
	case "holm":
		return Holm, nil
	}

	return 0, fmt.Errorf("inference: unknown correction %q", s)
}

// TestOptions configures Test.
type TestOptions struct {
	// MultipleComparison adds every pairwise cluster comparison.
	MultipleComparison bool
	Correction         Correction
}

// WaldTest is one χ² test. A and B name the compared clusters of a
// pairwise test and are -1 otherwise. Adjusted equals PValue unless a
// multiplicity correction applies.
type WaldTest struct {
	Name      string
	A, B      int
	Statistic float64
	DF        int
	PValue    float64
	Adjusted  float64
}

// TestResult groups the tests of one model.
type TestResult struct {
	Omnibus    WaldTest
	Parameters []WaldTest // one per coefficient, df = K−1
	Pairwise   []WaldTest // K(K−1)/2 when requested
	Correction Correction
}

// Test runs the Wald tests of coefficient equality across clusters.
//
// Errors: cluster.ErrInvalidK for K < 2; cluster.ErrDimensionMismatch when
// se does not belong to m; ErrSingularInformation for a singular contrast
// covariance.
func Test(m *cluster.Model, se *StandardErrors, opts TestOptions) (*TestResult, error) {
	if m == nil || se == nil || se.K != m.K {
		return nil, fmt.Errorf("inference: standard errors do not match the model: %w", cluster.ErrDimensionMismatch)
	}
	k, q := m.K, len(se.Names)
	if k < 2 {
		return nil, fmt.Errorf("inference: equality tests need K ≥ 2, got %d: %w", k, cluster.ErrInvalidK)
	}
	if se.Cov.SymmetricDim() != k*q {
		return nil, fmt.Errorf("inference: covariance is %d-dimensional, want %d: %w", se.Cov.SymmetricDim(), k*q, cluster.ErrDimensionMismatch)
	}
	b := make([]float64, 0, k*q)
	for _, c := range m.Clusters {
		b = append(b, c.Params.Flatten()...)
	}

	res := &TestResult{Correction: opts.Correction}

	// omnibus: b_k − b_K = 0 for k < K
	var rows [][2]int // (cluster, coefficient) pairs contrasted against K
	for c := 0; c < k-1; c++ {
		for i := 0; i < q; i++ {
			rows = append(rows, [2]int{c, i})
		}
	}
	omni, err := wald("all coefficients equal", b, se.Cov, contrastLast(rows, k, q))
	if err != nil {
		return nil, err
	}
	res.Omnibus = omni

	for i, name := range se.Names {
		rows = rows[:0]
		for c := 0; c < k-1; c++ {
			rows = append(rows, [2]int{c, i})
		}
		t, err := wald(name, b, se.Cov, contrastLast(rows, k, q))
		if err != nil {
			return nil, err
		}
		res.Parameters = append(res.Parameters, t)
	}

	if !opts.MultipleComparison {
		return res, nil
	}
	for a := 0; a < k; a++ {
		for c := a + 1; c < k; c++ {
			r := mat.NewDense(q, k*q, nil)
			for i := 0; i < q; i++ {
				r.Set(i, a*q+i, 1)
				r.Set(i, c*q+i, -1)
			}
			t, err := wald(fmt.Sprintf("cluster %d vs %d", a+1, c+1), b, se.Cov, r)
			if err != nil {
				return nil, err
			}
			t.A, t.B = a, c
			res.Pairwise = append(res.Pairwise, t)
		}
	}
	adjust(res.Pairwise, opts.Correction)

	return res, nil
}

// contrastLast builds R with one row per (cluster, coefficient) pair:
// b_c,i − b_K,i.
func contrastLast(rows [][2]int, k, q int) *mat.Dense {
	r := mat.NewDense(len(rows), k*q, nil)
	for n, ci := range rows {
		r.Set(n, ci[0]*q+ci[1], 1)
		r.Set(n, (k-1)*q+ci[1], -1)
	}

	return r
}

// wald computes W = (Rb)ᵀ (R V Rᵀ)⁻¹ (Rb) with df = rows of R.
func wald(name string, b []float64, v mat.Symmetric, r *mat.Dense) (WaldTest, error) {
	df, _ := r.Dims()
	var rb mat.VecDense
	rb.MulVec(r, mat.NewVecDense(len(b), b))

	var rv, rvr mat.Dense
	rv.Mul(r, v)
	rvr.Mul(&rv, r.T())
	s, err := linalg.Symmetrize(&rvr)
	if err != nil {
		return WaldTest{}, fmt.Errorf("inference: %s: %w", name, err)
	}
	x, err := linalg.Solve(s, rb.RawVector().Data)
	if err != nil {
		return WaldTest{}, fmt.Errorf("inference: %s: %w: %w", name, ErrSingularInformation, err)
	}
	w := mat.Dot(&rb, mat.NewVecDense(len(x), x))
	p := distuv.ChiSquared{K: float64(df)}.Survival(w)

	return WaldTest{Name: name, A: -1, B: -1, Statistic: w, DF: df, PValue: p, Adjusted: p}, nil
}

// adjust applies the Bonferroni or Holm step-down correction in place.
func adjust(tests []WaldTest, c Correction) {
	m := float64(len(tests))
	if c == Bonferroni {
		for i := range tests {
			tests[i].Adjusted = min(1, tests[i].PValue*m)
		}

		return
	}
	order := make([]int, len(tests))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return tests[order[a]].PValue < tests[order[b]].PValue })
	running := 0.0
	for rank, i := range order {
		adj := min(1, (m-float64(rank))*tests[i].PValue)
		running = max(running, adj)
		tests[i].Adjusted = running
	}
}
