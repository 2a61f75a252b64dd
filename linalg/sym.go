// SPDX-License-Identifier: MIT
// Package: linalg
//
// Purpose:
//   - Symmetric positive-definite kernels on top of gonum's Cholesky.
//   - Index-based sub-block extraction used by the structural equations
//     (S[P,P], S[P,j]) and the loading updates.
//
// Policy:
//   - A failed factorization is reported as ErrNotPositiveDefinite; nothing
//     here panics on user data.

package linalg

import (
	"gonum.org/v1/gonum/mat"
)

// Inverse returns A⁻¹ and log|A| for a symmetric positive-definite A.
//
// Implementation:
//   - Stage 1: Cholesky factorization (fails fast on non-PD input).
//   - Stage 2: InverseTo on the factor; LogDet from the factor diagonal.
//
// Errors: ErrNotPositiveDefinite (wrapped with the Inverse tag).
// Complexity: O(n³).
func Inverse(a mat.Symmetric) (*mat.SymDense, float64, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, 0, linalgErrorf(opInverse, ErrNotPositiveDefinite)
	}
	inv := mat.NewSymDense(a.SymmetricDim(), nil)
	if err := chol.InverseTo(inv); err != nil {
		return nil, 0, linalgErrorf(opInverse, ErrNotPositiveDefinite)
	}

	return inv, chol.LogDet(), nil
}

// LogDet returns log|A| for a symmetric positive-definite A.
// Complexity: O(n³).
func LogDet(a mat.Symmetric) (float64, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return 0, linalgErrorf(opLogDet, ErrNotPositiveDefinite)
	}

	return chol.LogDet(), nil
}

// Solve returns x with A·x = b for a symmetric positive-definite A.
// Complexity: O(n³) for the factorization, O(n²) for the solve.
func Solve(a mat.Symmetric, b []float64) ([]float64, error) {
	n := a.SymmetricDim()
	if len(b) != n {
		return nil, linalgErrorf(opSolve, ErrDimensionMismatch)
	}
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return nil, linalgErrorf(opSolve, ErrNotPositiveDefinite)
	}
	var x mat.VecDense
	if err := chol.SolveVecTo(&x, mat.NewVecDense(n, append([]float64(nil), b...))); err != nil {
		return nil, linalgErrorf(opSolve, ErrNotPositiveDefinite)
	}

	return x.RawVector().Data, nil
}

// Sub returns the principal sub-matrix A[idx, idx] as a fresh SymDense.
// Indices are taken in the given order. Complexity: O(k²).
func Sub(a mat.Symmetric, idx []int) *mat.SymDense {
	k := len(idx)
	out := mat.NewSymDense(k, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			out.SetSym(i, j, a.At(idx[i], idx[j]))
		}
	}

	return out
}

// Cross returns the column slice A[rows, col]. Complexity: O(k).
func Cross(a mat.Matrix, rows []int, col int) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = a.At(r, col)
	}

	return out
}

// QuadForm returns xᵀ·A·x over the full (square) matrix A.
// Complexity: O(n²).
func QuadForm(a mat.Matrix, x []float64) float64 {
	var s float64
	for i := range x {
		if x[i] == 0 {
			continue
		}
		var row float64
		for j := range x {
			row += a.At(i, j) * x[j]
		}
		s += x[i] * row
	}

	return s
}

// Symmetrize returns (M + Mᵀ)/2 as a SymDense. It repairs the asymmetry drift
// that accumulates in products such as β·S·βᵀ.
// Errors: ErrNonSquare. Complexity: O(n²).
func Symmetrize(m mat.Matrix) (*mat.SymDense, error) {
	if err := ValidateSquare(m); err != nil {
		return nil, linalgErrorf(opSymmetry, err)
	}
	n, _ := m.Dims()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, 0.5*(m.At(i, j)+m.At(j, i)))
		}
	}

	return out, nil
}

// Diag returns a diagonal SymDense built from d.
func Diag(d []float64) *mat.SymDense {
	out := mat.NewSymDense(len(d), nil)
	for i, v := range d {
		out.SetSym(i, i, v)
	}

	return out
}
