// SPDX-License-Identifier: MIT

package linalg

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Moments returns the column means and the maximum-likelihood covariance
// (divisor n, not n-1) of the rows. All rows must have the same length and be
// finite.
//
// Implementation:
//   - Stage 1: pack rows into a Dense and validate finiteness.
//   - Stage 2: stat.CovarianceMatrix (unbiased) rescaled by (n-1)/n.
//
// Errors: ErrTooFewRows, ErrDimensionMismatch, ErrNaNInf.
// Complexity: O(n·p²).
func Moments(rows [][]float64) ([]float64, *mat.SymDense, error) {
	n := len(rows)
	if n < 2 {
		return nil, nil, linalgErrorf(opMoments, ErrTooFewRows)
	}
	p := len(rows[0])
	if p == 0 {
		return nil, nil, linalgErrorf(opMoments, ErrDimensionMismatch)
	}
	data := make([]float64, 0, n*p)
	for _, r := range rows {
		if len(r) != p {
			return nil, nil, linalgErrorf(opMoments, ErrDimensionMismatch)
		}
		if err := ValidateFiniteVec(r); err != nil {
			return nil, nil, linalgErrorf(opMoments, err)
		}
		data = append(data, r...)
	}
	x := mat.NewDense(n, p, data)

	means := make([]float64, p)
	col := make([]float64, n)
	for j := 0; j < p; j++ {
		mat.Col(col, j, x)
		means[j] = stat.Mean(col, nil)
	}

	cov := mat.NewSymDense(p, nil)
	stat.CovarianceMatrix(cov, x, nil)
	cov.ScaleSym(float64(n-1)/float64(n), cov)

	return means, cov, nil
}
