// SPDX-License-Identifier: MIT
// Package: linalg
//
// Purpose:
//   - One canonical place for the shape, symmetry and finiteness guards used by
//     the estimators.
//   - Return plain sentinels; call sites wrap them with their own tag.

package linalg

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultEpsilon is the absolute tolerance used by ValidateSymmetric callers
// that have no better-informed value.
const DefaultEpsilon = 1e-9

// ValidateSquare checks that m has as many rows as columns.
// Complexity: O(1).
func ValidateSquare(m mat.Matrix) error {
	r, c := m.Dims()
	if r != c {
		return ErrNonSquare
	}

	return nil
}

// ValidateSymmetric checks |m[i,j] - m[j,i]| <= eps on the strict upper
// triangle. Square shape is checked first.
// Complexity: O(n²).
func ValidateSymmetric(m mat.Matrix, eps float64) error {
	if err := ValidateSquare(m); err != nil {
		return err
	}
	n, _ := m.Dims()
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if math.Abs(m.At(i, j)-m.At(j, i)) > eps {
				return ErrAsymmetry
			}
		}
	}

	return nil
}

// ValidateFinite rejects any NaN or ±Inf entry.
// Complexity: O(r·c).
func ValidateFinite(m mat.Matrix) error {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return ErrNaNInf
			}
		}
	}

	return nil
}

// ValidateFiniteVec is ValidateFinite for plain slices.
func ValidateFiniteVec(v []float64) error {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ErrNaNInf
		}
	}

	return nil
}

// ValidateCovariance is the composite guard applied to every covariance
// matrix entering the estimators: square, symmetric within eps, finite and
// of dimension n.
func ValidateCovariance(m mat.Matrix, n int, eps float64) error {
	if err := ValidateSymmetric(m, eps); err != nil {
		return err
	}
	if r, _ := m.Dims(); r != n {
		return ErrDimensionMismatch
	}

	return ValidateFinite(m)
}
