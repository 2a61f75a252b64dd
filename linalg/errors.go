// SPDX-License-Identifier: MIT

package linalg

import (
	"errors"
	"fmt"
)

// Sentinel errors. Kernels return them wrapped with an operation tag via
// linalgErrorf; callers match with errors.Is.
var (
	// ErrDimensionMismatch indicates incompatible operand shapes.
	ErrDimensionMismatch = errors.New("linalg: dimension mismatch")

	// ErrNonSquare signals that a square matrix was required.
	ErrNonSquare = errors.New("linalg: matrix is not square")

	// ErrAsymmetry signals a violated symmetry requirement (within eps).
	ErrAsymmetry = errors.New("linalg: matrix is not symmetric within eps")

	// ErrNaNInf signals a NaN or ±Inf where finite values are required.
	ErrNaNInf = errors.New("linalg: NaN or Inf encountered")

	// ErrNotPositiveDefinite is returned when a Cholesky factorization fails.
	ErrNotPositiveDefinite = errors.New("linalg: matrix is not positive definite")

	// ErrTooFewRows is returned by Moments when fewer than two rows are given.
	ErrTooFewRows = errors.New("linalg: at least two rows are required")
)

// Operation tags used in error wrapping.
const (
	opInverse  = "Inverse"
	opSolve    = "Solve"
	opLogDet   = "LogDet"
	opMoments  = "Moments"
	opUnvech   = "Unvech"
	opSymmetry = "Symmetrize"
)

// linalgErrorf wraps err with an operation tag, keeping errors.Is intact.
// Call only with a non-nil err.
func linalgErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}
