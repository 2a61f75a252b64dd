// Package linalg collects the small dense linear-algebra kernels shared by the
// estimation packages of mmgsem.
//
// The package is a thin, policy-carrying layer over gonum/mat:
//
//   - Validators (ValidateSquare, ValidateSymmetric, ValidateFinite) return
//     plain sentinels that callers wrap with an operation tag.
//   - Symmetric kernels (Inverse, Solve, LogDet, Sub, Cross, QuadForm) work on
//     mat.Symmetric and report ErrNotPositiveDefinite instead of panicking.
//   - Moments computes maximum-likelihood means and covariances from raw rows.
//   - Vech/Unvech convert between a symmetric matrix and its lower-triangular
//     half-vectorization, the parameterization used for factor covariances.
//
// Determinism:
//
//	Every routine uses fixed loop orders; results are reproducible bit-for-bit
//	for identical inputs.
package linalg
