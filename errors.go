package mmgsem

import (
	"github.com/katalvlaran/mmgsem/cluster"
	"github.com/katalvlaran/mmgsem/inference"
	"github.com/katalvlaran/mmgsem/syntax"
)

// Sentinel errors of the pipeline. The cluster, inference and syntax errors
// are the same values; Analyze wraps step-1 failures of the measurement
// package with the matching sentinel, so errors.Is works on either name.
var (
	// ErrInvalidModelSyntax reports a malformed or unsupported model string.
	ErrInvalidModelSyntax = syntax.ErrInvalidModelSyntax

	// ErrInvalidK reports a cluster count below 1, above the number of
	// groups, or outside a searched range.
	ErrInvalidK = cluster.ErrInvalidK

	// ErrNonConvergence flags a fit that hit its iteration limit. The fit is
	// returned alongside the error.
	ErrNonConvergence = cluster.ErrNonConvergence

	// ErrDegenerateCluster reports a cluster that emptied under the Fail
	// policy.
	ErrDegenerateCluster = cluster.ErrDegenerateCluster

	// ErrSingularInformation reports a non-invertible information matrix.
	ErrSingularInformation = inference.ErrSingularInformation

	// ErrDimensionMismatch reports inputs whose shapes disagree.
	ErrDimensionMismatch = cluster.ErrDimensionMismatch
)
