package measurement

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/mmgsem/linalg"
)

// NewGroupData summarizes raw observations (rows × indicators) of one group.
func NewGroupData(id string, rows [][]float64) (GroupData, error) {
	if len(rows) < 2 {
		return GroupData{}, fmt.Errorf("group %q: %w", id, ErrTooFewObservations)
	}
	means, cov, err := linalg.Moments(rows)
	if err != nil {
		return GroupData{}, fmt.Errorf("group %q: %w", id, err)
	}

	return GroupData{ID: id, N: len(rows), Means: means, Cov: cov}, nil
}

// NewGroupMoments builds a GroupData from precomputed moments. cov must be
// the maximum-likelihood covariance of the group (divisor n).
func NewGroupMoments(id string, n int, means []float64, cov *mat.SymDense) (GroupData, error) {
	if n < 2 {
		return GroupData{}, fmt.Errorf("group %q: %w", id, ErrTooFewObservations)
	}
	if cov == nil || len(means) != cov.SymmetricDim() {
		return GroupData{}, fmt.Errorf("group %q: means/covariance: %w", id, ErrDimensionMismatch)
	}
	if err := linalg.ValidateCovariance(cov, len(means), linalg.DefaultEpsilon); err != nil {
		return GroupData{}, fmt.Errorf("group %q: %w", id, err)
	}

	c := mat.NewSymDense(len(means), nil)
	c.CopySym(cov)

	return GroupData{ID: id, N: n, Means: append([]float64(nil), means...), Cov: c}, nil
}

// TotalN sums the group sizes.
func TotalN(groups []GroupData) int {
	n := 0
	for _, g := range groups {
		n += g.N
	}

	return n
}
