package linalg_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/mmgsem/linalg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// spd3 returns a fixed, well-conditioned 3×3 SPD matrix.
func spd3() *mat.SymDense {
	return mat.NewSymDense(3, []float64{
		4, 1, 0.5,
		1, 3, 0.2,
		0.5, 0.2, 2,
	})
}

// TestInverse_RoundTrip verifies A·A⁻¹ = I and the log-determinant.
func TestInverse_RoundTrip(t *testing.T) {
	a := spd3()
	inv, logdet, err := linalg.Inverse(a)
	require.NoError(t, err)

	var prod mat.Dense
	prod.Mul(a, inv)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, prod.At(i, j), 1e-12, "A·A⁻¹ at (%d,%d)", i, j)
		}
	}
	assert.InDelta(t, math.Log(mat.Det(a)), logdet, 1e-12)
}

// TestInverse_NotPD ensures indefinite input yields ErrNotPositiveDefinite.
func TestInverse_NotPD(t *testing.T) {
	a := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	_, _, err := linalg.Inverse(a)
	assert.ErrorIs(t, err, linalg.ErrNotPositiveDefinite)

	_, err = linalg.LogDet(a)
	assert.ErrorIs(t, err, linalg.ErrNotPositiveDefinite)
}

// TestSolve checks A·x = b and the length guard.
func TestSolve(t *testing.T) {
	a := spd3()
	b := []float64{1, 2, 3}
	x, err := linalg.Solve(a, b)
	require.NoError(t, err)

	got := mat.NewVecDense(3, nil)
	got.MulVec(a, mat.NewVecDense(3, x))
	for i := range b {
		assert.InDelta(t, b[i], got.AtVec(i), 1e-12)
	}

	_, err = linalg.Solve(a, []float64{1})
	assert.ErrorIs(t, err, linalg.ErrDimensionMismatch)
}

// TestSubCrossQuad exercises the index-based helpers.
func TestSubCrossQuad(t *testing.T) {
	a := spd3()
	s := linalg.Sub(a, []int{2, 0})
	assert.Equal(t, 2.0, s.At(0, 0))
	assert.Equal(t, 0.5, s.At(0, 1))
	assert.Equal(t, 4.0, s.At(1, 1))

	assert.Equal(t, []float64{1, 0.2}, linalg.Cross(a, []int{0, 2}, 1))

	// xᵀAx with x = e0 + e1 = 4 + 3 + 2·1
	assert.InDelta(t, 9.0, linalg.QuadForm(a, []float64{1, 1, 0}), 1e-15)
}

// TestValidators covers the sentinel surface.
func TestValidators(t *testing.T) {
	assert.ErrorIs(t, linalg.ValidateSquare(mat.NewDense(2, 3, nil)), linalg.ErrNonSquare)
	assert.ErrorIs(t, linalg.ValidateSymmetric(mat.NewDense(2, 2, []float64{1, 2, 3, 1}), 1e-9), linalg.ErrAsymmetry)
	assert.ErrorIs(t, linalg.ValidateFinite(mat.NewDense(1, 1, []float64{math.NaN()})), linalg.ErrNaNInf)
	assert.ErrorIs(t, linalg.ValidateCovariance(spd3(), 2, linalg.DefaultEpsilon), linalg.ErrDimensionMismatch)
	assert.NoError(t, linalg.ValidateCovariance(spd3(), 3, linalg.DefaultEpsilon))
}

// TestSymmetrize averages the off-diagonal pair.
func TestSymmetrize(t *testing.T) {
	s, err := linalg.Symmetrize(mat.NewDense(2, 2, []float64{1, 2, 4, 1}))
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.At(0, 1))
	assert.Equal(t, 3.0, s.At(1, 0))

	_, err = linalg.Symmetrize(mat.NewDense(1, 2, nil))
	assert.ErrorIs(t, err, linalg.ErrNonSquare)
}

// TestVech_RoundTrip checks the lower-triangular ordering.
func TestVech_RoundTrip(t *testing.T) {
	a := spd3()
	v := linalg.Vech(a)
	assert.Equal(t, []float64{4, 1, 3, 0.5, 0.2, 2}, v)
	assert.Equal(t, 6, linalg.VechLen(3))

	b, err := linalg.Unvech(v, 3)
	require.NoError(t, err)
	assert.True(t, mat.Equal(a, b))

	_, err = linalg.Unvech(v, 2)
	assert.ErrorIs(t, err, linalg.ErrDimensionMismatch)
}

// TestMoments verifies ML (divisor n) covariance and the guards.
func TestMoments(t *testing.T) {
	rows := [][]float64{{1, 2}, {3, 6}, {5, 10}}
	means, cov, err := linalg.Moments(rows)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3, 6}, means, 1e-12)
	// deviations: x=(-2,0,2), y=(-4,0,4): var(x)=8/3, cov=16/3, var(y)=32/3
	assert.InDelta(t, 8.0/3, cov.At(0, 0), 1e-12)
	assert.InDelta(t, 16.0/3, cov.At(0, 1), 1e-12)
	assert.InDelta(t, 32.0/3, cov.At(1, 1), 1e-12)

	_, _, err = linalg.Moments(rows[:1])
	assert.ErrorIs(t, err, linalg.ErrTooFewRows)
	_, _, err = linalg.Moments([][]float64{{1, 2}, {1}})
	assert.ErrorIs(t, err, linalg.ErrDimensionMismatch)
	_, _, err = linalg.Moments([][]float64{{1, 2}, {1, math.Inf(1)}})
	assert.ErrorIs(t, err, linalg.ErrNaNInf)
}
