package measurement_test

import (
	"context"
	"testing"

	"github.com/katalvlaran/mmgsem/measurement"
	"github.com/katalvlaran/mmgsem/simulate"
	"github.com/katalvlaran/mmgsem/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func twoFactor() *syntax.Model {
	return syntax.MustParse("F1 =~ x1 + x2 + x3\nF2 =~ x4 + x5 + x6", "F2 ~ F1")
}

func sample(t *testing.T, groups, size int) *simulate.Dataset {
	t.Helper()
	ds, err := simulate.Generate(
		simulate.Population{Model: twoFactor(), Coefficients: [][]float64{{0.6}}},
		simulate.Design{GroupsPerCluster: groups, GroupSize: size, Seed: 11},
	)
	require.NoError(t, err)

	return ds
}

func testOptions() measurement.Options {
	opts := measurement.DefaultOptions()
	opts.Tolerance = 1e-9

	return opts
}

// TestEstimate_RecoversPopulation checks loadings and factor covariances.
func TestEstimate_RecoversPopulation(t *testing.T) {
	ds := sample(t, 4, 500)
	fit, err := measurement.Estimate(context.Background(), twoFactor(), ds.Groups, testOptions())
	require.NoError(t, err)
	require.True(t, fit.Converged)

	// markers fixed, free loadings near 0.8
	assert.Equal(t, 1.0, fit.Loadings.At(0, 0))
	assert.Equal(t, 1.0, fit.Loadings.At(3, 1))
	assert.Equal(t, 0.0, fit.Loadings.At(0, 1))
	for _, i := range []int{1, 2} {
		assert.InDelta(t, simulate.DefaultLoading, fit.Loadings.At(i, 0), 0.1)
	}
	for _, i := range []int{4, 5} {
		assert.InDelta(t, simulate.DefaultLoading, fit.Loadings.At(i, 1), 0.1)
	}
	for _, g := range fit.Groups {
		assert.InDelta(t, 1.0, g.Phi.At(0, 0), 0.25, "var(F1) in %s", g.ID)
		assert.InDelta(t, 0.6, g.Phi.At(1, 0), 0.2, "cov(F1,F2) in %s", g.ID)
		for _, th := range g.Theta {
			assert.Greater(t, th, 0.0)
		}
	}
}

// TestEstimate_LogLikConsistent ties LogLik to GroupLogLik and NewFit.
func TestEstimate_LogLikConsistent(t *testing.T) {
	ds := sample(t, 2, 200)
	fit, err := measurement.Estimate(context.Background(), twoFactor(), ds.Groups, testOptions())
	require.NoError(t, err)

	var sum float64
	for g := range fit.Groups {
		llg, err := fit.GroupLogLik(g, fit.Groups[g].Phi)
		require.NoError(t, err)
		sum += llg
	}
	assert.InDelta(t, fit.LogLik, sum, 1e-6)

	again, err := measurement.NewFit(twoFactor(), fit.Loadings, fit.Groups)
	require.NoError(t, err)
	assert.InDelta(t, fit.LogLik, again.LogLik, 1e-6)
	assert.Equal(t, 400, again.TotalN())
	// 4 free loadings + 2 groups × (6 θ + 6 τ + 3 Φ)
	assert.Equal(t, 4+2*15, again.ParamCount())
}

// TestEstimate_NonConvergenceFlagged returns the fit together with the error.
func TestEstimate_NonConvergenceFlagged(t *testing.T) {
	ds := sample(t, 2, 100)
	opts := testOptions()
	opts.MaxIterations = 2
	opts.Tolerance = 0
	fit, err := measurement.Estimate(context.Background(), twoFactor(), ds.Groups, opts)
	assert.ErrorIs(t, err, measurement.ErrNonConvergence)
	require.NotNil(t, fit)
	assert.False(t, fit.Converged)
	assert.Equal(t, 2, fit.Iterations)
}

// TestEstimate_Errors covers the input guards.
func TestEstimate_Errors(t *testing.T) {
	_, err := measurement.Estimate(context.Background(), twoFactor(), nil, testOptions())
	assert.ErrorIs(t, err, measurement.ErrNoGroups)

	bad, err := measurement.NewGroupMoments("g", 10, []float64{0, 0}, mat.NewSymDense(2, []float64{1, 0, 0, 1}))
	require.NoError(t, err)
	_, err = measurement.Estimate(context.Background(), twoFactor(), []measurement.GroupData{bad}, testOptions())
	assert.ErrorIs(t, err, measurement.ErrDimensionMismatch)

	_, err = measurement.NewGroupData("tiny", [][]float64{{1, 2}})
	assert.ErrorIs(t, err, measurement.ErrTooFewObservations)

	_, err = measurement.NewGroupMoments("g", 10, []float64{0}, mat.NewSymDense(2, nil))
	assert.ErrorIs(t, err, measurement.ErrDimensionMismatch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = measurement.Estimate(ctx, twoFactor(), sample(t, 1, 50).Groups, testOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

// TestNewFit_Validation rejects malformed external estimates.
func TestNewFit_Validation(t *testing.T) {
	m := twoFactor()
	_, err := measurement.NewFit(m, mat.NewDense(6, 2, nil), nil)
	assert.ErrorIs(t, err, measurement.ErrNoGroups)

	g := measurement.GroupFit{ID: "g", N: 10, Theta: make([]float64, 6), Phi: mat.NewSymDense(2, []float64{1, 0, 0, 1}), Cov: mat.NewSymDense(6, nil)}
	_, err = measurement.NewFit(m, mat.NewDense(5, 2, nil), []measurement.GroupFit{g})
	assert.ErrorIs(t, err, measurement.ErrDimensionMismatch)

	g.Theta = g.Theta[:3]
	_, err = measurement.NewFit(m, mat.NewDense(6, 2, nil), []measurement.GroupFit{g})
	assert.ErrorIs(t, err, measurement.ErrDimensionMismatch)
}
