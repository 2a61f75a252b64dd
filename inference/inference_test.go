package inference_test

import (
	"context"
	"testing"

	"github.com/katalvlaran/mmgsem/cluster"
	"github.com/katalvlaran/mmgsem/inference"
	"github.com/katalvlaran/mmgsem/measurement"
	"github.com/katalvlaran/mmgsem/simulate"
	"github.com/katalvlaran/mmgsem/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func twoStepModel(t *testing.T) *cluster.Model {
	t.Helper()
	model := syntax.MustParse("X =~ x1 + x2 + x3\nY =~ y1 + y2 + y3", "Y ~ X")
	ds, err := simulate.Generate(
		simulate.Population{Model: model, Coefficients: [][]float64{{0.1}, {0.8}}},
		simulate.Design{GroupsPerCluster: 3, GroupSize: 300, Seed: 8},
	)
	require.NoError(t, err)
	fit, err := measurement.Estimate(context.Background(), model, ds.Groups, measurement.DefaultOptions())
	require.NoError(t, err)
	in, err := cluster.NewInput(fit)
	require.NoError(t, err)
	m, err := cluster.Fit(context.Background(), in, cluster.DefaultOptions(2))
	require.NoError(t, err)

	return m
}

func threeClusterModel(t *testing.T) *cluster.Model {
	t.Helper()
	model := syntax.MustParse("F1 =~ a + b\nF2 =~ c + d\nF3 =~ e + f", "F3 ~ F1 + F2")
	data, err := simulate.GenerateFactors(
		simulate.Population{Model: model, Coefficients: [][]float64{{0.8, 0}, {0, 0.8}, {-0.5, -0.5}}},
		simulate.Design{GroupsPerCluster: 4, GroupSize: 200, Seed: 2},
	)
	require.NoError(t, err)
	in, err := cluster.NewInputFromPhi(model, data.IDs, data.N, data.Phi)
	require.NoError(t, err)
	m, err := cluster.Fit(context.Background(), in, cluster.DefaultOptions(3))
	require.NoError(t, err)

	return m
}

// TestComputeSE_NaiveVsFull reports the same parameters with different
// magnitudes.
func TestComputeSE_NaiveVsFull(t *testing.T) {
	m := twoStepModel(t)

	naive, err := inference.ComputeSE(context.Background(), m, inference.Options{Naive: true})
	require.NoError(t, err)
	full, err := inference.ComputeSE(context.Background(), m, inference.DefaultOptions())
	require.NoError(t, err)

	assert.True(t, naive.Naive)
	assert.Nil(t, naive.Full)
	assert.False(t, full.Naive)
	assert.True(t, full.Corrected)
	assert.NotNil(t, full.Full)

	assert.Equal(t, naive.Names, full.Names)
	assert.Equal(t, []string{"Y~X"}, full.Names)
	require.Len(t, naive.Table(), 2)
	require.Len(t, full.Table(), 2)

	differ := false
	for i, e := range naive.Table() {
		f := full.Table()[i]
		assert.Equal(t, e.Cluster, f.Cluster)
		assert.Equal(t, e.Name, f.Name)
		assert.Equal(t, e.Value, f.Value)
		assert.Greater(t, e.SE, 0.0)
		assert.Greater(t, f.SE, 0.0)
		if abs(e.SE-f.SE) > 1e-6*e.SE {
			differ = true
		}
	}
	assert.True(t, differ, "naive and full standard errors should differ")
}

// TestComputeSE_CorrectionInflates checks that the two-step term only adds
// variance.
func TestComputeSE_CorrectionInflates(t *testing.T) {
	m := twoStepModel(t)
	plain, err := inference.ComputeSE(context.Background(), m, inference.Options{})
	require.NoError(t, err)
	assert.False(t, plain.Corrected)

	corr, err := inference.ComputeSE(context.Background(), m, inference.DefaultOptions())
	require.NoError(t, err)
	for k := range corr.SE {
		for i := range corr.SE[k] {
			assert.GreaterOrEqual(t, corr.SE[k][i], plain.SE[k][i]*(1-1e-9))
		}
	}
}

func TestComputeSE_WithoutStep1(t *testing.T) {
	m := threeClusterModel(t)
	se, err := inference.ComputeSE(context.Background(), m, inference.DefaultOptions())
	require.NoError(t, err)
	assert.False(t, se.Corrected)
	assert.Equal(t, 3, se.K)
	assert.Len(t, se.Coefficients, 3)

	e, err := se.Lookup(1, "F3~F2")
	require.NoError(t, err)
	assert.Equal(t, se.Coefficients[1][1], e.Value)
	_, err = se.Lookup(3, "F3~F2")
	assert.ErrorIs(t, err, inference.ErrUnknownParameter)
	_, err = se.Lookup(0, "F2~F1")
	assert.ErrorIs(t, err, inference.ErrUnknownParameter)
}

// TestTest_PairwiseCount covers the K(K−1)/2 pairwise tests and the
// degrees of freedom.
func TestTest_PairwiseCount(t *testing.T) {
	m := threeClusterModel(t)
	se, err := inference.ComputeSE(context.Background(), m, inference.Options{Naive: true})
	require.NoError(t, err)

	res, err := inference.Test(m, se, inference.TestOptions{MultipleComparison: true})
	require.NoError(t, err)
	assert.Equal(t, 2*2, res.Omnibus.DF)
	assert.Less(t, res.Omnibus.PValue, 1e-6)
	require.Len(t, res.Parameters, 2)
	for _, p := range res.Parameters {
		assert.Equal(t, 2, p.DF)
	}
	require.Len(t, res.Pairwise, 3*2/2)
	seen := map[[2]int]bool{}
	for _, p := range res.Pairwise {
		assert.Equal(t, 2, p.DF)
		assert.Less(t, p.A, p.B)
		seen[[2]int{p.A, p.B}] = true
		assert.GreaterOrEqual(t, p.Adjusted, p.PValue)
		assert.LessOrEqual(t, p.Adjusted, 1.0)
	}
	assert.Len(t, seen, 3)

	single, err := inference.Test(m, se, inference.TestOptions{})
	require.NoError(t, err)
	assert.Empty(t, single.Pairwise)
	assert.Equal(t, res.Omnibus.Statistic, single.Omnibus.Statistic)
}

// TestTest_Holm applies the step-down adjustment.
func TestTest_Holm(t *testing.T) {
	m := threeClusterModel(t)
	se, err := inference.ComputeSE(context.Background(), m, inference.Options{Naive: true})
	require.NoError(t, err)
	res, err := inference.Test(m, se, inference.TestOptions{MultipleComparison: true, Correction: inference.Holm})
	require.NoError(t, err)
	assert.Equal(t, inference.Holm, res.Correction)
	for _, p := range res.Pairwise {
		assert.GreaterOrEqual(t, p.Adjusted, p.PValue)
	}
}

func TestTest_Errors(t *testing.T) {
	m := threeClusterModel(t)
	se, err := inference.ComputeSE(context.Background(), m, inference.Options{Naive: true})
	require.NoError(t, err)

	in := m.Input
	one, err := cluster.Fit(context.Background(), in, cluster.DefaultOptions(1))
	require.NoError(t, err)
	seOne, err := inference.ComputeSE(context.Background(), one, inference.Options{Naive: true})
	require.NoError(t, err)

	_, err = inference.Test(one, seOne, inference.TestOptions{})
	assert.ErrorIs(t, err, cluster.ErrInvalidK)
	_, err = inference.Test(one, se, inference.TestOptions{})
	assert.ErrorIs(t, err, cluster.ErrDimensionMismatch)

	c, err := inference.ParseCorrection("HOLM")
	require.NoError(t, err)
	assert.Equal(t, inference.Holm, c)
	_, err = inference.ParseCorrection("sidak")
	assert.Error(t, err)
}

// TestComputeSE_SingularInformation covers an empty cluster (naive blocks)
// and a group carrying no observations (observed information).
func TestComputeSE_SingularInformation(t *testing.T) {
	ctx := context.Background()

	m := threeClusterModel(t)
	post := mat.DenseCopyOf(m.Posterior)
	g, _ := post.Dims()
	for i := 0; i < g; i++ {
		post.Set(i, 0, post.At(i, 0)+post.At(i, 2))
		post.Set(i, 2, 0)
	}
	m.Posterior = post
	_, err := inference.ComputeSE(ctx, m, inference.Options{Naive: true})
	assert.ErrorIs(t, err, inference.ErrSingularInformation)

	m = threeClusterModel(t)
	in := *m.Input
	in.Groups = append([]cluster.Group(nil), in.Groups...)
	in.Groups[0].N = 0
	m.Input = &in
	_, err = inference.ComputeSE(ctx, m, inference.DefaultOptions())
	assert.ErrorIs(t, err, inference.ErrSingularInformation)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}

	return x
}
