package selection_test

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/katalvlaran/mmgsem/cluster"
	"github.com/katalvlaran/mmgsem/selection"
	"github.com/katalvlaran/mmgsem/simulate"
	"github.com/katalvlaran/mmgsem/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fourClusters = [][]float64{
	{0.8, 0.0},
	{0.0, 0.8},
	{-0.6, 0.3},
	{0.3, -0.7},
}

func input(t *testing.T) *cluster.Input {
	t.Helper()
	model := syntax.MustParse(
		"F1 =~ x1 + x2 + x3\nF2 =~ x4 + x5 + x6\nF3 =~ x7 + x8 + x9",
		"F3 ~ F1 + F2",
	)
	fd, err := simulate.GenerateFactors(
		simulate.Population{Model: model, Coefficients: fourClusters},
		simulate.Design{GroupsPerCluster: 6, GroupSize: 150, Seed: 9},
	)
	require.NoError(t, err)
	in, err := cluster.NewInputFromPhi(model, fd.IDs, fd.N, fd.Phi)
	require.NoError(t, err)

	return in
}

func searchOptions(lo, hi int) selection.Options {
	opts := selection.DefaultOptions(lo, hi)
	opts.Cluster.Starts = 8
	opts.Cluster.Seed = 3
	opts.Workers = 3

	return opts
}

// TestSearch_ExtractEveryK covers the one-model-per-K contract.
func TestSearch_ExtractEveryK(t *testing.T) {
	res, err := selection.Search(context.Background(), input(t), searchOptions(1, 6))
	require.NoError(t, err)
	require.Len(t, res.Table, 6)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", res.RunID.String())

	for k := 1; k <= 6; k++ {
		m, err := res.Extract(k)
		require.NoError(t, err)
		assert.Equal(t, k, m.K)
		assert.Equal(t, int64(3), m.Seed)
		assert.Equal(t, k, res.Table[k-1].K)
	}
	for _, k := range []int{0, 7} {
		_, err := res.Extract(k)
		assert.ErrorIs(t, err, cluster.ErrInvalidK)
		_, err = res.Row(k)
		assert.ErrorIs(t, err, cluster.ErrInvalidK)
	}
}

// TestSearch_Criteria recomputes the information criteria from the table.
func TestSearch_Criteria(t *testing.T) {
	res, err := selection.Search(context.Background(), input(t), searchOptions(1, 6))
	require.NoError(t, err)

	for _, row := range res.Table {
		p := float64(row.Params)
		assert.Equal(t, -2*row.LogLik+p*math.Log(row.N), row.BIC, "K=%d", row.K)
		assert.Equal(t, -2*row.LogLik+p*math.Log(float64(row.Groups)), row.BICG)
		assert.Equal(t, -2*row.LogLik+2*p, row.AIC)
		assert.Equal(t, -2*row.LogLik+3*p, row.AIC3)
		assert.Equal(t, row.BIC+2*row.Entropy, row.ICL)
		assert.Equal(t, 24.0*150, row.N)
		assert.GreaterOrEqual(t, row.R2Entropy, 0.0)
		assert.LessOrEqual(t, row.R2Entropy, 1.0+1e-12)
	}

	k, err := res.Best(selection.BIC)
	require.NoError(t, err)
	assert.Equal(t, 4, k)

	one, _ := res.Row(1)
	four, _ := res.Row(4)
	assert.Greater(t, one.BIC, four.BIC)
	assert.Greater(t, four.LogLik, one.LogLik)

	hull, err := res.Best(selection.CHull)
	require.NoError(t, err)
	assert.Equal(t, 4, hull)
	assert.True(t, four.OnHull)
}

func TestSearch_InvalidRange(t *testing.T) {
	in := input(t)
	for _, r := range [][2]int{{0, 3}, {3, 2}, {1, 25}} {
		_, err := selection.Search(context.Background(), in, searchOptions(r[0], r[1]))
		assert.ErrorIs(t, err, cluster.ErrInvalidK, "range %v", r)
	}
}

// TestSearch_NonConvergenceKept keeps flagged fits in the table.
func TestSearch_NonConvergenceKept(t *testing.T) {
	opts := searchOptions(2, 3)
	opts.Cluster.MaxIterations = 2
	opts.Cluster.Tolerance = 0
	res, err := selection.Search(context.Background(), input(t), opts)
	require.NoError(t, err)
	for _, row := range res.Table {
		assert.False(t, row.Converged)
		assert.Equal(t, 2, row.Iterations)
	}
}

func TestSummary(t *testing.T) {
	res, err := selection.Search(context.Background(), input(t), searchOptions(1, 2))
	require.NoError(t, err)
	s := res.Summary()
	assert.Equal(t, res.RunID.String(), s.RunID)
	assert.Len(t, s.Groups, 24)
	assert.Equal(t, []string{"F3~F1", "F3~F2"}, s.Coefficients)

	m, ok := s.Model(2)
	require.True(t, ok)
	assert.Equal(t, 2, m.K)
	assert.Len(t, m.Coefficients, 2)
	assert.Len(t, m.Posterior, 24)
	_, ok = s.Model(3)
	assert.False(t, ok)

	_, err = json.Marshal(s)
	assert.NoError(t, err)
}

func TestConvexHull(t *testing.T) {
	pts := []selection.HullPoint{
		{Complexity: 4, Fit: -44},
		{Complexity: 1, Fit: -100},
		{Complexity: 3, Fit: -45},
		{Complexity: 2, Fit: -50},
		{Complexity: 5, Fit: -46}, // dominated by the model at 4
	}
	onHull, scree, sel := selection.ConvexHull(pts, selection.Parsimonious)
	assert.Equal(t, []bool{true, true, true, true, false}, onHull)
	assert.InDelta(t, 10.0, scree[3], 1e-12)
	assert.InDelta(t, 5.0, scree[2], 1e-12)
	assert.Zero(t, scree[1])
	assert.Equal(t, 3, sel)

	// a point under the chord leaves the hull
	under := []selection.HullPoint{{1, 0}, {2, 1}, {3, 4}, {4, 5}}
	onHull, _, _ = selection.ConvexHull(under, selection.Parsimonious)
	assert.Equal(t, []bool{true, false, true, true}, onHull)
}

func TestConvexHull_TieBreak(t *testing.T) {
	pts := []selection.HullPoint{{1, 0}, {2, 4}, {3, 6}, {4, 7}}
	_, scree, sel := selection.ConvexHull(pts, selection.Parsimonious)
	assert.Equal(t, scree[1], scree[2])
	assert.Equal(t, 1, sel)

	_, _, sel = selection.ConvexHull(pts, selection.Complex)
	assert.Equal(t, 2, sel)

	_, _, sel = selection.ConvexHull(pts[:2], selection.Parsimonious)
	assert.Equal(t, -1, sel)
}

func TestParseCriterion(t *testing.T) {
	for s, want := range map[string]selection.Criterion{
		"bic": selection.BIC, "BIC_G": selection.BICG, "bicg": selection.BICG,
		"aic3": selection.AIC3, "AICc": selection.AICc, "icl": selection.ICL, "chull": selection.CHull,
	} {
		got, err := selection.ParseCriterion(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}
	_, err := selection.ParseCriterion("dic")
	assert.Error(t, err)
	assert.Equal(t, "BIC_G", selection.BICG.String())
}
