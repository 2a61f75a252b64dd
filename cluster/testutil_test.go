package cluster_test

import (
	"testing"

	"github.com/katalvlaran/mmgsem/cluster"
	"github.com/katalvlaran/mmgsem/simulate"
	"github.com/katalvlaran/mmgsem/syntax"
	"github.com/stretchr/testify/require"
)

// fourClusters are well-separated coefficient vectors for F3 ~ F1 + F2.
var fourClusters = [][]float64{
	{0.8, 0.0},
	{0.0, 0.8},
	{-0.6, 0.3},
	{0.3, -0.7},
}

func pathModel() *syntax.Model {
	return syntax.MustParse(
		"F1 =~ x1 + x2 + x3\nF2 =~ x4 + x5 + x6\nF3 =~ x7 + x8 + x9",
		"F3 ~ F1 + F2",
	)
}

// fixture builds an Input from factor-level data of the given clusters.
func fixture(t testing.TB, coef [][]float64, perCluster, size int) (*cluster.Input, []int) {
	t.Helper()
	model := pathModel()
	fd, err := simulate.GenerateFactors(
		simulate.Population{Model: model, Coefficients: coef},
		simulate.Design{GroupsPerCluster: perCluster, GroupSize: size, Seed: 42},
	)
	require.NoError(t, err)
	in, err := cluster.NewInputFromPhi(model, fd.IDs, fd.N, fd.Phi)
	require.NoError(t, err)

	return in, fd.Cluster
}

func options(k int) cluster.Options {
	opts := cluster.DefaultOptions(k)
	opts.Starts = 10
	opts.Seed = 7

	return opts
}

// samePartition reports whether two labelings agree up to relabeling.
func samePartition(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	ab, ba := map[int]int{}, map[int]int{}
	for i := range a {
		if v, ok := ab[a[i]]; ok && v != b[i] {
			return false
		}
		if v, ok := ba[b[i]]; ok && v != a[i] {
			return false
		}
		ab[a[i]], ba[b[i]] = b[i], a[i]
	}

	return true
}
