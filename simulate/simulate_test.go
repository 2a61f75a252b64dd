package simulate_test

import (
	"testing"

	"github.com/katalvlaran/mmgsem/simulate"
	"github.com/katalvlaran/mmgsem/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoFactor() *syntax.Model {
	return syntax.MustParse("F1 =~ x1 + x2 + x3\nF2 =~ x4 + x5 + x6", "F2 ~ F1")
}

// TestGenerate_ShapeAndDeterminism checks group layout and seed reproducibility.
func TestGenerate_ShapeAndDeterminism(t *testing.T) {
	pop := simulate.Population{Model: twoFactor(), Coefficients: [][]float64{{0.2}, {0.8}}}
	d := simulate.Design{GroupsPerCluster: 3, GroupSize: 50, Seed: 7}

	a, err := simulate.Generate(pop, d)
	require.NoError(t, err)
	require.Len(t, a.Groups, 6)
	assert.Equal(t, []int{0, 0, 0, 1, 1, 1}, a.Cluster)
	assert.Equal(t, "g4", a.Groups[3].ID)
	assert.Len(t, a.Rows[0], 50)
	assert.Len(t, a.Rows[0][0], 6)

	b, err := simulate.Generate(pop, d)
	require.NoError(t, err)
	assert.Equal(t, a.Rows, b.Rows, "same seed must give identical data")
}

// TestGenerate_Errors covers the design/population guards.
func TestGenerate_Errors(t *testing.T) {
	_, err := simulate.Generate(simulate.Population{Model: twoFactor(), Coefficients: [][]float64{{0.1}}}, simulate.Design{GroupsPerCluster: 0, GroupSize: 10})
	assert.ErrorIs(t, err, simulate.ErrBadDesign)

	_, err = simulate.Generate(simulate.Population{Model: twoFactor(), Coefficients: [][]float64{{0.1, 0.2}}}, simulate.Design{GroupsPerCluster: 1, GroupSize: 10})
	assert.ErrorIs(t, err, simulate.ErrBadPopulation)

	_, err = simulate.Generate(simulate.Population{Model: twoFactor()}, simulate.Design{GroupsPerCluster: 1, GroupSize: 10})
	assert.ErrorIs(t, err, simulate.ErrBadPopulation)
}

// TestGenerateFactors_Regression checks that the factor covariances carry the
// cluster coefficients.
func TestGenerateFactors_Regression(t *testing.T) {
	pop := simulate.Population{Model: twoFactor(), Coefficients: [][]float64{{0.0}, {0.9}}}
	fd, err := simulate.GenerateFactors(pop, simulate.Design{GroupsPerCluster: 2, GroupSize: 4000, Seed: 3})
	require.NoError(t, err)
	require.Len(t, fd.Phi, 4)
	assert.Equal(t, []int{0, 0, 1, 1}, fd.Cluster)
	assert.Equal(t, 4000, fd.N[0])

	for g, phi := range fd.Phi {
		slope := phi.At(1, 0) / phi.At(0, 0)
		want := pop.Coefficients[fd.Cluster[g]][0]
		assert.InDelta(t, want, slope, 0.06, "group %s", fd.IDs[g])
	}
}
