package syntax_test

import (
	"errors"
	"testing"

	"github.com/katalvlaran/mmgsem/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const s1 = `
# four factors, three indicators each
F1 =~ x1 + x2 + x3
F2 =~ x4 + x5 + x6
F3 =~ x7 + x8 + x9
F4 =~ x10 + x11 + x12
`

// TestParse_Basic checks indices, markers and equation order.
func TestParse_Basic(t *testing.T) {
	m, err := syntax.Parse(s1, "F4 ~ F3 + F2\nF3 ~ F1; F2 ~ F1")
	require.NoError(t, err)

	assert.Equal(t, []string{"F1", "F2", "F3", "F4"}, m.Factors())
	assert.Equal(t, 12, m.NumIndicators())
	assert.Equal(t, 4, m.NumFactors())
	assert.Equal(t, 0, m.Marker(0))
	assert.Equal(t, 9, m.Marker(3))
	assert.True(t, m.Loads(4, 1))
	assert.False(t, m.Loads(4, 0))
	assert.Equal(t, 8, m.FreeLoadings())

	// F4 depends on F3 and F2, so it must come last.
	eqs := m.Equations()
	require.Len(t, eqs, 3)
	assert.Equal(t, 3, eqs[2].Outcome)
	assert.Equal(t, []int{0}, m.Exogenous())
	assert.ElementsMatch(t, []int{1, 2, 3}, m.Endogenous())
	assert.Equal(t, 4, m.NumCoefficients())
	assert.Len(t, m.CoefficientNames(), 4)
	assert.Contains(t, m.CoefficientNames(), "F4~F3")
}

// TestParse_MergesRepeatedOutcome verifies lavaan-style merging.
func TestParse_MergesRepeatedOutcome(t *testing.T) {
	m, err := syntax.Parse(s1, "F4 ~ F1\nF4 ~ F2 + F3")
	require.NoError(t, err)
	regs := m.Regressions()
	require.Len(t, regs, 1)
	assert.Equal(t, []string{"F1", "F2", "F3"}, regs[0].Predictors)
	assert.Equal(t, []string{"F4~F1", "F4~F2", "F4~F3"}, m.CoefficientNames())
}

// TestParse_CrossLoading keeps a free loading for a non-marker position.
func TestParse_CrossLoading(t *testing.T) {
	m, err := syntax.Parse("F1 =~ a + b + c\nF2 =~ d + e + c", "F2 ~ F1")
	require.NoError(t, err)
	ci, ok := m.IndicatorIndex("c")
	require.True(t, ok)
	assert.True(t, m.Loads(ci, 0))
	assert.True(t, m.Loads(ci, 1))
	assert.Equal(t, 5, m.NumIndicators())
}

// TestParse_Errors walks the rejection table; every case must unwrap to the sentinel.
func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name   string
		s1, s2 string
	}{
		{"empty S1", "", "F2 ~ F1"},
		{"empty S2", "F1 =~ a + b\nF2 =~ c + d", "  # nothing"},
		{"no operator", "F1 a + b", "F2 ~ F1"},
		{"bad factor", "1F =~ a + b", "F2 ~ F1"},
		{"empty term", "F1 =~ a + + b\nF2 =~ c + d", "F2 ~ F1"},
		{"duplicate indicator", "F1 =~ a + a\nF2 =~ c + d", "F2 ~ F1"},
		{"duplicate factor", "F1 =~ a + b\nF1 =~ c + d", "F1 ~ F1"},
		{"covariance op", "F1 =~ a + b\nF1 ~~ F1", "F1 ~ F1"},
		{"modifier", "F1 =~ 1*a + b\nF2 =~ c + d", "F2 ~ F1"},
		{"loading in S2", "F1 =~ a + b\nF2 =~ c + d", "F2 =~ F1"},
		{"unknown factor", "F1 =~ a + b\nF2 =~ c + d", "F3 ~ F1"},
		{"self regression", "F1 =~ a + b\nF2 =~ c + d", "F2 ~ F2"},
		{"duplicate predictor", "F1 =~ a + b\nF2 =~ c + d", "F2 ~ F1\nF2 ~ F1"},
		{"cycle", "F1 =~ a + b\nF2 =~ c + d\nF3 =~ e + f", "F2 ~ F1\nF3 ~ F2\nF1 ~ F3"},
		{"indicator is factor", "F1 =~ a + F2\nF2 =~ c + d", "F2 ~ F1"},
		{"shared marker", "F1 =~ a + b\nF2 =~ a + d", "F2 ~ F1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := syntax.Parse(tc.s1, tc.s2)
			require.Error(t, err)
			assert.ErrorIs(t, err, syntax.ErrInvalidModelSyntax)

			var se *syntax.SyntaxError
			assert.True(t, errors.As(err, &se), "error should be a *SyntaxError")
		})
	}
}

// TestSyntaxError_Location reports the statement number.
func TestSyntaxError_Location(t *testing.T) {
	_, err := syntax.Parse("F1 =~ a + b; F2 c + d", "F2 ~ F1")
	var se *syntax.SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, syntax.Measurement, se.Section)
	assert.Equal(t, 2, se.Line)
	assert.Equal(t, "F2 c + d", se.Text)
}

// TestMustParse_Panics on invalid input.
func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { syntax.MustParse("F1", "F2") })
}
