package dataset_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/mmgsem/dataset"
)

const sample = `id,country,a,b
1,NL,1.0,2.0
2,BE,2.0,2.5
3,NL,3.0,4.0
4,BE,NA,1.0
5,BE,4.0,3.5
6,NL,2.0,3.0
`

func TestRead_GroupsAndListwise(t *testing.T) {
	d, err := dataset.Read(strings.NewReader(sample), dataset.Options{
		GroupColumn: "country", Indicators: []string{"a", "b"}, Listwise: true,
	})
	require.NoError(t, err)
	require.Len(t, d.Groups, 2)
	assert.Equal(t, "NL", d.Groups[0].ID)
	assert.Equal(t, "BE", d.Groups[1].ID)
	assert.Equal(t, 3, d.Groups[0].N)
	assert.Equal(t, 2, d.Groups[1].N)
	assert.Equal(t, 1, d.Dropped)
	assert.InDeltaSlice(t, []float64{2, 3}, d.Groups[0].Means, 1e-12)
	// ML variance of a in NL: values 1,3,2
	assert.InDelta(t, 2.0/3.0, d.Groups[0].Cov.At(0, 0), 1e-12)
}

func TestRead_Errors(t *testing.T) {
	_, err := dataset.Read(strings.NewReader(sample), dataset.Options{GroupColumn: "region", Indicators: []string{"a"}})
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)

	_, err = dataset.Read(strings.NewReader(sample), dataset.Options{GroupColumn: "country", Indicators: []string{"a", "z"}})
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)

	_, err = dataset.Read(strings.NewReader(sample), dataset.Options{GroupColumn: "country", Indicators: []string{"a", "b"}})
	assert.ErrorIs(t, err, dataset.ErrMissingValue)

	bad := "g,a\nx,1\nx,oops\n"
	_, err = dataset.Read(strings.NewReader(bad), dataset.Options{GroupColumn: "g", Indicators: []string{"a"}})
	assert.ErrorIs(t, err, dataset.ErrBadValue)

	// a group with one observation has no covariance
	_, err = dataset.Read(strings.NewReader("g,a\nx,1\nx,2\ny,3\n"), dataset.Options{GroupColumn: "g", Indicators: []string{"a"}})
	assert.Error(t, err)
}

func TestWriteRead(t *testing.T) {
	rows := [][][]float64{
		{{1, 2}, {2, 1}, {0.5, 0.25}},
		{{-1, 3}, {4, 4}},
	}
	var buf bytes.Buffer
	require.NoError(t, dataset.Write(&buf, "grp", []string{"u", "v"}, []string{"g1", "g2"}, rows))
	assert.True(t, strings.HasPrefix(buf.String(), "grp,u,v\n"))

	d, err := dataset.Read(&buf, dataset.Options{GroupColumn: "grp", Indicators: []string{"v", "u"}})
	require.NoError(t, err)
	require.Len(t, d.Rows, 2)
	assert.Equal(t, [][]float64{{2, 1}, {1, 2}, {0.25, 0.5}}, d.Rows[0])

	assert.Error(t, dataset.Write(&buf, "grp", []string{"u"}, []string{"g1"}, rows))
}
