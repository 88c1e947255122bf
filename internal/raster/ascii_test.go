package raster

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleASCII = `north: 200
south: 0
east: 300
west: 0
rows: 2
cols: 3
null: *
1 2 3
4 * 6
`

func TestReadASCII(t *testing.T) {
	ag, err := ReadASCII(strings.NewReader(sampleASCII))
	require.NoError(t, err)

	assert.Equal(t, 2, ag.Extent.Rows)
	assert.Equal(t, 3, ag.Extent.Cols)
	assert.Equal(t, 200.0, ag.Extent.North)
	assert.Equal(t, 300.0, ag.Extent.East)

	assert.Equal(t, 1.0, ag.Grid.At(0, 0))
	assert.Equal(t, 6.0, ag.Grid.At(1, 2))
	assert.True(t, IsNoData(ag.Grid.At(1, 1)))
}

func TestReadASCIIMissingHeader(t *testing.T) {
	_, err := ReadASCII(strings.NewReader("rows: 2\ncols: 2\n1 2\n3 4\n"))
	assert.Error(t, err)
}

func TestReadASCIIWrongCellCount(t *testing.T) {
	in := strings.Replace(sampleASCII, "4 * 6", "4 *", 1)
	_, err := ReadASCII(strings.NewReader(in))
	assert.Error(t, err)
}

func TestWriteReadRoundTrip(t *testing.T) {
	ag, err := ReadASCII(strings.NewReader(sampleASCII))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteASCII(&buf, ag.Grid, ag.Extent))

	back, err := ReadASCII(&buf)
	require.NoError(t, err)
	assert.Equal(t, ag.Extent, back.Extent)
	for row := 0; row < 2; row++ {
		for col := 0; col < 3; col++ {
			a, b := ag.Grid.At(row, col), back.Grid.At(row, col)
			if IsNoData(a) {
				assert.True(t, IsNoData(b))
			} else {
				assert.Equal(t, a, b)
			}
		}
	}
}
