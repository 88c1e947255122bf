package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testExtent(rows, cols int) Extent {
	return Extent{
		Rows: rows, Cols: cols,
		North: float64(rows) * 100, South: 0,
		East: float64(cols) * 100, West: 0,
	}
}

func TestParseNoDataPolicy(t *testing.T) {
	cases := []struct {
		in      string
		want    NoDataPolicy
		wantErr bool
	}{
		{"propagate", PropagateNoData, false},
		{"zero", ZeroNoData, false},
		{"", PropagateNoData, false},
		{"bogus", "", true},
	}
	for _, tc := range cases {
		got, err := ParseNoDataPolicy(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestCellGeometry(t *testing.T) {
	e := testExtent(2, 4)
	assert.Equal(t, 100.0, e.CellWidth())
	assert.Equal(t, 100.0, e.CellHeight())

	x, y := e.CellCenter(0, 0)
	assert.Equal(t, 50.0, x)
	assert.Equal(t, 150.0, y) // row 0 is the northernmost row

	x, y = e.CellCenter(1, 3)
	assert.Equal(t, 350.0, x)
	assert.Equal(t, 50.0, y)
}

func TestNewRunContextValidation(t *testing.T) {
	_, err := NewRunContext(Extent{}, nil, PropagateNoData, 1)
	assert.Error(t, err)

	mask := New(3, 3)
	_, err = NewRunContext(testExtent(2, 2), mask, PropagateNoData, 1)
	var alignErr *AlignmentError
	assert.ErrorAs(t, err, &alignErr)

	rc, err := NewRunContext(testExtent(2, 2), nil, PropagateNoData, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, rc.Workers)
}

func TestApplyMask(t *testing.T) {
	mask, err := FromValues(2, 2, []float64{1, 0, NoData(), 1})
	require.NoError(t, err)
	rc, err := NewRunContext(testExtent(2, 2), mask, PropagateNoData, 1)
	require.NoError(t, err)

	g := NewFilled(2, 2, 5)
	out := rc.ApplyMask(g)

	assert.Equal(t, 5.0, out.At(0, 0))
	assert.True(t, IsNoData(out.At(0, 1)))
	assert.True(t, IsNoData(out.At(1, 0)))
	assert.Equal(t, 5.0, out.At(1, 1))

	// input untouched
	assert.Equal(t, 5.0, g.At(0, 1))
}

func TestApplyMaskNilMask(t *testing.T) {
	rc, err := NewRunContext(testExtent(2, 2), nil, PropagateNoData, 1)
	require.NoError(t, err)
	g := NewFilled(2, 2, 5)
	assert.Same(t, g, rc.ApplyMask(g))
}
