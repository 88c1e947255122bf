package raster

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapCellsSkipsNoData(t *testing.T) {
	g := NewFilled(3, 3, 2)
	g.Set(1, 1, NoData())

	out, err := MapCells(context.Background(), 2, g, func(v float64) float64 { return v * 10 })
	require.NoError(t, err)

	assert.Equal(t, 20.0, out.At(0, 0))
	assert.True(t, IsNoData(out.At(1, 1)))
	assert.Equal(t, 8, out.ValidCount())
}

func TestMapCellsErrAborts(t *testing.T) {
	g := NewFilled(2, 2, 1)
	g.Set(1, 1, 42)

	_, err := MapCellsErr(context.Background(), 1, g, func(v float64) (float64, error) {
		if v == 42 {
			return 0, eris.New("bad cell")
		}
		return v, nil
	})
	assert.Error(t, err)
}

func TestMapCellsDeterministicAcrossWorkers(t *testing.T) {
	g := New(17, 13)
	for row := 0; row < g.Rows(); row++ {
		for col := 0; col < g.Cols(); col++ {
			g.Set(row, col, float64(row*13+col))
		}
	}

	one, err := MapCells(context.Background(), 1, g, func(v float64) float64 { return v * 0.1 })
	require.NoError(t, err)
	eight, err := MapCells(context.Background(), 8, g, func(v float64) float64 { return v * 0.1 })
	require.NoError(t, err)

	for row := 0; row < g.Rows(); row++ {
		for col := 0; col < g.Cols(); col++ {
			assert.Equal(t, one.At(row, col), eight.At(row, col))
		}
	}
}

func TestCombineShapeMismatch(t *testing.T) {
	a := New(2, 2)
	b := New(2, 3)
	_, err := Combine(context.Background(), 1, func(vs []float64) float64 { return 0 }, a, b)
	var alignErr *AlignmentError
	require.ErrorAs(t, err, &alignErr)
}

func TestSumPropagatePolicy(t *testing.T) {
	a := NewFilled(2, 2, 1)
	b := NewFilled(2, 2, 2)
	b.Set(0, 1, NoData())

	out, err := Sum(context.Background(), 1, PropagateNoData, a, b)
	require.NoError(t, err)

	assert.Equal(t, 3.0, out.At(0, 0))
	assert.True(t, IsNoData(out.At(0, 1)))
}

func TestSumZeroPolicy(t *testing.T) {
	a := NewFilled(2, 2, 1)
	b := NewFilled(2, 2, 2)
	b.Set(0, 1, NoData())

	out, err := Sum(context.Background(), 1, ZeroNoData, a, b)
	require.NoError(t, err)

	assert.Equal(t, 3.0, out.At(0, 0))
	assert.Equal(t, 1.0, out.At(0, 1))
}

func TestSumZeroPolicyAllNoData(t *testing.T) {
	a := New(1, 1)
	b := New(1, 1)

	out, err := Sum(context.Background(), 1, ZeroNoData, a, b)
	require.NoError(t, err)
	assert.True(t, IsNoData(out.At(0, 0)))
}

func TestRowBlocksCoverAllRows(t *testing.T) {
	cases := []struct {
		rows, workers int
	}{
		{1, 1}, {5, 2}, {10, 3}, {3, 8}, {100, 7},
	}
	for _, tc := range cases {
		blocks := rowBlocks(tc.rows, tc.workers)
		covered := 0
		next := 0
		for _, b := range blocks {
			assert.Equal(t, next, b.start)
			assert.Greater(t, b.end, b.start)
			covered += b.end - b.start
			next = b.end
		}
		assert.Equal(t, tc.rows, covered, "rows=%d workers=%d", tc.rows, tc.workers)
	}
}
