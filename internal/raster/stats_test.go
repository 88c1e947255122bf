package raster

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairwiseSumMatchesSequentialExactly(t *testing.T) {
	// Below the threshold the tree sum degenerates to the sequential loop,
	// so the two must be bit-identical.
	xs := make([]float64, pairwiseThreshold)
	for i := range xs {
		xs[i] = 0.1 * float64(i+1)
	}
	seq := 0.0
	for _, x := range xs {
		seq += x
	}
	assert.Equal(t, seq, PairwiseSum(xs))
}

func TestPairwiseSumDeterministic(t *testing.T) {
	xs := make([]float64, 10_000)
	for i := range xs {
		xs[i] = math.Sin(float64(i)) * 1e-3
	}
	first := PairwiseSum(xs)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, PairwiseSum(xs))
	}
}

func TestPairwiseSumEmpty(t *testing.T) {
	assert.Equal(t, 0.0, PairwiseSum(nil))
}

func TestUnivar(t *testing.T) {
	g, err := FromValues(2, 3, []float64{1, 2, 3, 4, 5, NoData()})
	require.NoError(t, err)

	stats := Univar(g)
	assert.Equal(t, 5, stats.Count)
	assert.Equal(t, 15.0, stats.Sum)
	assert.Equal(t, 3.0, stats.Mean)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 5.0, stats.Max)
	assert.InDelta(t, math.Sqrt(2), stats.StdDev, 1e-12)
}

func TestUnivarEmptyGrid(t *testing.T) {
	stats := Univar(New(3, 3))
	assert.Equal(t, Statistics{}, stats)
}

func TestMinMax(t *testing.T) {
	g, err := FromValues(1, 4, []float64{NoData(), -2, 7, 0})
	require.NoError(t, err)

	min, max, ok := MinMax(g)
	require.True(t, ok)
	assert.Equal(t, -2.0, min)
	assert.Equal(t, 7.0, max)

	_, _, ok = MinMax(New(2, 2))
	assert.False(t, ok)
}
