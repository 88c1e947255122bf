package spectrum

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenfield-eo/recmap/internal/raster"
)

func TestCutPointsValidate(t *testing.T) {
	assert.NoError(t, DefaultCutPoints().Validate())
	assert.NoError(t, CutPoints{Low: 0.2, High: 0.9}.Validate())

	for _, c := range []CutPoints{
		{Low: 0, High: 0.5},
		{Low: 0.5, High: 0.5},
		{Low: 0.7, High: 0.3},
		{Low: 0.3, High: 1},
	} {
		assert.Error(t, c.Validate(), "%+v", c)
	}
}

func TestClass(t *testing.T) {
	cuts := DefaultCutPoints()
	assert.Equal(t, ClassNear, cuts.Class(0))
	assert.Equal(t, ClassNear, cuts.Class(0.33))
	assert.Equal(t, ClassMidrange, cuts.Class(0.5))
	assert.Equal(t, ClassFar, cuts.Class(0.67))
	assert.Equal(t, ClassFar, cuts.Class(1))
}

func TestValueAllNineCombinations(t *testing.T) {
	want := map[[2]int]int{
		{1, 1}: 1, {1, 2}: 2, {1, 3}: 3,
		{2, 1}: 4, {2, 2}: 5, {2, 3}: 6,
		{3, 1}: 7, {3, 2}: 8, {3, 3}: 9,
	}
	for pair, expected := range want {
		got, err := Value(pair[0], pair[1])
		require.NoError(t, err)
		assert.Equal(t, expected, got, "potential=%d opportunity=%d", pair[0], pair[1])
	}
}

func TestValueOutOfRange(t *testing.T) {
	for _, pair := range [][2]int{{0, 1}, {1, 0}, {4, 1}, {1, 4}} {
		_, err := Value(pair[0], pair[1])
		assert.Error(t, err, "%v", pair)
	}
}

func TestClassifyGrid(t *testing.T) {
	g, err := raster.FromValues(1, 4, []float64{0.1, 0.5, 0.9, raster.NoData()})
	require.NoError(t, err)

	out, err := Classify(context.Background(), 1, g, DefaultCutPoints())
	require.NoError(t, err)

	assert.Equal(t, 1.0, out.At(0, 0))
	assert.Equal(t, 2.0, out.At(0, 1))
	assert.Equal(t, 3.0, out.At(0, 2))
	assert.True(t, raster.IsNoData(out.At(0, 3)))
}

func TestClassifyRejectsBadCuts(t *testing.T) {
	g := raster.NewFilled(1, 1, 0.5)
	_, err := Classify(context.Background(), 1, g, CutPoints{Low: 0.9, High: 0.1})
	assert.Error(t, err)
}

func TestCombineGrids(t *testing.T) {
	pot, err := raster.FromValues(1, 3, []float64{1, 3, 2})
	require.NoError(t, err)
	opp, err := raster.FromValues(1, 3, []float64{1, 3, raster.NoData()})
	require.NoError(t, err)

	out, err := Combine(context.Background(), 1, pot, opp)
	require.NoError(t, err)

	assert.Equal(t, 1.0, out.At(0, 0))
	assert.Equal(t, 9.0, out.At(0, 1))
	assert.True(t, raster.IsNoData(out.At(0, 2)))
}

func TestCombineRejectsBadClasses(t *testing.T) {
	pot := raster.NewFilled(1, 1, 5)
	opp := raster.NewFilled(1, 1, 1)
	_, err := Combine(context.Background(), 1, pot, opp)
	assert.Error(t, err)
}

func TestHighestMask(t *testing.T) {
	g, err := raster.FromValues(1, 3, []float64{9, 5, raster.NoData()})
	require.NoError(t, err)

	out, err := HighestMask(context.Background(), 1, g)
	require.NoError(t, err)

	assert.Equal(t, 9.0, out.At(0, 0))
	assert.True(t, raster.IsNoData(out.At(0, 1)))
	assert.True(t, raster.IsNoData(out.At(0, 2)))
}
