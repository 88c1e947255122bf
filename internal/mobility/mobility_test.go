package mobility

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenfield-eo/recmap/internal/decay"
	"github.com/greenfield-eo/recmap/internal/raster"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func testRC(t *testing.T, rows, cols int) raster.RunContext {
	t.Helper()
	extent := raster.Extent{
		Rows: rows, Cols: cols,
		North: float64(rows), South: 0, East: float64(cols), West: 0,
	}
	rc, err := raster.NewRunContext(extent, nil, raster.PropagateNoData, 1)
	require.NoError(t, err)
	return rc
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(decay.DefaultMobilitySchedule(), 1, 1)
	require.NoError(t, err)
	return e
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(nil, 1, 1)
	assert.Error(t, err)

	_, err = NewEngine(decay.DefaultMobilitySchedule(), 0, 1)
	assert.Error(t, err)

	e, err := NewEngine(decay.DefaultMobilitySchedule(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, e.Workers)
}

func TestDemand(t *testing.T) {
	e := newTestEngine(t)
	pop, err := raster.FromValues(1, 3, []float64{100, 50, raster.NoData()})
	require.NoError(t, err)
	appeal, err := raster.FromValues(1, 3, []float64{0.5, raster.NoData(), 1})
	require.NoError(t, err)

	d, err := e.Demand(context.Background(), testRC(t, 1, 3), pop, appeal)
	require.NoError(t, err)

	assert.Equal(t, 50.0, d.At(0, 0))
	assert.True(t, raster.IsNoData(d.At(0, 1)))
	assert.True(t, raster.IsNoData(d.At(0, 2)))
}

func TestSupplyScalesByCapacity(t *testing.T) {
	e, err := NewEngine(decay.DefaultMobilitySchedule(), 250, 1)
	require.NoError(t, err)

	potential, err := raster.FromValues(1, 2, []float64{0.4, 1})
	require.NoError(t, err)

	s, err := e.Supply(context.Background(), testRC(t, 1, 2), potential)
	require.NoError(t, err)
	assert.Equal(t, 100.0, s.At(0, 0))
	assert.Equal(t, 250.0, s.At(0, 1))
}

func TestUnmetDemandSigned(t *testing.T) {
	e := newTestEngine(t)
	demand, err := raster.FromValues(1, 3, []float64{10, 5, 2})
	require.NoError(t, err)
	supply, err := raster.FromValues(1, 3, []float64{4, 5, 9})
	require.NoError(t, err)

	u, err := e.UnmetDemand(context.Background(), demand, supply)
	require.NoError(t, err)

	assert.Equal(t, 6.0, u.At(0, 0))
	assert.Equal(t, 0.0, u.At(0, 1))
	assert.Equal(t, -7.0, u.At(0, 2)) // oversupply stays negative, no clipping
}

func TestMobilitySumsBoundedBands(t *testing.T) {
	e := newTestEngine(t)
	demand := raster.NewFilled(1, 1, 2)
	distance := raster.NewFilled(1, 1, 1500)

	m, err := e.Mobility(context.Background(), demand, distance)
	require.NoError(t, err)

	want := 0.0
	for _, b := range e.Schedule.Bands[:4] {
		want += 2 * e.Schedule.BandAttractiveness(b, 1500)
	}
	assert.InDelta(t, want, m.At(0, 0), 1e-12)
}

func TestMobilityIgnoresOpenBandParameters(t *testing.T) {
	// The farthest, open-ended band is excluded from visitation sums, so
	// its coefficients must not influence the result.
	bounded := []decay.Band{
		{Min: 0, Max: 1000, Kappa: 0.02, Alpha: 0.001},
		{Min: 1000, Max: 2000, Kappa: 0.03, Alpha: 0.002},
	}

	sA, err := decay.NewSchedule(append(append([]decay.Band{}, bounded...),
		decay.Band{Min: 2000, Max: math.Inf(1), Kappa: 0.07, Alpha: 0.0005}), 1, 1)
	require.NoError(t, err)
	sB, err := decay.NewSchedule(append(append([]decay.Band{}, bounded...),
		decay.Band{Min: 2000, Max: math.Inf(1), Kappa: 123.0, Alpha: 0.9}), 1, 1)
	require.NoError(t, err)

	demand := raster.NewFilled(2, 2, 1)
	distance := raster.NewFilled(2, 2, 800)

	eA, err := NewEngine(sA, 1, 1)
	require.NoError(t, err)
	eB, err := NewEngine(sB, 1, 1)
	require.NoError(t, err)

	mA, err := eA.Mobility(context.Background(), demand, distance)
	require.NoError(t, err)
	mB, err := eB.Mobility(context.Background(), demand, distance)
	require.NoError(t, err)

	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			assert.Equal(t, mA.At(row, col), mB.At(row, col))
		}
	}
}

func TestMobilityRequiresBoundedBands(t *testing.T) {
	s, err := decay.NewSchedule([]decay.Band{{Min: 0, Max: math.Inf(1)}}, 1, 1)
	require.NoError(t, err)
	e, err := NewEngine(s, 1, 1)
	require.NoError(t, err)

	_, err = e.Mobility(context.Background(), raster.NewFilled(1, 1, 1), raster.NewFilled(1, 1, 10))
	assert.Error(t, err)
}

func TestMobilityPropagatesNoData(t *testing.T) {
	e := newTestEngine(t)
	demand, err := raster.FromValues(1, 2, []float64{1, raster.NoData()})
	require.NoError(t, err)
	distance := raster.NewFilled(1, 2, 500)

	m, err := e.Mobility(context.Background(), demand, distance)
	require.NoError(t, err)
	assert.False(t, raster.IsNoData(m.At(0, 0)))
	assert.True(t, raster.IsNoData(m.At(0, 1)))
}

func TestFlow(t *testing.T) {
	e := newTestEngine(t)
	mobility, err := raster.FromValues(2, 2, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	zones, err := raster.FromValues(2, 2, []float64{1, 1, 2, raster.NoData()})
	require.NoError(t, err)

	rows, tagged, err := e.Flow(mobility, zones)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].ZoneID)
	assert.Equal(t, 3.0, rows[0].Sum)
	assert.Equal(t, 2, rows[1].ZoneID)
	assert.Equal(t, 3.0, rows[1].Sum)

	// Every cell of a zone carries that zone's flow total.
	assert.Equal(t, 3.0, tagged.At(0, 0))
	assert.Equal(t, 3.0, tagged.At(0, 1))
	assert.Equal(t, 3.0, tagged.At(1, 0))
	assert.True(t, raster.IsNoData(tagged.At(1, 1)))
}
