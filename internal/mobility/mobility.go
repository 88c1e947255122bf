// Package mobility derives the population-weighted indicators: demand,
// supply, unmet demand, distance-decayed visitation (mobility) and its zonal
// aggregation (flow).
package mobility

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/greenfield-eo/recmap/internal/decay"
	"github.com/greenfield-eo/recmap/internal/raster"
	"github.com/greenfield-eo/recmap/internal/zonal"
)

// Engine evaluates the demand-side indicators for one run.
type Engine struct {
	// Schedule is the visitation decay schedule. The open-ended uppermost
	// band is excluded from mobility sums: it stands for distances beyond
	// which visitation is not modeled.
	Schedule *decay.Schedule
	// Capacity scales potential to the supply basis, keeping units
	// consistent with demand.
	Capacity float64
	// Workers bounds cell-op parallelism.
	Workers int
}

// NewEngine validates and builds an engine.
func NewEngine(schedule *decay.Schedule, capacity float64, workers int) (*Engine, error) {
	if schedule == nil {
		return nil, eris.New("mobility: nil decay schedule")
	}
	if capacity <= 0 {
		return nil, eris.Errorf("mobility: capacity %g must be positive", capacity)
	}
	if workers <= 0 {
		workers = 1
	}
	return &Engine{Schedule: schedule, Capacity: capacity, Workers: workers}, nil
}

// Demand multiplies population by recreation appeal per cell. Appeal comes
// from the potential index by default, or from a spectrum-derived grid when
// so configured; either way it arrives here as a grid.
func (e *Engine) Demand(ctx context.Context, rc raster.RunContext, population, appeal *raster.Grid) (*raster.Grid, error) {
	out, err := raster.Combine(ctx, e.Workers, func(vs []float64) float64 {
		pop, a := vs[0], vs[1]
		if raster.IsNoData(pop) || raster.IsNoData(a) {
			return raster.NoData()
		}
		return pop * a
	}, population, appeal)
	if err != nil {
		return nil, eris.Wrap(err, "mobility: demand")
	}
	return rc.ApplyMask(out), nil
}

// Supply scales the potential index by the engine's capacity factor.
func (e *Engine) Supply(ctx context.Context, rc raster.RunContext, potential *raster.Grid) (*raster.Grid, error) {
	out, err := raster.MapCells(ctx, e.Workers, potential, func(v float64) float64 {
		return v * e.Capacity
	})
	if err != nil {
		return nil, eris.Wrap(err, "mobility: supply")
	}
	return rc.ApplyMask(out), nil
}

// UnmetDemand is demand minus supply, signed: zones where supply exceeds
// demand go at or below zero. No clipping.
func (e *Engine) UnmetDemand(ctx context.Context, demand, supply *raster.Grid) (*raster.Grid, error) {
	out, err := raster.Combine(ctx, e.Workers, func(vs []float64) float64 {
		d, s := vs[0], vs[1]
		if raster.IsNoData(d) || raster.IsNoData(s) {
			return raster.NoData()
		}
		return d - s
	}, demand, supply)
	if err != nil {
		return nil, eris.Wrap(err, "mobility: unmet demand")
	}
	return out, nil
}

// Mobility sums per-band visitation over every band except the open-ended
// uppermost one:
//
//	visits(cell, band) = demand(cell) * attractiveness(distance(cell), band)
//
// The exclusion is a modeling rule, not an oversight; the farthest band's
// parameters never influence the result.
func (e *Engine) Mobility(ctx context.Context, demand, distance *raster.Grid) (*raster.Grid, error) {
	included := e.includedBands()
	if len(included) == 0 {
		return nil, eris.New("mobility: schedule has no bounded bands")
	}
	zap.L().Debug("mobility: summing visitation bands", zap.Int("bands", len(included)))

	out, err := raster.Combine(ctx, e.Workers, func(vs []float64) float64 {
		d, dist := vs[0], vs[1]
		if raster.IsNoData(d) || raster.IsNoData(dist) {
			return raster.NoData()
		}
		visits := 0.0
		for _, band := range included {
			visits += d * e.Schedule.BandAttractiveness(band, dist)
		}
		return visits
	}, demand, distance)
	if err != nil {
		return nil, eris.Wrap(err, "mobility: visitation")
	}
	return out, nil
}

// Flow aggregates mobility over the aggregation zones, returning the summary
// rows and a zone-tagged raster holding each zone's flow total in every cell
// of that zone.
func (e *Engine) Flow(mobility, zones *raster.Grid) ([]zonal.SummaryRow, *raster.Grid, error) {
	rows, err := zonal.Aggregate(mobility, zones)
	if err != nil {
		return nil, nil, eris.Wrap(err, "mobility: flow aggregation")
	}

	totals := make(map[int]float64, len(rows))
	for _, r := range rows {
		totals[r.ZoneID] = r.Sum
	}

	tagged := raster.New(zones.Rows(), zones.Cols())
	for row := 0; row < zones.Rows(); row++ {
		for col := 0; col < zones.Cols(); col++ {
			z := zones.At(row, col)
			if raster.IsNoData(z) {
				continue
			}
			if total, ok := totals[int(z)]; ok {
				tagged.Set(row, col, total)
			}
		}
	}
	return rows, tagged, nil
}

func (e *Engine) includedBands() []decay.Band {
	bands := e.Schedule.Bands
	if n := len(bands); n > 0 && bands[n-1].Open() {
		return bands[:n-1]
	}
	return bands
}
