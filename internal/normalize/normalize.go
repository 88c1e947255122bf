// Package normalize sums the grids of one component and rescales the result
// to a [0,1] index, with an optional zero-floor that suppresses near-zero
// noise after rescaling.
package normalize

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/greenfield-eo/recmap/internal/raster"
)

// Options parameterizes one normalization pass.
type Options struct {
	// ZeroFloor sets normalized values with absolute value below it to
	// exactly 0. Zero disables the floor.
	ZeroFloor float64
	// Policy controls no-data behavior during the summation step.
	Policy raster.NoDataPolicy
	// Workers bounds cell-op parallelism.
	Workers int
}

// Component sums one or more aligned grids and min-max normalizes the sum to
// [0,1] over valid cells, applying the run mask last. A degenerate range
// (max == min) yields an all-zero result and a warning, not an error.
func Component(ctx context.Context, rc raster.RunContext, name string, grids []*raster.Grid, opts Options) (*raster.Grid, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = rc.Workers
	}
	policy := opts.Policy
	if policy == "" {
		policy = rc.NoData
	}

	sum, err := raster.Sum(ctx, workers, policy, grids...)
	if err != nil {
		return nil, err
	}
	sum = rc.ApplyMask(sum)

	normalized, err := Rescale(ctx, workers, name, sum, opts.ZeroFloor)
	if err != nil {
		return nil, err
	}
	return normalized, nil
}

// Rescale min-max normalizes a single grid to [0,1] with an optional zero
// floor.
func Rescale(ctx context.Context, workers int, name string, g *raster.Grid, zeroFloor float64) (*raster.Grid, error) {
	min, max, ok := raster.MinMax(g)
	if !ok {
		zap.L().Warn("normalize: component has no valid cells", zap.String("component", name))
		return g.Clone(), nil
	}
	if min == max {
		zap.L().Warn("normalize: degenerate value range, output set to zero",
			zap.String("component", name),
			zap.Float64("value", min),
		)
		return raster.MapCells(ctx, workers, g, func(float64) float64 { return 0 })
	}

	span := max - min
	return raster.MapCells(ctx, workers, g, func(v float64) float64 {
		n := (v - min) / span
		if zeroFloor > 0 && math.Abs(n) < zeroFloor {
			return 0
		}
		return n
	})
}
