// Package spectrum discretizes the potential and opportunity indices into
// three ordinal classes and combines them into the nine-class recreation
// spectrum.
package spectrum

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/greenfield-eo/recmap/internal/raster"
)

// Ordinal classes for potential and opportunity.
const (
	ClassNear     = 1
	ClassMidrange = 2
	ClassFar      = 3
)

// HighestClass is the top spectrum class (far potential, far opportunity);
// its cells seed the distance surface that drives demand and mobility.
const HighestClass = 9

// CutPoints are the classification thresholds over [0,1]. Values below Low
// classify as Near, values below High as Midrange, the rest as Far.
type CutPoints struct {
	Low  float64 `yaml:"low" mapstructure:"low"`
	High float64 `yaml:"high" mapstructure:"high"`
}

// DefaultCutPoints splits [0,1] into equal thirds.
func DefaultCutPoints() CutPoints {
	return CutPoints{Low: 1.0 / 3.0, High: 2.0 / 3.0}
}

// Validate checks 0 < Low < High < 1.
func (c CutPoints) Validate() error {
	if !(c.Low > 0 && c.Low < c.High && c.High < 1) {
		return eris.Errorf("spectrum: cut points low=%g high=%g must satisfy 0 < low < high < 1", c.Low, c.High)
	}
	return nil
}

// Class maps one normalized value to its ordinal class.
func (c CutPoints) Class(v float64) int {
	switch {
	case v < c.Low:
		return ClassNear
	case v < c.High:
		return ClassMidrange
	default:
		return ClassFar
	}
}

// Classify maps a normalized [0,1] grid to ordinal classes 1-3.
func Classify(ctx context.Context, workers int, g *raster.Grid, cuts CutPoints) (*raster.Grid, error) {
	if err := cuts.Validate(); err != nil {
		return nil, err
	}
	return raster.MapCells(ctx, workers, g, func(v float64) float64 {
		return float64(cuts.Class(v))
	})
}

// matrix is the fixed spectrum lookup, indexed [potential-1][opportunity-1].
var matrix = [3][3]int{
	{1, 2, 3},
	{4, 5, 6},
	{7, 8, 9},
}

// Value returns the spectrum class for a (potential, opportunity) class
// pair.
func Value(potentialClass, opportunityClass int) (int, error) {
	if potentialClass < ClassNear || potentialClass > ClassFar ||
		opportunityClass < ClassNear || opportunityClass > ClassFar {
		return 0, eris.Errorf("spectrum: class pair (%d, %d) out of range", potentialClass, opportunityClass)
	}
	return matrix[potentialClass-1][opportunityClass-1], nil
}

// Combine builds the spectrum grid from classified potential and opportunity
// grids. A no-data cell in either input blanks the output cell.
func Combine(ctx context.Context, workers int, potential, opportunity *raster.Grid) (*raster.Grid, error) {
	var once sync.Once
	var combineErr error
	out, err := raster.Combine(ctx, workers, func(vs []float64) float64 {
		p, o := vs[0], vs[1]
		if raster.IsNoData(p) || raster.IsNoData(o) {
			return raster.NoData()
		}
		v, err := Value(int(p), int(o))
		if err != nil {
			once.Do(func() { combineErr = err })
			return raster.NoData()
		}
		return float64(v)
	}, potential, opportunity)
	if err != nil {
		return nil, err
	}
	if combineErr != nil {
		return nil, combineErr
	}
	return out, nil
}

// HighestMask returns a grid holding HighestClass where the spectrum reaches
// it and no-data elsewhere.
func HighestMask(ctx context.Context, workers int, spectrum *raster.Grid) (*raster.Grid, error) {
	return raster.MapCells(ctx, workers, spectrum, func(v float64) float64 {
		if int(v) == HighestClass {
			return v
		}
		return raster.NoData()
	})
}
