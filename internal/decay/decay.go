// Package decay evaluates the distance-decay attractiveness function used
// for proximity scoring and visitation modeling:
//
//	attractiveness(v) = (constant + kappa) / (kappa + exp(alpha * v))
//
// Band coefficients (kappa, alpha) are selected per cell by the distance band
// containing the cell's value.
package decay

import (
	"context"
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"github.com/greenfield-eo/recmap/internal/raster"
)

// Band is one distance category of a decay schedule. Max is +Inf for the
// open-ended uppermost band. Bands cover [Min, Max): the next band's Min
// equals the previous band's Max.
type Band struct {
	Min   float64 `yaml:"min" mapstructure:"min"`
	Max   float64 `yaml:"max" mapstructure:"max"`
	Kappa float64 `yaml:"kappa" mapstructure:"kappa"`
	Alpha float64 `yaml:"alpha" mapstructure:"alpha"`
}

// Contains reports whether v falls inside the band.
func (b Band) Contains(v float64) bool { return v >= b.Min && v < b.Max }

// Open reports whether the band has no upper bound.
func (b Band) Open() bool { return math.IsInf(b.Max, 1) }

// Schedule is an ordered list of bands plus the function constant and an
// optional score multiplier. The uppermost band, when open-ended, is by
// convention excluded from visitation sums (see the mobility engine).
type Schedule struct {
	Bands    []Band
	Constant float64
	Score    float64
}

// UncoveredDistanceError reports a distance value outside every band.
type UncoveredDistanceError struct {
	Distance float64
}

func (e *UncoveredDistanceError) Error() string {
	return fmt.Sprintf("decay: distance %g outside all bands", e.Distance)
}

// NewSchedule validates band ordering and fills in defaults (constant 1,
// score 1).
func NewSchedule(bands []Band, constant, score float64) (*Schedule, error) {
	if len(bands) == 0 {
		return nil, eris.New("decay: empty schedule")
	}
	for i, b := range bands {
		if b.Min >= b.Max {
			return nil, eris.Errorf("decay: band %d: min %g not below max %g", i, b.Min, b.Max)
		}
		if i > 0 && bands[i-1].Max != b.Min {
			return nil, eris.Errorf("decay: band %d: starts at %g, previous ends at %g", i, b.Min, bands[i-1].Max)
		}
		if b.Open() && i != len(bands)-1 {
			return nil, eris.Errorf("decay: band %d: open-ended band must be last", i)
		}
	}
	if constant == 0 {
		constant = 1
	}
	if score == 0 {
		score = 1
	}
	return &Schedule{Bands: bands, Constant: constant, Score: score}, nil
}

// DefaultMobilitySchedule returns the five-band visitation schedule of the
// recreation model: four bounded kilometric bands plus the open-ended
// farthest band representing distances beyond modeled visitation.
func DefaultMobilitySchedule() *Schedule {
	s, _ := NewSchedule([]Band{
		{Min: 0, Max: 1000, Kappa: 0.02350, Alpha: 0.00102},
		{Min: 1000, Max: 2000, Kappa: 0.02651, Alpha: 0.00109},
		{Min: 2000, Max: 3000, Kappa: 0.05120, Alpha: 0.00098},
		{Min: 3000, Max: 4000, Kappa: 0.10700, Alpha: 0.00067},
		{Min: 4000, Max: math.Inf(1), Kappa: 0.06930, Alpha: 0.00057},
	}, 1, 1)
	return s
}

// Band returns the band containing v.
func (s *Schedule) Band(v float64) (Band, bool) {
	for _, b := range s.Bands {
		if b.Contains(v) {
			return b, true
		}
	}
	return Band{}, false
}

// Attractiveness evaluates the decay function for v using the containing
// band's coefficients. Strictly decreasing in v within a band for
// alpha > 0, kappa > 0.
func (s *Schedule) Attractiveness(v float64) (float64, error) {
	b, ok := s.Band(v)
	if !ok {
		return 0, &UncoveredDistanceError{Distance: v}
	}
	return s.evaluate(b, v), nil
}

// BandAttractiveness evaluates the decay function for v using a fixed band's
// coefficients, regardless of which band contains v.
func (s *Schedule) BandAttractiveness(b Band, v float64) float64 {
	return s.evaluate(b, v)
}

func (s *Schedule) evaluate(b Band, v float64) float64 {
	return (s.Constant + b.Kappa) / (b.Kappa + math.Exp(b.Alpha*v)) * s.Score
}

// Evaluate maps a raw distance grid to an attractiveness grid. Cells outside
// all bands abort the run unless the schedule ends in an open band, in which
// case every non-negative distance is covered.
func (s *Schedule) Evaluate(ctx context.Context, workers int, distance *raster.Grid) (*raster.Grid, error) {
	return raster.MapCellsErr(ctx, workers, distance, func(v float64) (float64, error) {
		return s.Attractiveness(v)
	})
}
