// Package raster holds the grid model shared by every computation stage:
// aligned 2D float grids with a no-data sentinel, the immutable run context
// (extent, mask, no-data policy), tile-parallel cell operations and
// deterministic reductions.
package raster

import (
	"math"

	"github.com/rotisserie/eris"
)

// NoData returns the sentinel marking an invalid cell.
func NoData() float64 { return math.NaN() }

// IsNoData reports whether v is the no-data sentinel.
func IsNoData(v float64) bool { return math.IsNaN(v) }

// Grid is a fixed-shape 2D array of float cells. Cells holding the no-data
// sentinel are excluded from statistics and propagate through arithmetic
// according to the run's no-data policy.
type Grid struct {
	rows, cols int
	cells      []float64
}

// New returns a rows x cols grid with every cell set to no-data.
func New(rows, cols int) *Grid {
	g := &Grid{rows: rows, cols: cols, cells: make([]float64, rows*cols)}
	for i := range g.cells {
		g.cells[i] = NoData()
	}
	return g
}

// NewFilled returns a rows x cols grid with every cell set to v.
func NewFilled(rows, cols int, v float64) *Grid {
	g := &Grid{rows: rows, cols: cols, cells: make([]float64, rows*cols)}
	for i := range g.cells {
		g.cells[i] = v
	}
	return g
}

// FromValues builds a grid from row-major values. The slice length must equal
// rows*cols.
func FromValues(rows, cols int, values []float64) (*Grid, error) {
	if len(values) != rows*cols {
		return nil, eris.Errorf("raster: want %d values for %dx%d grid, got %d", rows*cols, rows, cols, len(values))
	}
	cells := make([]float64, len(values))
	copy(cells, values)
	return &Grid{rows: rows, cols: cols, cells: cells}, nil
}

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// At returns the cell value at (row, col).
func (g *Grid) At(row, col int) float64 { return g.cells[row*g.cols+col] }

// Set assigns the cell value at (row, col).
func (g *Grid) Set(row, col int, v float64) { g.cells[row*g.cols+col] = v }

// Clone returns a deep copy. Stages never mutate their inputs; derived grids
// start as clones or fresh grids.
func (g *Grid) Clone() *Grid {
	cells := make([]float64, len(g.cells))
	copy(cells, g.cells)
	return &Grid{rows: g.rows, cols: g.cols, cells: cells}
}

// Aligned reports whether o has the same shape as g.
func (g *Grid) Aligned(o *Grid) bool {
	return o != nil && g.rows == o.rows && g.cols == o.cols
}

// ValidCount returns the number of cells that are not no-data.
func (g *Grid) ValidCount() int {
	n := 0
	for _, v := range g.cells {
		if !IsNoData(v) {
			n++
		}
	}
	return n
}

// values exposes the backing slice to package-internal reductions.
func (g *Grid) values() []float64 { return g.cells }

// AlignmentError reports grids of differing extent passed to a combining
// operation. Always fatal to the run.
type AlignmentError struct {
	WantRows, WantCols int
	GotRows, GotCols   int
}

func (e *AlignmentError) Error() string {
	return eris.Errorf("raster: grid shape %dx%d does not match %dx%d",
		e.GotRows, e.GotCols, e.WantRows, e.WantCols).Error()
}

// CheckAligned verifies that all grids share the shape of the first.
func CheckAligned(grids ...*Grid) error {
	if len(grids) == 0 {
		return eris.New("raster: no grids to align")
	}
	first := grids[0]
	for _, g := range grids[1:] {
		if !first.Aligned(g) {
			return &AlignmentError{
				WantRows: first.rows, WantCols: first.cols,
				GotRows: g.rows, GotCols: g.cols,
			}
		}
	}
	return nil
}
