package raster

import "github.com/rotisserie/eris"

// NoDataPolicy controls how no-data cells behave during multi-grid summation.
type NoDataPolicy string

const (
	// PropagateNoData blanks the result wherever any input is no-data.
	PropagateNoData NoDataPolicy = "propagate"
	// ZeroNoData treats no-data inputs as contributing zero.
	ZeroNoData NoDataPolicy = "zero"
)

// ParseNoDataPolicy converts a configuration string to a NoDataPolicy.
func ParseNoDataPolicy(s string) (NoDataPolicy, error) {
	switch NoDataPolicy(s) {
	case PropagateNoData, ZeroNoData:
		return NoDataPolicy(s), nil
	case "":
		return PropagateNoData, nil
	}
	return "", eris.Errorf("raster: unknown no-data policy %q", s)
}

// Extent describes the run-wide georeferenced frame. All grids in a run share
// it; the store collaborator guarantees alignment before grids reach the core.
type Extent struct {
	Rows, Cols int
	North      float64
	South      float64
	East       float64
	West       float64
}

// CellWidth returns the east-west size of one cell.
func (e Extent) CellWidth() float64 { return (e.East - e.West) / float64(e.Cols) }

// CellHeight returns the north-south size of one cell.
func (e Extent) CellHeight() float64 { return (e.North - e.South) / float64(e.Rows) }

// CellCenter returns the map coordinates of the center of cell (row, col).
// Row 0 is the northernmost row.
func (e Extent) CellCenter(row, col int) (x, y float64) {
	x = e.West + (float64(col)+0.5)*e.CellWidth()
	y = e.North - (float64(row)+0.5)*e.CellHeight()
	return x, y
}

// RunContext carries the per-run immutable state: extent, optional mask and
// the no-data policy. It is built once at run start and threaded explicitly
// into every stage; nothing mutates it afterwards.
type RunContext struct {
	Extent  Extent
	Mask    *Grid
	NoData  NoDataPolicy
	Workers int
}

// NewRunContext validates and assembles a run context. A nil mask means no
// masking. Workers <= 0 selects a single worker.
func NewRunContext(extent Extent, mask *Grid, policy NoDataPolicy, workers int) (RunContext, error) {
	if extent.Rows <= 0 || extent.Cols <= 0 {
		return RunContext{}, eris.Errorf("raster: invalid extent %dx%d", extent.Rows, extent.Cols)
	}
	if mask != nil && (mask.Rows() != extent.Rows || mask.Cols() != extent.Cols) {
		return RunContext{}, &AlignmentError{
			WantRows: extent.Rows, WantCols: extent.Cols,
			GotRows: mask.Rows(), GotCols: mask.Cols(),
		}
	}
	if workers <= 0 {
		workers = 1
	}
	return RunContext{Extent: extent, Mask: mask, NoData: policy, Workers: workers}, nil
}

// ApplyMask returns a copy of g with cells invalid in the mask set to
// no-data. Mask cells are invalid when no-data or zero. Without a mask the
// grid is returned unchanged (no copy).
func (rc RunContext) ApplyMask(g *Grid) *Grid {
	if rc.Mask == nil {
		return g
	}
	out := g.Clone()
	for row := 0; row < g.Rows(); row++ {
		for col := 0; col < g.Cols(); col++ {
			m := rc.Mask.At(row, col)
			if IsNoData(m) || m == 0 {
				out.Set(row, col, NoData())
			}
		}
	}
	return out
}
