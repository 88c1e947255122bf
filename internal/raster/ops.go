package raster

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// MapCells applies fn to every valid cell of g, in parallel over row blocks.
// No-data cells pass through untouched. fn must be pure; results do not
// depend on scheduling because each output cell is written exactly once.
func MapCells(ctx context.Context, workers int, g *Grid, fn func(v float64) float64) (*Grid, error) {
	wrapped := func(v float64) (float64, error) { return fn(v), nil }
	return MapCellsErr(ctx, workers, g, wrapped)
}

// MapCellsErr is MapCells for cell functions that can fail. The first error
// aborts the whole operation.
func MapCellsErr(ctx context.Context, workers int, g *Grid, fn func(v float64) (float64, error)) (*Grid, error) {
	out := New(g.Rows(), g.Cols())
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(maxInt(workers, 1))

	for _, block := range rowBlocks(g.Rows(), workers) {
		eg.Go(func() error {
			for row := block.start; row < block.end; row++ {
				for col := 0; col < g.Cols(); col++ {
					v := g.At(row, col)
					if IsNoData(v) {
						continue
					}
					r, err := fn(v)
					if err != nil {
						return err
					}
					out.Set(row, col, r)
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Combine merges aligned grids cell-wise. fn receives the cell values of all
// inputs at one position, no-data included, and returns the output cell.
func Combine(ctx context.Context, workers int, fn func(vs []float64) float64, grids ...*Grid) (*Grid, error) {
	if err := CheckAligned(grids...); err != nil {
		return nil, err
	}
	first := grids[0]
	out := New(first.Rows(), first.Cols())
	eg, _ := errgroup.WithContext(ctx)
	eg.SetLimit(maxInt(workers, 1))

	for _, block := range rowBlocks(first.Rows(), workers) {
		eg.Go(func() error {
			vs := make([]float64, len(grids))
			for row := block.start; row < block.end; row++ {
				for col := 0; col < first.Cols(); col++ {
					for i, g := range grids {
						vs[i] = g.At(row, col)
					}
					out.Set(row, col, fn(vs))
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Sum adds aligned grids cell-wise under the given no-data policy.
func Sum(ctx context.Context, workers int, policy NoDataPolicy, grids ...*Grid) (*Grid, error) {
	return Combine(ctx, workers, func(vs []float64) float64 {
		sum := 0.0
		valid := 0
		for _, v := range vs {
			if IsNoData(v) {
				if policy == PropagateNoData {
					return NoData()
				}
				continue
			}
			sum += v
			valid++
		}
		if valid == 0 {
			return NoData()
		}
		return sum
	}, grids...)
}

type block struct{ start, end int }

// rowBlocks splits rows into at most `workers` contiguous blocks.
func rowBlocks(rows, workers int) []block {
	if workers < 1 {
		workers = 1
	}
	if workers > rows {
		workers = rows
	}
	blocks := make([]block, 0, workers)
	size := rows / workers
	extra := rows % workers
	start := 0
	for i := 0; i < workers; i++ {
		end := start + size
		if i < extra {
			end++
		}
		if end > start {
			blocks = append(blocks, block{start: start, end: end})
		}
		start = end
	}
	return blocks
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
