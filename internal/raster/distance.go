package raster

import "math"

// DistanceTo computes, for every cell, the Euclidean distance in map units
// from the cell center to the nearest valid (non no-data) cell of features.
// Feature cells get distance 0. A grid with no feature cells comes back all
// no-data. Exact two-pass transform over columns then rows.
func DistanceTo(features *Grid, extent Extent) *Grid {
	rows, cols := features.Rows(), features.Cols()
	dy := extent.CellHeight()
	dx := extent.CellWidth()

	// Squared distances along columns.
	sq := make([]float64, rows*cols)
	column := make([]float64, rows)
	for col := 0; col < cols; col++ {
		for row := 0; row < rows; row++ {
			if IsNoData(features.At(row, col)) {
				column[row] = math.Inf(1)
			} else {
				column[row] = 0
			}
		}
		transformed := edt1d(column, dy)
		for row := 0; row < rows; row++ {
			sq[row*cols+col] = transformed[row]
		}
	}

	// Combine along rows.
	out := New(rows, cols)
	rowBuf := make([]float64, cols)
	for row := 0; row < rows; row++ {
		copy(rowBuf, sq[row*cols:(row+1)*cols])
		transformed := edt1d(rowBuf, dx)
		for col := 0; col < cols; col++ {
			if math.IsInf(transformed[col], 1) {
				continue // no feature anywhere
			}
			out.Set(row, col, math.Sqrt(transformed[col]))
		}
	}
	return out
}

// edt1d is the lower-envelope squared distance transform for samples at
// positions i*spacing with costs f[i]. Infinite costs mark absent sites and
// never contribute to the envelope.
func edt1d(f []float64, spacing float64) []float64 {
	n := len(f)
	d := make([]float64, n)

	sites := make([]int, 0, n)
	for i, c := range f {
		if !math.IsInf(c, 1) {
			sites = append(sites, i)
		}
	}
	if len(sites) == 0 {
		for i := range d {
			d[i] = math.Inf(1)
		}
		return d
	}

	pos := func(i int) float64 { return float64(i) * spacing }

	v := make([]int, len(sites))      // parabola sites
	z := make([]float64, len(sites)+1) // envelope boundaries
	k := 0
	v[0] = sites[0]
	z[0] = math.Inf(-1)
	z[1] = math.Inf(1)

	for _, q := range sites[1:] {
		var s float64
		for {
			p := v[k]
			s = ((f[q] + pos(q)*pos(q)) - (f[p] + pos(p)*pos(p))) / (2*pos(q) - 2*pos(p))
			if s > z[k] {
				break
			}
			k--
		}
		k++
		v[k] = q
		z[k] = s
		z[k+1] = math.Inf(1)
	}

	k = 0
	for q := 0; q < n; q++ {
		for z[k+1] < pos(q) {
			k++
		}
		p := v[k]
		diff := pos(q) - pos(p)
		d[q] = diff*diff + f[p]
	}
	return d
}
