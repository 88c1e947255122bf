// Package zonal reduces a value grid to per-zone summary statistics. The
// reduction is a single deterministic pass: per-zone values are collected in
// row-major order and summed pairwise, so repeated runs produce bit-identical
// statistics for textual comparison against stored references.
package zonal

import (
	"math"
	"sort"

	"github.com/greenfield-eo/recmap/internal/raster"
)

// SummaryRow holds the statistics of one zone, ordered ascending by ZoneID
// in Aggregate's output.
type SummaryRow struct {
	ZoneID int     `json:"zone_id"`
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
}

// Aggregate computes one SummaryRow per zone id present in the zone grid.
// Each cell maps to at most one zone; zone cells that are no-data, and value
// cells that are no-data, contribute nothing. Conservation holds by
// construction: for a partition covering the grid exactly once, the per-zone
// sums add up to the whole-grid sum.
func Aggregate(values, zones *raster.Grid) ([]SummaryRow, error) {
	if err := raster.CheckAligned(values, zones); err != nil {
		return nil, err
	}

	perZone := map[int][]float64{}
	for row := 0; row < values.Rows(); row++ {
		for col := 0; col < values.Cols(); col++ {
			z := zones.At(row, col)
			v := values.At(row, col)
			if raster.IsNoData(z) || raster.IsNoData(v) {
				continue
			}
			id := int(z)
			perZone[id] = append(perZone[id], v)
		}
	}

	ids := make([]int, 0, len(perZone))
	for id := range perZone {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	rows := make([]SummaryRow, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, summarize(id, perZone[id]))
	}
	return rows, nil
}

func summarize(id int, vals []float64) SummaryRow {
	row := SummaryRow{ZoneID: id, Count: len(vals)}
	if len(vals) == 0 {
		return row
	}

	row.Min = math.Inf(1)
	row.Max = math.Inf(-1)
	for _, v := range vals {
		if v < row.Min {
			row.Min = v
		}
		if v > row.Max {
			row.Max = v
		}
	}

	row.Sum = raster.PairwiseSum(vals)
	row.Mean = row.Sum / float64(len(vals))

	sq := make([]float64, len(vals))
	for i, v := range vals {
		d := v - row.Mean
		sq[i] = d * d
	}
	row.StdDev = math.Sqrt(raster.PairwiseSum(sq) / float64(len(vals)))
	return row
}

// TotalSum adds the per-zone sums pairwise, for conservation checks against
// whole-grid statistics.
func TotalSum(rows []SummaryRow) float64 {
	sums := make([]float64, len(rows))
	for i, r := range rows {
		sums[i] = r.Sum
	}
	return raster.PairwiseSum(sums)
}
