package raster

import "math"

// pairwiseThreshold is the block size below which summation falls back to a
// plain sequential loop. The split points depend only on slice length, so a
// given sequence of values always reduces to the same float result.
const pairwiseThreshold = 64

// PairwiseSum computes a deterministic tree-structured sum of xs. Downstream
// validation compares statistics textually against stored references, so the
// accumulation order is fixed regardless of worker count.
func PairwiseSum(xs []float64) float64 {
	n := len(xs)
	if n <= pairwiseThreshold {
		sum := 0.0
		for _, x := range xs {
			sum += x
		}
		return sum
	}
	half := n / 2
	return PairwiseSum(xs[:half]) + PairwiseSum(xs[half:])
}

// Statistics holds univariate statistics over the valid cells of one grid.
type Statistics struct {
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"stddev"`
}

// Univar computes count, sum, mean, min, max and the population standard
// deviation over valid cells, in a fixed row-major order with pairwise sums.
// A grid with no valid cells yields the zero Statistics.
func Univar(g *Grid) Statistics {
	valid := make([]float64, 0, len(g.values()))
	min := math.Inf(1)
	max := math.Inf(-1)
	for _, v := range g.values() {
		if IsNoData(v) {
			continue
		}
		valid = append(valid, v)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if len(valid) == 0 {
		return Statistics{}
	}

	sum := PairwiseSum(valid)
	mean := sum / float64(len(valid))

	// Two-pass variance keeps the reduction deterministic.
	sq := make([]float64, len(valid))
	for i, v := range valid {
		d := v - mean
		sq[i] = d * d
	}
	variance := PairwiseSum(sq) / float64(len(valid))

	return Statistics{
		Count:  len(valid),
		Sum:    sum,
		Mean:   mean,
		Min:    min,
		Max:    max,
		StdDev: math.Sqrt(variance),
	}
}

// MinMax returns the minimum and maximum over valid cells, and whether any
// valid cell exists.
func MinMax(g *Grid) (min, max float64, ok bool) {
	min = math.Inf(1)
	max = math.Inf(-1)
	for _, v := range g.values() {
		if IsNoData(v) {
			continue
		}
		ok = true
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max, ok
}
