// Package dataproc holds the numeric and time-series routines used to prepare
// marketing metrics for analysis: scaling, outlier detection, rolling
// statistics, smoothing, sequencing, correlation, temporal aggregation,
// training-set assembly and data-quality scoring.
//
// Every function is pure. Inputs are treated as read-only and results never
// alias caller slices, so calls may run concurrently without coordination.
package dataproc

import (
	"gonum.org/v1/gonum/floats"
)

// Normalized is a min-max scaled series plus the scale needed to invert it.
type Normalized struct {
	Normalized []float64 `json:"normalized"`
	Min        float64   `json:"min"`
	Max        float64   `json:"max"`
}

// Normalize rescales series into [0,1].
//
// An empty series yields {[], 0, 1}. A constant series maps every value to 0.5
// and reports the constant as both min and max.
func Normalize(series []float64) Normalized {
	if len(series) == 0 {
		return Normalized{Normalized: []float64{}, Min: 0, Max: 1}
	}

	lo := floats.Min(series)
	hi := floats.Max(series)
	span := hi - lo

	out := make([]float64, len(series))
	if span == 0 {
		for i := range out {
			out[i] = 0.5
		}
		return Normalized{Normalized: out, Min: lo, Max: hi}
	}

	for i, v := range series {
		out[i] = (v - lo) / span
	}
	return Normalized{Normalized: out, Min: lo, Max: hi}
}

// Denormalize maps values produced by Normalize back to the original scale.
func Denormalize(normalized []float64, min, max float64) []float64 {
	span := max - min
	out := make([]float64, len(normalized))
	for i, v := range normalized {
		out[i] = v*span + min
	}
	return out
}
