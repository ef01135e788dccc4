package dataproc

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Default window sizes.
const (
	DefaultFeatureWindow   = 7
	DefaultSmoothingWindow = 5
)

// Feature describes the trailing window that precedes Index.
type Feature struct {
	Index    int     `json:"index"`
	Value    float64 `json:"value"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"stdDev"`
	Median   float64 `json:"median"`
	Variance float64 `json:"variance"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// StatisticalFeatures computes descriptive statistics over the trailing
// window series[i-windowSize:i] for every i in [windowSize, len(series)).
// The window excludes the value at i. Variance and standard deviation are
// population statistics.
//
// A non-positive windowSize or a series no longer than the window yields an
// empty slice.
func StatisticalFeatures(series []float64, windowSize int) []Feature {
	features := []Feature{}
	if windowSize < 1 || len(series) <= windowSize {
		return features
	}

	features = make([]Feature, 0, len(series)-windowSize)
	for i := windowSize; i < len(series); i++ {
		window := stats.Float64Data(series[i-windowSize : i])

		mean, _ := window.Mean()
		variance, _ := window.PopulationVariance()
		median, _ := window.Median()
		lo, _ := window.Min()
		hi, _ := window.Max()

		features = append(features, Feature{
			Index:    i,
			Value:    series[i],
			Mean:     mean,
			StdDev:   math.Sqrt(variance),
			Median:   median,
			Variance: variance,
			Min:      lo,
			Max:      hi,
		})
	}
	return features
}

// MovingAverage smooths series with a centered window of windowSize. Near the
// edges the window shrinks instead of padding: index i averages
// series[max(0, i-w/2) : min(n, i+w/2+1)].
//
// The output has the same length as the input. A windowSize below 1 is
// treated as 1, which returns a copy of the input.
func MovingAverage(series []float64, windowSize int) []float64 {
	if windowSize < 1 {
		windowSize = 1
	}
	half := windowSize / 2
	n := len(series)

	smoothed := make([]float64, n)
	for i := range series {
		start := max(0, i-half)
		end := min(n, i+half+1)
		avg, _ := stats.Mean(series[start:end])
		smoothed[i] = avg
	}
	return smoothed
}
