package dataproc

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Direction of a metric over its recent history.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionFlat Direction = "flat"
)

// FlatThreshold is the smallest absolute percentage change that counts as
// movement.
const FlatThreshold = 1.0

// Trend summarizes how a metric moved between two adjacent windows.
type Trend struct {
	Direction        Direction `json:"direction"`
	ChangePercentage float64   `json:"changePercentage"`
	Confidence       float64   `json:"confidence"`
}

// CalculateTrend compares the mean of the last window values with the mean of
// the window values before them. When the series is shorter than 2*window
// it is split in halves instead. Confidence is the absolute correlation of
// the series with time, rounded to two decimals.
//
// Fewer than two values yield a flat trend with zero confidence.
func CalculateTrend(series []float64, window int) Trend {
	n := len(series)
	if n < 2 {
		return Trend{Direction: DirectionFlat}
	}
	if window < 1 || 2*window > n {
		window = n / 2
	}

	previous, _ := stats.Mean(series[n-2*window : n-window])
	current, _ := stats.Mean(series[n-window:])
	change := PercentageChange(previous, current)

	direction := DirectionFlat
	switch {
	case change >= FlatThreshold:
		direction = DirectionUp
	case change <= -FlatThreshold:
		direction = DirectionDown
	}

	r, _ := Correlation(series, indexSeries(n))
	return Trend{
		Direction:        direction,
		ChangePercentage: round2(change),
		Confidence:       round2(math.Abs(r)),
	}
}

// Prediction is a point forecast for a metric.
type Prediction struct {
	Metric     string  `json:"metric"`
	Value      float64 `json:"value"`
	Horizon    int     `json:"horizon"`
	Confidence float64 `json:"confidence"`
}

// Forecast extrapolates a least-squares line fitted over the index horizon
// steps past the last value. Confidence is the fit's R², clamped to [0,1].
// With fewer than two values the forecast is the last value (or 0) at zero
// confidence.
func Forecast(series []float64, horizon int) Prediction {
	n := len(series)
	switch n {
	case 0:
		return Prediction{Horizon: horizon}
	case 1:
		return Prediction{Value: series[0], Horizon: horizon}
	}

	xs := indexSeries(n)
	alpha, beta := stat.LinearRegression(xs, series, nil, false)
	value := alpha + beta*float64(n-1+horizon)

	confidence := 0.0
	if !isConstant(series) {
		confidence = stat.RSquared(xs, series, nil, alpha, beta)
	}
	if math.IsNaN(confidence) {
		confidence = 0
	}
	confidence = math.Min(1, math.Max(0, confidence))

	return Prediction{
		Value:      value,
		Horizon:    horizon,
		Confidence: round2(confidence),
	}
}

func indexSeries(n int) []float64 {
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	return xs
}

func isConstant(series []float64) bool {
	for _, v := range series[1:] {
		if v != series[0] {
			return false
		}
	}
	return true
}
