package dataproc

import (
	"slices"
)

// IQRMultiplier scales the interquartile range into outlier fences.
const IQRMultiplier = 1.5

// Outlier is a value that fell outside the fences, with its original index.
type Outlier struct {
	Index int     `json:"index"`
	Value float64 `json:"value"`
}

// Bounds are the inclusive fences [Lower, Upper].
type Bounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// OutlierResult classifies a series against its IQR fences.
type OutlierResult struct {
	Outliers []Outlier `json:"outliers"`
	Cleaned  []float64 `json:"cleaned"`
	Bounds   Bounds    `json:"bounds"`
	Q1       float64   `json:"q1"`
	Q3       float64   `json:"q3"`
	IQR      float64   `json:"iqr"`
}

// DetectOutliers flags values outside [q1 - 1.5*iqr, q3 + 1.5*iqr].
//
// Quartiles are picked by index from a sorted copy, sorted[floor(0.25*n)] and
// sorted[floor(0.75*n)], with no interpolation. Outliers and cleaned values
// keep the order of the input. An empty series yields empty collections and
// zero quartiles and bounds.
func DetectOutliers(series []float64) OutlierResult {
	result := OutlierResult{
		Outliers: []Outlier{},
		Cleaned:  []float64{},
	}
	n := len(series)
	if n == 0 {
		return result
	}

	sorted := slices.Clone(series)
	slices.Sort(sorted)

	q1 := sorted[n/4]
	q3 := sorted[(3*n)/4]
	iqr := q3 - q1
	lower := q1 - IQRMultiplier*iqr
	upper := q3 + IQRMultiplier*iqr

	for i, v := range series {
		if v < lower || v > upper {
			result.Outliers = append(result.Outliers, Outlier{Index: i, Value: v})
		} else {
			result.Cleaned = append(result.Cleaned, v)
		}
	}

	result.Bounds = Bounds{Lower: lower, Upper: upper}
	result.Q1 = q1
	result.Q3 = q3
	result.IQR = iqr
	return result
}
