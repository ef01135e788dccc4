package dataproc

import (
	"math"

	apperrors "adpulse/internal/errors"

	"gonum.org/v1/gonum/stat"
)

// ErrLengthMismatch is returned (wrapped) when paired series differ in length.
var ErrLengthMismatch = apperrors.New(apperrors.CodeLengthMismatch, "series must have equal length")

// Correlation returns the Pearson correlation coefficient of a and b.
//
// Empty input and zero-variance input both return 0 rather than NaN.
func Correlation(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, apperrors.Wrapf(ErrLengthMismatch, "series lengths %d and %d differ", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}

	meanA := stat.Mean(a, nil)
	meanB := stat.Mean(b, nil)

	var numerator, sumSqA, sumSqB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		numerator += da * db
		sumSqA += da * da
		sumSqB += db * db
	}

	denominator := math.Sqrt(sumSqA * sumSqB)
	if denominator == 0 {
		return 0, nil
	}
	return numerator / denominator, nil
}
