package dataproc

import "math"

// ZeroBaselineChange is reported when a metric moves away from a zero baseline.
const ZeroBaselineChange = 100.0

// PercentageChange returns the relative change from oldValue to newValue, in
// percent of |oldValue|. From a zero baseline it returns 0 when newValue is
// also zero and ZeroBaselineChange otherwise.
func PercentageChange(oldValue, newValue float64) float64 {
	if oldValue == 0 {
		if newValue == 0 {
			return 0
		}
		return ZeroBaselineChange
	}
	return (newValue - oldValue) / math.Abs(oldValue) * 100
}
