// Package analysis holds the performance report produced for one account of
// one data source.
package analysis

import (
	"time"

	"adpulse/domain/core"
	"adpulse/internal/dataproc"
)

// Model versions stamped on reports
const (
	ModelStatistical = "statistical-v1"
	ModelFallback    = "fallback"
)

// FallbackConfidence is the confidence of a report built without history
const FallbackConfidence = 0.3

// MetricSummary is the per-metric section of a report
type MetricSummary struct {
	Metric   string              `json:"metric"`
	Latest   float64             `json:"latest"`
	Mean     float64             `json:"mean"`
	Trend    dataproc.Trend      `json:"trend"`
	Forecast dataproc.Prediction `json:"forecast"`
	Smoothed []float64           `json:"smoothed"`
	Outliers []dataproc.Outlier  `json:"outliers"`
	Bounds   dataproc.Bounds     `json:"bounds"`
}

// Anomaly is an outlying daily value
type Anomaly struct {
	Metric string  `json:"metric"`
	Date   string  `json:"date"`
	Value  float64 `json:"value"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
}

// Report is a persisted analysis of an account's recent history
type Report struct {
	ID              core.ID                     `json:"id"`
	Source          string                      `json:"source"`
	AccountID       string                      `json:"accountId"`
	Days            int                         `json:"days"`
	RecordCount     int                         `json:"recordCount"`
	Quality         dataproc.QualityReport      `json:"quality"`
	Metrics         []MetricSummary             `json:"metrics"`
	Weekly          []dataproc.AggregatedBucket `json:"weekly"`
	Insights        []string                    `json:"insights"`
	Anomalies       []Anomaly                   `json:"anomalies"`
	Predictions     []dataproc.Prediction       `json:"predictions"`
	Recommendations []string                    `json:"recommendations"`
	ConfidenceScore float64                     `json:"confidenceScore"`
	ModelVersion    string                      `json:"modelVersion"`
	CreatedAt       time.Time                   `json:"createdAt"`
}

// IsFallback reports whether the report was produced without data
func (r *Report) IsFallback() bool {
	return r.ModelVersion == ModelFallback
}

// Metric returns the summary for a metric, if analyzed
func (r *Report) Metric(name string) (MetricSummary, bool) {
	for _, m := range r.Metrics {
		if m.Metric == name {
			return m, true
		}
	}
	return MetricSummary{}, false
}
