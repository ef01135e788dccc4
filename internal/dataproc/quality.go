package dataproc

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
)

// Quality weights and the window over which data is considered fresh.
const (
	CompletenessWeight = 0.4
	ConsistencyWeight  = 0.4
	RecencyWeight      = 0.2
	FreshnessDays      = 30.0
)

// QualityDetails breaks the composite score into its parts. The three ratios
// are rounded to two decimals.
type QualityDetails struct {
	Completeness    float64 `json:"completeness"`
	Consistency     float64 `json:"consistency"`
	Recency         float64 `json:"recency"`
	TotalRecords    int     `json:"totalRecords"`
	CompleteRecords int     `json:"completeRecords"`
	LatestDataAge   int     `json:"latestDataAge"`
}

// QualityReport is the composite data-quality score of a dataset.
type QualityReport struct {
	Score   float64        `json:"score"`
	Details QualityDetails `json:"details"`
}

// QualityScorer scores datasets against an injected clock and date parser.
type QualityScorer struct {
	Clock Clock
	Parse DateParser
}

// NewQualityScorer returns a scorer. Nil arguments fall back to the system
// clock and ParseDate.
func NewQualityScorer(clock Clock, parse DateParser) *QualityScorer {
	if clock == nil {
		clock = SystemClock{}
	}
	if parse == nil {
		parse = ParseDate
	}
	return &QualityScorer{Clock: clock, Parse: parse}
}

// CalculateDataQuality scores data with the system clock.
func CalculateDataQuality(data []Record, requiredFields []string) QualityReport {
	return NewQualityScorer(nil, nil).Score(data, requiredFields)
}

// Score combines completeness, consistency and recency into one value in
// [0,1]:
//
//   - completeness: share of records where every required field is present
//     and not an empty string.
//   - consistency: over the numeric required fields, the mean of
//     1 - outliers/values, using DetectOutliers on each field's values.
//     It is 1 when no required field is numeric.
//   - recency: max(0, 1 - days since the latest date / 30), capped at 1
//     for dates in the future.
//
// An empty dataset scores 0 everywhere.
func (s *QualityScorer) Score(data []Record, requiredFields []string) QualityReport {
	if len(data) == 0 {
		return QualityReport{}
	}

	complete := 0
	for _, rec := range data {
		if allPresent(rec, requiredFields) {
			complete++
		}
	}
	completeness := float64(complete) / float64(len(data))

	consistency := s.consistency(data, requiredFields)

	daysSince := s.daysSinceLatest(data)
	recency := math.Min(1, math.Max(0, 1-daysSince/FreshnessDays))

	score := completeness*CompletenessWeight + consistency*ConsistencyWeight + recency*RecencyWeight

	return QualityReport{
		Score: round2(score),
		Details: QualityDetails{
			Completeness:    round2(completeness),
			Consistency:     round2(consistency),
			Recency:         round2(recency),
			TotalRecords:    len(data),
			CompleteRecords: complete,
			LatestDataAge:   int(math.Floor(daysSince)),
		},
	}
}

func allPresent(rec Record, fields []string) bool {
	for _, f := range fields {
		if !rec.Present(f) {
			return false
		}
	}
	return true
}

// consistency averages the inlier ratio over numeric required fields that
// hold at least one value.
func (s *QualityScorer) consistency(data []Record, requiredFields []string) float64 {
	ratios := make([]float64, 0, len(requiredFields))
	for _, field := range requiredFields {
		if !isNumericField(data, field) {
			continue
		}
		values := Column(data, field)
		if len(values) == 0 {
			continue
		}
		outliers := DetectOutliers(values).Outliers
		ratios = append(ratios, 1-float64(len(outliers))/float64(len(values)))
	}
	if len(ratios) == 0 {
		return 1
	}
	mean, _ := stats.Mean(ratios)
	return mean
}

// isNumericField types a field by the first record that sets it.
func isNumericField(data []Record, field string) bool {
	for _, rec := range data {
		if !rec.Has(field) {
			continue
		}
		_, ok := Numeric(rec[field])
		return ok
	}
	return false
}

// daysSinceLatest measures fractional days from now back to the newest
// parseable date. With no parseable date the Unix epoch is used.
func (s *QualityScorer) daysSinceLatest(data []Record) float64 {
	latest := time.Unix(0, 0).UTC()
	found := false
	for _, rec := range data {
		t, ok := s.Parse(rec.dateValue())
		if !ok {
			continue
		}
		if !found || t.After(latest) {
			latest = t
			found = true
		}
	}
	return s.Clock.Now().Sub(latest).Hours() / 24
}
