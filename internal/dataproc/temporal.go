package dataproc

import (
	"encoding/json"
	"maps"
	"slices"
	"time"
)

// Period selects the calendar bucket used by GroupByTimePeriod.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod maps a name to a Period. Unknown names fall back to PeriodDay.
func ParsePeriod(name string) Period {
	switch Period(name) {
	case PeriodWeek:
		return PeriodWeek
	case PeriodMonth:
		return PeriodMonth
	default:
		return PeriodDay
	}
}

// Key returns the bucket key of t: YYYY-MM-DD for days, the YYYY-MM-DD of the
// preceding Sunday for weeks, YYYY-MM for months. Weeks start on Sunday, not
// on the ISO-8601 Monday. Keys are computed in UTC.
func (p Period) Key(t time.Time) string {
	t = t.UTC()
	switch p {
	case PeriodWeek:
		return t.AddDate(0, 0, -int(t.Weekday())).Format("2006-01-02")
	case PeriodMonth:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// Grouped maps a period key to the records that fall in it, in input order.
type Grouped map[string][]Record

// Keys returns the period keys in ascending order.
func (g Grouped) Keys() []string {
	return slices.Sorted(maps.Keys(g))
}

// GroupByTimePeriod buckets records by the calendar period of their date
// (or created_at) field. Records without a parseable date are left out.
func GroupByTimePeriod(records []Record, period Period) Grouped {
	return GroupByTimePeriodWith(records, period, ParseDate)
}

// GroupByTimePeriodWith is GroupByTimePeriod with a caller-supplied parser.
func GroupByTimePeriodWith(records []Record, period Period, parse DateParser) Grouped {
	grouped := make(Grouped)
	for _, rec := range records {
		t, ok := parse(rec.dateValue())
		if !ok {
			continue
		}
		key := period.Key(t)
		grouped[key] = append(grouped[key], rec)
	}
	return grouped
}

// AggregatedBucket summarizes one period. Values holds every requested sum
// and average field.
type AggregatedBucket struct {
	Period string
	Count  int
	Values map[string]float64
}

// MarshalJSON flattens the bucket into {"period", "count", <field>: value...}.
func (b AggregatedBucket) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(b.Values)+2)
	for k, v := range b.Values {
		flat[k] = v
	}
	flat["period"] = b.Period
	flat["count"] = b.Count
	return json.Marshal(flat)
}

// UnmarshalJSON reverses MarshalJSON.
func (b *AggregatedBucket) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	b.Values = make(map[string]float64, len(flat))
	for k, raw := range flat {
		switch k {
		case "period":
			if err := json.Unmarshal(raw, &b.Period); err != nil {
				return err
			}
		case "count":
			if err := json.Unmarshal(raw, &b.Count); err != nil {
				return err
			}
		default:
			var v float64
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			b.Values[k] = v
		}
	}
	return nil
}

// AggregateGroupedData reduces each group to a bucket. A sum field adds the
// numeric values of the bucket, with missing or non-numeric values counted as
// 0. An avg field takes the mean of the numeric values present, or 0 when
// there are none. Buckets are sorted by period key.
func AggregateGroupedData(grouped Grouped, sumFields, avgFields []string) []AggregatedBucket {
	buckets := make([]AggregatedBucket, 0, len(grouped))
	for _, period := range grouped.Keys() {
		items := grouped[period]
		bucket := AggregatedBucket{
			Period: period,
			Count:  len(items),
			Values: make(map[string]float64, len(sumFields)+len(avgFields)),
		}

		for _, field := range sumFields {
			var sum float64
			for _, item := range items {
				if v, ok := item.Float(field); ok {
					sum += v
				}
			}
			bucket.Values[field] = sum
		}

		for _, field := range avgFields {
			values := Column(items, field)
			if len(values) == 0 {
				bucket.Values[field] = 0
				continue
			}
			var sum float64
			for _, v := range values {
				sum += v
			}
			bucket.Values[field] = sum / float64(len(values))
		}

		buckets = append(buckets, bucket)
	}

	return buckets
}
