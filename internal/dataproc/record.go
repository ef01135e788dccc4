package dataproc

import (
	"encoding/json"
	"math"
	"time"
)

// Record is one time-stamped observation keyed by field name.
// Values are scalars: numbers, strings or date-like strings.
type Record map[string]any

// Date fields consulted, in order, when a record's timestamp is needed.
const (
	FieldDate      = "date"
	FieldCreatedAt = "created_at"
)

// Numeric coerces v to float64 when it holds a Go number or a json.Number.
// Strings are never coerced; importers convert numeric text at ingestion.
func Numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Float returns the numeric value of field, if any.
func (r Record) Float(field string) (float64, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return 0, false
	}
	return Numeric(v)
}

// Has reports whether field is set to a non-nil value.
func (r Record) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

// Present reports whether field is set to a non-nil, non-empty-string value.
func (r Record) Present(field string) bool {
	v, ok := r[field]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString && s == "" {
		return false
	}
	return true
}

// dateValue returns the value used as the record's timestamp: date when set,
// created_at otherwise.
func (r Record) dateValue() any {
	if r.Present(FieldDate) {
		return r[FieldDate]
	}
	return r[FieldCreatedAt]
}

// Time parses the record's timestamp with ParseDate.
func (r Record) Time() (time.Time, bool) {
	return ParseDate(r.dateValue())
}

// Column collects the numeric values of field across records, in input order.
// Records where the field is absent, nil or non-numeric are skipped.
func Column(records []Record, field string) []float64 {
	values := make([]float64, 0, len(records))
	for _, rec := range records {
		if v, ok := rec.Float(field); ok {
			values = append(values, v)
		}
	}
	return values
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
