package dataproc

// Scale is the (min, max) pair a series was normalized with.
type Scale struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FieldScale is the Scale of one named feature column.
type FieldScale struct {
	Field string  `json:"field"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// TrainingMetadata records how a TrainingDataset was built. Count is the number
// of records that survived filtering. The remaining fields are omitted when
// Count is 0.
type TrainingMetadata struct {
	Count                int          `json:"count"`
	FeatureFields        []string     `json:"featureFields,omitempty"`
	TargetField          string       `json:"targetField,omitempty"`
	FeatureNormalization []FieldScale `json:"featureNormalization,omitempty"`
	TargetNormalization  *Scale       `json:"targetNormalization,omitempty"`
}

// TrainingDataset is a normalized feature matrix and target vector.
type TrainingDataset struct {
	Features [][]float64      `json:"features"`
	Targets  []float64        `json:"targets"`
	Metadata TrainingMetadata `json:"metadata"`
}

// Dropped returns how many of total input records were filtered out.
func (d TrainingDataset) Dropped(total int) int {
	return total - d.Metadata.Count
}

// PrepareTrainingData builds a [0,1]-scaled training set from raw records.
//
// Records missing the target or any feature field are dropped, with no
// imputation. Non-numeric values count as missing. Each feature column and
// the target vector are normalized independently. The per-column scales are
// kept so predictions can be mapped back with Denormalize. If nothing
// survives, the result is empty with Metadata.Count == 0.
func PrepareTrainingData(raw []Record, targetField string, featureFields []string) TrainingDataset {
	rows := make([][]float64, 0, len(raw))
	targets := make([]float64, 0, len(raw))

	for _, rec := range raw {
		target, ok := rec.Float(targetField)
		if !ok {
			continue
		}
		row, complete := featureRow(rec, featureFields)
		if !complete {
			continue
		}
		rows = append(rows, row)
		targets = append(targets, target)
	}

	if len(rows) == 0 {
		return TrainingDataset{
			Features: [][]float64{},
			Targets:  []float64{},
			Metadata: TrainingMetadata{Count: 0},
		}
	}

	matrix := make([][]float64, len(rows))
	for i := range matrix {
		matrix[i] = make([]float64, len(featureFields))
	}

	scales := make([]FieldScale, len(featureFields))
	column := make([]float64, len(rows))
	for j, field := range featureFields {
		for i, row := range rows {
			column[i] = row[j]
		}
		norm := Normalize(column)
		for i, v := range norm.Normalized {
			matrix[i][j] = v
		}
		scales[j] = FieldScale{Field: field, Min: norm.Min, Max: norm.Max}
	}

	normTargets := Normalize(targets)
	fields := make([]string, len(featureFields))
	copy(fields, featureFields)

	return TrainingDataset{
		Features: matrix,
		Targets:  normTargets.Normalized,
		Metadata: TrainingMetadata{
			Count:                len(rows),
			FeatureFields:        fields,
			TargetField:          targetField,
			FeatureNormalization: scales,
			TargetNormalization:  &Scale{Min: normTargets.Min, Max: normTargets.Max},
		},
	}
}

func featureRow(rec Record, fields []string) ([]float64, bool) {
	row := make([]float64, len(fields))
	for j, field := range fields {
		v, ok := rec.Float(field)
		if !ok {
			return nil, false
		}
		row[j] = v
	}
	return row, true
}
