package dataproc

import "slices"

// DefaultSequenceLength is the look-back used when building training sequences.
const DefaultSequenceLength = 30

// Sequences pairs each look-back window with the value that follows it.
type Sequences struct {
	Sequences [][]float64 `json:"sequences"`
	Targets   []float64   `json:"targets"`
}

// TimeSeriesSequences slides a window of sequenceLength over series. For every
// i in [0, n-sequenceLength) it emits series[i:i+sequenceLength] with target
// series[i+sequenceLength]. Sequences are copies and never alias series.
//
// When n <= sequenceLength, or sequenceLength < 1, both outputs are empty.
func TimeSeriesSequences(series []float64, sequenceLength int) Sequences {
	out := Sequences{Sequences: [][]float64{}, Targets: []float64{}}
	if sequenceLength < 1 || len(series) <= sequenceLength {
		return out
	}

	count := len(series) - sequenceLength
	out.Sequences = make([][]float64, 0, count)
	out.Targets = make([]float64, 0, count)
	for i := 0; i < count; i++ {
		out.Sequences = append(out.Sequences, slices.Clone(series[i:i+sequenceLength]))
		out.Targets = append(out.Targets, series[i+sequenceLength])
	}
	return out
}
