package ports

import (
	"context"

	"adpulse/internal/dataproc"
)

// MetricRepository stores daily metric records per source and account.
// Records are keyed by their date; writing a date twice replaces it.
type MetricRepository interface {
	Upsert(ctx context.Context, source, accountID string, records []dataproc.Record) (int, error)

	// History returns the last days days of records ending today, oldest first
	History(ctx context.Context, source, accountID string, days int) ([]dataproc.Record, error)

	// TrainingData returns the records of every account of a source for the
	// last days days, oldest first
	TrainingData(ctx context.Context, source string, days int) ([]dataproc.Record, error)
}
