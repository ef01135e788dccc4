package db

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"adpulse/internal/dataproc"
	"adpulse/internal/errors"
	"adpulse/ports"

	"github.com/jmoiron/sqlx"
)

// metricRepository implements ports.MetricRepository
type metricRepository struct {
	conn  *sqlx.DB
	clock dataproc.Clock
}

// NewMetricRepository creates a metric repository. History windows end at
// the clock's current day.
func NewMetricRepository(conn *sqlx.DB, clock dataproc.Clock) ports.MetricRepository {
	if clock == nil {
		clock = dataproc.SystemClock{}
	}
	return &metricRepository{conn: conn, clock: clock}
}

type metricRow struct {
	AccountID string `db:"account_id"`
	Date      string `db:"date"`
	Payload   string `db:"payload"`
}

// Upsert writes records keyed by day. Records without a parseable date are
// rejected before anything is written.
func (r *metricRepository) Upsert(ctx context.Context, source, accountID string, records []dataproc.Record) (int, error) {
	type pending struct {
		day     string
		payload []byte
	}

	rows := make([]pending, 0, len(records))
	for i, rec := range records {
		t, ok := rec.Time()
		if !ok {
			return 0, errors.InvalidInput(fmt.Sprintf("record %d has no parseable date", i))
		}
		day := dataproc.PeriodDay.Key(t)

		stored := maps.Clone(rec)
		stored[dataproc.FieldDate] = day

		payload, err := json.Marshal(stored)
		if err != nil {
			return 0, errors.InvalidInput(fmt.Sprintf("record %d is not serializable: %v", i, err))
		}
		rows = append(rows, pending{day: day, payload: payload})
	}

	query := r.conn.Rebind(`INSERT INTO metric_records (source, account_id, date, payload, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (source, account_id, date)
		DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`)

	tx, err := r.conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, errors.DatabaseError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	now := formatTime(r.clock.Now())
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, query, source, accountID, row.day, string(row.payload), now); err != nil {
			return 0, errors.DatabaseError("failed to upsert metric record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.DatabaseError("failed to commit metric records", err)
	}
	return len(rows), nil
}

// History returns the account's records for the last days days
func (r *metricRepository) History(ctx context.Context, source, accountID string, days int) ([]dataproc.Record, error) {
	from, to := r.window(days)

	var rows []metricRow
	query := r.conn.Rebind(`SELECT account_id, date, payload FROM metric_records
		WHERE source = ? AND account_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC`)
	if err := r.conn.SelectContext(ctx, &rows, query, source, accountID, from, to); err != nil {
		return nil, errors.DatabaseError("failed to load metric history", err)
	}
	return decodeRows(rows)
}

// TrainingData returns every account's records for the last days days
func (r *metricRepository) TrainingData(ctx context.Context, source string, days int) ([]dataproc.Record, error) {
	from, to := r.window(days)

	var rows []metricRow
	query := r.conn.Rebind(`SELECT account_id, date, payload FROM metric_records
		WHERE source = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, account_id ASC`)
	if err := r.conn.SelectContext(ctx, &rows, query, source, from, to); err != nil {
		return nil, errors.DatabaseError("failed to load training data", err)
	}
	return decodeRows(rows)
}

// window returns the inclusive day range of the last days days ending today
func (r *metricRepository) window(days int) (string, string) {
	if days < 1 {
		days = 1
	}
	today := r.clock.Now().UTC()
	from := today.AddDate(0, 0, -(days - 1))
	return dataproc.PeriodDay.Key(from), dataproc.PeriodDay.Key(today)
}

func decodeRows(rows []metricRow) ([]dataproc.Record, error) {
	records := make([]dataproc.Record, 0, len(rows))
	for _, row := range rows {
		var rec dataproc.Record
		if err := json.Unmarshal([]byte(row.Payload), &rec); err != nil {
			return nil, errors.DatabaseError("corrupt payload for "+row.Date, err)
		}
		rec[dataproc.FieldDate] = row.Date
		if _, ok := rec["account_id"]; !ok {
			rec["account_id"] = row.AccountID
		}
		records = append(records, rec)
	}
	return records, nil
}
