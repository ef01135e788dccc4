package db

import (
	"context"
	"encoding/json"

	"adpulse/domain/analysis"
	"adpulse/domain/core"
	"adpulse/internal/errors"
	"adpulse/ports"

	"github.com/jmoiron/sqlx"
)

// analysisRepository implements ports.AnalysisRepository
type analysisRepository struct {
	conn *sqlx.DB
}

// NewAnalysisRepository creates a report repository
func NewAnalysisRepository(conn *sqlx.DB) ports.AnalysisRepository {
	return &analysisRepository{conn: conn}
}

type analysisRow struct {
	ID        string `db:"id"`
	Payload   string `db:"payload"`
	CreatedAt string `db:"created_at"`
}

// Save inserts a report, assigning an ID when it has none
func (r *analysisRepository) Save(ctx context.Context, report *analysis.Report) error {
	if report.ID.IsEmpty() {
		report.ID = core.NewID()
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return errors.InternalError("failed to marshal report: " + err.Error())
	}

	query := r.conn.Rebind(`INSERT INTO analyses (
		id, source, account_id, model_version, confidence_score, payload, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err = r.conn.ExecContext(ctx, query,
		report.ID.String(), report.Source, report.AccountID, report.ModelVersion,
		report.ConfidenceScore, string(payload), formatTime(report.CreatedAt),
	)
	if err != nil {
		return errors.DatabaseError("failed to save analysis", err)
	}
	return nil
}

// Recent returns the newest reports of an account, newest first
func (r *analysisRepository) Recent(ctx context.Context, source, accountID string, limit int) ([]*analysis.Report, error) {
	if limit < 1 {
		limit = 10
	}

	var rows []analysisRow
	query := r.conn.Rebind(`SELECT id, payload, created_at FROM analyses
		WHERE source = ? AND account_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`)
	if err := r.conn.SelectContext(ctx, &rows, query, source, accountID, limit); err != nil {
		return nil, errors.DatabaseError("failed to load analyses", err)
	}

	reports := make([]*analysis.Report, 0, len(rows))
	for _, row := range rows {
		var report analysis.Report
		if err := json.Unmarshal([]byte(row.Payload), &report); err != nil {
			return nil, errors.DatabaseError("corrupt analysis payload "+row.ID, err)
		}
		report.ID = core.ID(row.ID)
		report.CreatedAt = parseTime(row.CreatedAt)
		reports = append(reports, &report)
	}
	return reports, nil
}
