package ports

import (
	"context"

	"adpulse/domain/analysis"
)

// AnalysisRepository persists generated reports
type AnalysisRepository interface {
	Save(ctx context.Context, report *analysis.Report) error
	Recent(ctx context.Context, source, accountID string, limit int) ([]*analysis.Report, error)
}
