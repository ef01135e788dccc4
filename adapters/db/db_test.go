package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"adpulse/domain/analysis"
	"adpulse/internal/dataproc"
	"adpulse/internal/errors"
	"adpulse/internal/migration"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conn, err := OpenAndMigrate(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "adpulse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestOpen_RejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn")

	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestMigrationRunner_Idempotent(t *testing.T) {
	conn := newTestDB(t)

	runner := migration.NewRunner()
	require.NoError(t, runner.Run(context.Background(), conn))
	assert.Equal(t, "1.0.0", runner.Version())
}

func TestMetricRepository_UpsertAndHistory(t *testing.T) {
	ctx := context.Background()
	repo := NewMetricRepository(newTestDB(t), dataproc.FixedClock(today))

	n, err := repo.Upsert(ctx, "google_ads", "acct-1", []dataproc.Record{
		{"date": "2024-03-10", "clicks": 30.0},
		{"date": "2024-03-08T09:00:00Z", "clicks": 10.0},
		{"date": "2024-03-09", "clicks": 20.0},
		{"date": "2024-02-01", "clicks": 99.0},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	history, err := repo.History(ctx, "google_ads", "acct-1", 7)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []float64{10, 20, 30}, dataproc.Column(history, "clicks"))
	assert.Equal(t, "2024-03-08", history[0]["date"])
	assert.Equal(t, "acct-1", history[0]["account_id"])
}

func TestMetricRepository_UpsertReplacesDay(t *testing.T) {
	ctx := context.Background()
	repo := NewMetricRepository(newTestDB(t), dataproc.FixedClock(today))

	_, err := repo.Upsert(ctx, "facebook", "acct-1", []dataproc.Record{{"date": "2024-03-09", "reach": 100.0}})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, "facebook", "acct-1", []dataproc.Record{{"date": "2024-03-09", "reach": 250.0}})
	require.NoError(t, err)

	history, err := repo.History(ctx, "facebook", "acct-1", 30)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 250.0, history[0]["reach"])
}

func TestMetricRepository_UpsertRejectsUndatedRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewMetricRepository(newTestDB(t), dataproc.FixedClock(today))

	_, err := repo.Upsert(ctx, "facebook", "acct-1", []dataproc.Record{
		{"date": "2024-03-09", "reach": 1.0},
		{"reach": 2.0},
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))

	history, err := repo.History(ctx, "facebook", "acct-1", 30)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMetricRepository_TrainingDataSpansAccounts(t *testing.T) {
	ctx := context.Background()
	repo := NewMetricRepository(newTestDB(t), dataproc.FixedClock(today))

	_, err := repo.Upsert(ctx, "analytics", "b", []dataproc.Record{{"date": "2024-03-09", "sessions": 2.0}})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, "analytics", "a", []dataproc.Record{{"date": "2024-03-09", "sessions": 1.0}})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, "google_ads", "a", []dataproc.Record{{"date": "2024-03-09", "clicks": 5.0}})
	require.NoError(t, err)

	records, err := repo.TrainingData(ctx, "analytics", 90)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, dataproc.Column(records, "sessions"))
}

func TestAnalysisRepository_SaveAndRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewAnalysisRepository(newTestDB(t))

	for i, version := range []string{analysis.ModelFallback, analysis.ModelStatistical} {
		report := &analysis.Report{
			Source:          "google_ads",
			AccountID:       "acct-1",
			Days:            30,
			ModelVersion:    version,
			ConfidenceScore: 0.5,
			Insights:        []string{"clicks are rising"},
			Weekly: []dataproc.AggregatedBucket{
				{Period: "2024-03-03", Count: 7, Values: map[string]float64{"clicks": 140}},
			},
			CreatedAt: today.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.Save(ctx, report))
		assert.False(t, report.ID.IsEmpty())
	}

	reports, err := repo.Recent(ctx, "google_ads", "acct-1", 10)
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, analysis.ModelStatistical, reports[0].ModelVersion)
	assert.True(t, reports[0].CreatedAt.Equal(today.Add(time.Hour)))
	assert.Equal(t, 140.0, reports[0].Weekly[0].Values["clicks"])

	limited, err := repo.Recent(ctx, "google_ads", "acct-1", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := repo.Recent(ctx, "google_ads", "other", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
