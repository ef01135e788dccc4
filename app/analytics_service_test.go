package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"adpulse/adapters/db"
	"adpulse/domain/analysis"
	"adpulse/internal/config"
	"adpulse/internal/dataproc"
	"adpulse/internal/errors"
	"adpulse/internal/logging"
	"adpulse/internal/telemetry"
	"adpulse/internal/testkit"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

type mockMetricRepository struct {
	mock.Mock
}

func (m *mockMetricRepository) Upsert(ctx context.Context, source, accountID string, records []dataproc.Record) (int, error) {
	args := m.Called(ctx, source, accountID, records)
	return args.Int(0), args.Error(1)
}

func (m *mockMetricRepository) History(ctx context.Context, source, accountID string, days int) ([]dataproc.Record, error) {
	args := m.Called(ctx, source, accountID, days)
	return args.Get(0).([]dataproc.Record), args.Error(1)
}

func (m *mockMetricRepository) TrainingData(ctx context.Context, source string, days int) ([]dataproc.Record, error) {
	args := m.Called(ctx, source, days)
	return args.Get(0).([]dataproc.Record), args.Error(1)
}

type mockAnalysisRepository struct {
	mock.Mock
}

func (m *mockAnalysisRepository) Save(ctx context.Context, report *analysis.Report) error {
	return m.Called(ctx, report).Error(0)
}

func (m *mockAnalysisRepository) Recent(ctx context.Context, source, accountID string, limit int) ([]*analysis.Report, error) {
	args := m.Called(ctx, source, accountID, limit)
	return args.Get(0).([]*analysis.Report), args.Error(1)
}

func newMockedService(t *testing.T) (*AnalyticsService, *mockMetricRepository, *mockAnalysisRepository, *telemetry.Metrics) {
	t.Helper()
	records := &mockMetricRepository{}
	analyses := &mockAnalysisRepository{}
	m := telemetry.NewMetrics()

	svc, err := NewAnalyticsService(records, analyses, config.AnalysisConfig{},
		WithClock(dataproc.FixedClock(now)),
		WithLogger(logging.Nop()),
		WithTelemetry(m),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		records.AssertExpectations(t)
		analyses.AssertExpectations(t)
	})
	return svc, records, analyses, m
}

func generate(t *testing.T, config testkit.MetricsGeneratorConfig) []dataproc.Record {
	t.Helper()
	records, err := testkit.NewMetricsGenerator(config).Generate()
	require.NoError(t, err)
	return records
}

func TestAnalyze_EmptyHistoryFallsBack(t *testing.T) {
	ctx := context.Background()
	svc, records, analyses, m := newMockedService(t)

	records.On("History", ctx, "facebook", "acct-1", 30).Return([]dataproc.Record{}, nil).Once()
	analyses.On("Save", ctx, mock.AnythingOfType("*analysis.Report")).Return(nil).Once()

	report, err := svc.Analyze(ctx, "facebook", "acct-1", 0)

	require.NoError(t, err)
	assert.True(t, report.IsFallback())
	assert.Equal(t, analysis.FallbackConfidence, report.ConfidenceScore)
	assert.Equal(t, 30, report.Days)
	assert.Contains(t, report.Insights, "Basic analysis available - AI features temporarily offline")
	assert.Equal(t, "Review facebook performance manually", report.Recommendations[0])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("facebook")))
}

func TestAnalyze_CachesUntilIngest(t *testing.T) {
	ctx := context.Background()
	svc, records, analyses, _ := newMockedService(t)
	history := generate(t, testkit.DefaultMetricsConfig())

	records.On("History", ctx, "google_ads", "acct-1", 30).Return(history, nil).Twice()
	analyses.On("Save", ctx, mock.Anything).Return(nil).Twice()
	records.On("Upsert", ctx, "google_ads", "acct-1", history[:1]).Return(1, nil).Once()

	first, err := svc.Analyze(ctx, "google_ads", "acct-1", 30)
	require.NoError(t, err)
	cached, err := svc.Analyze(ctx, "google_ads", "acct-1", 30)
	require.NoError(t, err)
	assert.Same(t, first, cached)

	_, err = svc.Ingest(ctx, "google_ads", "acct-1", history[:1])
	require.NoError(t, err)

	fresh, err := svc.Analyze(ctx, "google_ads", "acct-1", 30)
	require.NoError(t, err)
	assert.NotSame(t, first, fresh)
}

// movableClock is a clock tests can advance
type movableClock struct {
	now time.Time
}

func (c *movableClock) Now() time.Time { return c.now }

func TestAnalyze_CacheExpiresWhenDayChanges(t *testing.T) {
	ctx := context.Background()
	records := &mockMetricRepository{}
	analyses := &mockAnalysisRepository{}
	clock := &movableClock{now: now}

	svc, err := NewAnalyticsService(records, analyses, config.AnalysisConfig{},
		WithClock(clock),
		WithLogger(logging.Nop()),
		WithTelemetry(telemetry.NewMetrics()),
	)
	require.NoError(t, err)

	history := generate(t, testkit.DefaultMetricsConfig())
	records.On("History", ctx, "google_ads", "acct-1", 30).Return(history, nil).Twice()
	analyses.On("Save", ctx, mock.Anything).Return(nil).Twice()

	first, err := svc.Analyze(ctx, "google_ads", "acct-1", 30)
	require.NoError(t, err)

	clock.now = now.Add(2 * time.Hour)
	sameDay, err := svc.Analyze(ctx, "google_ads", "acct-1", 30)
	require.NoError(t, err)
	assert.Same(t, first, sameDay)

	clock.now = now.AddDate(0, 0, 45)
	later, err := svc.Analyze(ctx, "google_ads", "acct-1", 30)
	require.NoError(t, err)

	assert.NotSame(t, first, later)
	assert.Equal(t, clock.now, later.CreatedAt)
	assert.Less(t, later.Quality.Details.Recency, first.Quality.Details.Recency)
	records.AssertNumberOfCalls(t, "History", 2)
	records.AssertExpectations(t)
	analyses.AssertExpectations(t)
}

func TestAnalyze_UnknownSource(t *testing.T) {
	svc, _, _, _ := newMockedService(t)

	_, err := svc.Analyze(context.Background(), "tiktok", "acct-1", 30)

	require.Error(t, err)
	assert.Equal(t, errors.CodeUnknownSource, errors.GetCode(err))
}

func TestAnalyze_PropagatesRepositoryError(t *testing.T) {
	ctx := context.Background()
	svc, records, _, _ := newMockedService(t)
	records.On("History", ctx, "analytics", "acct-1", 7).
		Return([]dataproc.Record(nil), errors.DatabaseError("boom", nil)).Once()

	_, err := svc.Analyze(ctx, "analytics", "acct-1", 7)

	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
}

func TestIngest_RequiresAccount(t *testing.T) {
	svc, _, _, _ := newMockedService(t)

	_, err := svc.Ingest(context.Background(), "google_ads", " ", []dataproc.Record{{"date": "2024-01-01"}})

	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestPrepareTraining_CountsDroppedRows(t *testing.T) {
	ctx := context.Background()
	svc, records, _, m := newMockedService(t)

	rows := generate(t, testkit.DefaultMetricsConfig())
	delete(rows[3], "conversions")
	records.On("TrainingData", ctx, "google_ads", 90).Return(rows, nil).Once()

	dataset, err := svc.PrepareTraining(ctx, "google_ads", 0)

	require.NoError(t, err)
	assert.Equal(t, 29, dataset.Metadata.Count)
	assert.Equal(t, "conversions", dataset.Metadata.TargetField)
	assert.Len(t, dataset.Features[0], 5)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsDropped.WithLabelValues("training")))
}

func TestAnalyze_EndToEndWithSQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := db.OpenAndMigrate(ctx, db.DriverSQLite, filepath.Join(t.TempDir(), "adpulse.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	clock := dataproc.FixedClock(now)
	svc, err := NewAnalyticsService(
		db.NewMetricRepository(conn, clock),
		db.NewAnalysisRepository(conn),
		config.AnalysisConfig{},
		WithClock(clock),
		WithLogger(logging.Nop()),
	)
	require.NoError(t, err)

	gen := testkit.DefaultMetricsConfig().InjectSpike(20, "clicks", 10)
	gen.Growth = 0.02
	n, err := svc.Ingest(ctx, "google_ads", "acct-1", generate(t, gen))
	require.NoError(t, err)
	require.Equal(t, 30, n)

	report, err := svc.Analyze(ctx, "google_ads", "acct-1", 30)
	require.NoError(t, err)

	assert.Equal(t, analysis.ModelStatistical, report.ModelVersion)
	assert.Equal(t, 30, report.RecordCount)
	assert.Len(t, report.Metrics, 7)
	assert.Len(t, report.Predictions, 7)
	assert.Equal(t, 1.0, report.Quality.Details.Completeness)
	assert.NotEmpty(t, report.Weekly)
	assert.InDelta(t, 0.5, report.ConfidenceScore, 0.5)
	assert.Equal(t, []string{
		"Optimize ad copy for mobile devices",
		"Test new keyword variations",
		"Adjust bidding strategy for peak hours",
		"Review negative keyword list",
	}, report.Recommendations)

	var spike *analysis.Anomaly
	for i, a := range report.Anomalies {
		if a.Metric == "clicks" && a.Date == "2024-03-22" {
			spike = &report.Anomalies[i]
		}
	}
	require.NotNil(t, spike, "expected the injected click spike to be reported")
	assert.Greater(t, spike.Value, spike.Upper)

	recent, err := svc.Recent(ctx, "google_ads", "acct-1", 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, report.ID, recent[0].ID)
	assert.Len(t, recent[0].Metrics, 7)
}

func TestRenderReport(t *testing.T) {
	report := &analysis.Report{
		Source:          "google_ads",
		AccountID:       "acct-1",
		Days:            7,
		RecordCount:     7,
		Insights:        []string{"Clicks increased 12.00% versus the previous period"},
		Recommendations: []string{"Review negative keyword list"},
		Metrics: []analysis.MetricSummary{{
			Metric: "clicks",
			Latest: 120,
			Mean:   100,
			Trend:  dataproc.Trend{Direction: dataproc.DirectionUp, ChangePercentage: 12, Confidence: 0.8},
		}},
		Weekly: []dataproc.AggregatedBucket{
			{Period: "2024-03-24", Count: 7, Values: map[string]float64{"clicks": 700}},
		},
		ModelVersion: analysis.ModelStatistical,
		CreatedAt:    now,
	}

	md, html := RenderReport(report)

	assert.Contains(t, md, "# Google Ads report for acct-1")
	assert.Contains(t, md, "| clicks | 120.00 | 100.00 | up | 12.00 |")
	assert.Contains(t, md, "- Review negative keyword list")
	assert.Contains(t, html, "<h1")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<li>Clicks increased 12.00% versus the previous period</li>")
}
