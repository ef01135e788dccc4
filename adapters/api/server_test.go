package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"adpulse/adapters/db"
	"adpulse/app"
	"adpulse/domain/analysis"
	"adpulse/internal/config"
	"adpulse/internal/dataproc"
	"adpulse/internal/errors"
	"adpulse/internal/logging"
	"adpulse/internal/telemetry"
	"adpulse/internal/testkit"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

type testServer struct {
	handler   http.Handler
	telemetry *telemetry.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()
	conn, err := db.OpenAndMigrate(ctx, db.DriverSQLite, filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	clock := dataproc.FixedClock(now)
	m := telemetry.NewMetrics()
	svc, err := app.NewAnalyticsService(
		db.NewMetricRepository(conn, clock),
		db.NewAnalysisRepository(conn),
		config.AnalysisConfig{},
		app.WithClock(clock),
		app.WithLogger(logging.Nop()),
		app.WithTelemetry(m),
	)
	require.NoError(t, err)

	server := NewServer(svc, conn, logging.Nop(), m).WithClock(clock)
	return &testServer{handler: server.Routes(), telemetry: m}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCompute_Normalize(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/compute/normalize", map[string]any{"series": []float64{10, 20, 30}})

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[dataproc.Normalized](t, rec)
	assert.Equal(t, []float64{0, 0.5, 1}, got.Normalized)
	assert.Equal(t, 10.0, got.Min)
	assert.Equal(t, 30.0, got.Max)
}

func TestCompute_Endpoints(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		path string
		body any
		want string
	}{
		{"/api/v1/compute/denormalize", map[string]any{"normalized": []float64{0, 1}, "min": 10, "max": 30}, `"values":[10,30]`},
		{"/api/v1/compute/outliers", map[string]any{"series": []float64{10, 12, 11, 13, 12, 100}}, `"index":5`},
		{"/api/v1/compute/moving-average", map[string]any{"series": []float64{1, 2, 3}, "window": 3}, `"values":[1.5,2,2.5]`},
		{"/api/v1/compute/features", map[string]any{"series": []float64{1, 2, 3}, "window": 2}, `"mean":1.5`},
		{"/api/v1/compute/sequences", map[string]any{"series": []float64{1, 2, 3}, "window": 2}, `"targets":[3]`},
		{"/api/v1/compute/correlation", map[string]any{"a": []float64{1, 2, 3}, "b": []float64{2, 4, 6}}, `"value":1`},
		{"/api/v1/compute/percentage-change", map[string]any{"oldValue": 0, "newValue": 5}, `"value":100`},
		{"/api/v1/compute/trend", map[string]any{"series": []float64{1, 2, 3, 4}, "window": 2}, `"direction":"up"`},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, tt.path, tt.body)

			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestCompute_CorrelationLengthMismatch(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/compute/correlation", map[string]any{"a": []float64{1, 2}, "b": []float64{1}})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.CodeLengthMismatch, decodeBody[errorResponse](t, rec).Code)
}

func TestCompute_ValidationErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := map[string]any{
		"/api/v1/compute/normalize":         map[string]any{},
		"/api/v1/compute/percentage-change": map[string]any{"oldValue": 1},
		"/api/v1/compute/training-data":     map[string]any{"records": []any{}, "targetField": "y"},
		"/api/v1/compute/group":             map[string]any{"records": []any{}, "period": "year"},
	}
	for path, body := range tests {
		t.Run(path, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, path, body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, errors.CodeValidationError, decodeBody[errorResponse](t, rec).Code)
		})
	}
}

func TestCompute_MalformedBody(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compute/normalize", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	ts.handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.CodeInvalidInput, decodeBody[errorResponse](t, rec).Code)
}

func TestCompute_GroupWeekly(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/compute/group", map[string]any{
		"records": []map[string]any{
			{"date": "2024-01-01", "clicks": 10, "ctr": 2},
			{"date": "2024-01-03", "clicks": 20, "ctr": 4},
			{"date": "2024-01-08", "clicks": 5},
		},
		"period":    "week",
		"sumFields": []string{"clicks"},
		"avgFields": []string{"ctr"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[groupResponse](t, rec)
	require.Len(t, got.Buckets, 2)
	assert.Equal(t, "2023-12-31", got.Buckets[0].Period)
	assert.Equal(t, 30.0, got.Buckets[0].Values["clicks"])
	assert.Equal(t, 3.0, got.Buckets[0].Values["ctr"])
	assert.Equal(t, 0.0, got.Buckets[1].Values["ctr"])
}

func TestCompute_TrainingDataAndQuality(t *testing.T) {
	ts := newTestServer(t)
	records := []map[string]any{
		{"date": "2024-03-30", "x": 1, "y": 10},
		{"date": "2024-03-31", "x": 3, "y": 30},
		{"date": "2024-03-31", "y": 20},
	}

	rec := ts.do(t, http.MethodPost, "/api/v1/compute/training-data", map[string]any{
		"records": records, "targetField": "y", "featureFields": []string{"x"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	dataset := decodeBody[dataproc.TrainingDataset](t, rec)
	assert.Equal(t, 2, dataset.Metadata.Count)
	assert.Equal(t, []float64{0, 1}, dataset.Targets)
	assert.Equal(t, 1.0, testutil.ToFloat64(ts.telemetry.RecordsDropped.WithLabelValues("training")))

	rec = ts.do(t, http.MethodPost, "/api/v1/compute/quality", map[string]any{
		"records": records, "requiredFields": []string{"date", "x"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	quality := decodeBody[dataproc.QualityReport](t, rec)
	assert.Equal(t, 3, quality.Details.TotalRecords)
	assert.Equal(t, 2, quality.Details.CompleteRecords)
}

func TestSources(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/sources", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"google_ads"`)
	assert.Contains(t, rec.Body.String(), `"name":"wpmu"`)
}

func TestIngestReportAndHistory(t *testing.T) {
	ts := newTestServer(t)
	records, err := testkit.NewMetricsGenerator(testkit.DefaultMetricsConfig()).Generate()
	require.NoError(t, err)

	rec := ts.do(t, http.MethodPost, "/api/v1/sources/google_ads/accounts/acct-1/records", map[string]any{"records": records})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 30, decodeBody[ingestResponse](t, rec).Ingested)

	rec = ts.do(t, http.MethodGet, "/api/v1/sources/google_ads/accounts/acct-1/report?days=30", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decodeBody[analysis.Report](t, rec)
	assert.Equal(t, analysis.ModelStatistical, report.ModelVersion)
	assert.Equal(t, 30, report.RecordCount)

	rec = ts.do(t, http.MethodGet, "/api/v1/sources/google_ads/accounts/acct-1/report?days=30&format=html", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Google Ads report for acct-1")

	rec = ts.do(t, http.MethodGet, "/api/v1/sources/google_ads/accounts/acct-1/report?format=xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())

	rec = ts.do(t, http.MethodGet, "/api/v1/sources/google_ads/accounts/acct-1/analyses?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]analysis.Report](t, rec), 1)

	rec = ts.do(t, http.MethodGet, "/api/v1/sources/google_ads/training-data?days=90", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30, decodeBody[dataproc.TrainingDataset](t, rec).Metadata.Count)
}

func TestReport_Errors(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/sources/tiktok/accounts/acct-1/report", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.CodeUnknownSource, decodeBody[errorResponse](t, rec).Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/sources/google_ads/accounts/acct-1/report?days=-1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/v1/sources/google_ads/accounts/acct-1/report?format=pdf", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReport_FallbackWithoutHistory(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/sources/facebook/accounts/new/report", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody[analysis.Report](t, rec)
	assert.Equal(t, analysis.ModelFallback, report.ModelVersion)
	assert.Equal(t, 0.3, report.ConfidenceScore)
}

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	ts.do(t, http.MethodGet, "/api/v1/sources", nil)
	rec = ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `adpulse_http_requests_total{code="200",route="/api/v1/sources"} 1`)
}
