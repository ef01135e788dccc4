package app

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"adpulse/domain/analysis"
	"adpulse/domain/core"
	"adpulse/domain/metrics"
	"adpulse/internal/config"
	"adpulse/internal/dataproc"
	"adpulse/internal/errors"
	"adpulse/internal/logging"
	"adpulse/internal/telemetry"
	"adpulse/ports"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

// LowQualityThreshold is the score under which a report warns about its data
const LowQualityThreshold = 0.7

// AnalyticsService turns stored metric history into reports
type AnalyticsService struct {
	records   ports.MetricRepository
	analyses  ports.AnalysisRepository
	cfg       config.AnalysisConfig
	clock     dataproc.Clock
	logger    *logging.Logger
	telemetry *telemetry.Metrics
	cache     *lru.Cache[string, *analysis.Report]
}

// Option customizes an AnalyticsService
type Option func(*AnalyticsService)

// WithClock sets the clock used for report timestamps and data age
func WithClock(clock dataproc.Clock) Option {
	return func(s *AnalyticsService) { s.clock = clock }
}

// WithLogger sets the service logger
func WithLogger(logger *logging.Logger) Option {
	return func(s *AnalyticsService) { s.logger = logger }
}

// WithTelemetry sets the collectors updated by the service
func WithTelemetry(m *telemetry.Metrics) Option {
	return func(s *AnalyticsService) { s.telemetry = m }
}

// NewAnalyticsService creates the service
func NewAnalyticsService(records ports.MetricRepository, analyses ports.AnalysisRepository, cfg config.AnalysisConfig, opts ...Option) (*AnalyticsService, error) {
	s := &AnalyticsService{
		records:  records,
		analyses: analyses,
		cfg:      cfg.WithDefaults(),
		clock:    dataproc.SystemClock{},
		logger:   logging.Global(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.telemetry == nil {
		s.telemetry = telemetry.NewMetrics()
	}

	cache, err := lru.New[string, *analysis.Report](s.cfg.CacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create report cache")
	}
	s.cache = cache

	return s, nil
}

// Sources lists the supported data sources
func (s *AnalyticsService) Sources() []metrics.Source {
	return metrics.All()
}

// Ingest stores daily records for an account and drops its cached reports
func (s *AnalyticsService) Ingest(ctx context.Context, source, accountID string, records []dataproc.Record) (int, error) {
	if _, err := metrics.MustLookup(source); err != nil {
		return 0, err
	}
	if strings.TrimSpace(accountID) == "" {
		return 0, errors.InvalidInput("account id is required")
	}

	n, err := s.records.Upsert(ctx, source, accountID, records)
	if err != nil {
		return 0, err
	}

	s.invalidate(source, accountID)
	s.telemetry.RecordsIngested.WithLabelValues(source).Add(float64(n))
	s.logger.Info("records ingested", "source", source, "account", accountID, "count", n)
	return n, nil
}

// Analyze builds, persists and caches a report over the last days days.
// A non-positive days uses the configured history window.
func (s *AnalyticsService) Analyze(ctx context.Context, source, accountID string, days int) (*analysis.Report, error) {
	src, err := metrics.MustLookup(source)
	if err != nil {
		return nil, err
	}
	if days < 1 {
		days = s.cfg.HistoryDays
	}

	key := cacheKey(source, accountID, days, s.clock.Now())
	if report, ok := s.cache.Get(key); ok {
		return report, nil
	}

	history, err := s.records.History(ctx, source, accountID, days)
	if err != nil {
		return nil, err
	}

	var report *analysis.Report
	if len(history) == 0 {
		report = s.fallbackReport(src, accountID, days)
		s.logger.Warn("no history, serving fallback analysis", "source", source, "account", accountID, "days", days)
	} else {
		report, err = s.buildReport(ctx, src, accountID, days, history)
		if err != nil {
			return nil, err
		}
	}

	if err := s.analyses.Save(ctx, report); err != nil {
		return nil, err
	}

	s.cache.Add(key, report)
	s.telemetry.AnalysesTotal.WithLabelValues(source).Inc()
	s.logger.Info("analysis generated",
		"source", source,
		"account", accountID,
		"records", report.RecordCount,
		"model", report.ModelVersion,
		"confidence", report.ConfidenceScore,
	)
	return report, nil
}

// Recent returns the newest stored reports of an account
func (s *AnalyticsService) Recent(ctx context.Context, source, accountID string, limit int) ([]*analysis.Report, error) {
	if _, err := metrics.MustLookup(source); err != nil {
		return nil, err
	}
	return s.analyses.Recent(ctx, source, accountID, limit)
}

// PrepareTraining assembles a model-ready dataset from every account of a
// source, using the catalog's target and feature fields
func (s *AnalyticsService) PrepareTraining(ctx context.Context, source string, days int) (dataproc.TrainingDataset, error) {
	src, err := metrics.MustLookup(source)
	if err != nil {
		return dataproc.TrainingDataset{}, err
	}
	if days < 1 {
		days = s.cfg.TrainingDays
	}

	records, err := s.records.TrainingData(ctx, source, days)
	if err != nil {
		return dataproc.TrainingDataset{}, err
	}

	dataset := dataproc.PrepareTrainingData(records, src.TargetField, src.FeatureFields)
	if dropped := dataset.Dropped(len(records)); dropped > 0 {
		s.telemetry.RecordsDropped.WithLabelValues("training").Add(float64(dropped))
		s.logger.Debug("incomplete training rows dropped", "source", source, "dropped", dropped, "kept", dataset.Metadata.Count)
	}
	return dataset, nil
}

func (s *AnalyticsService) buildReport(ctx context.Context, src metrics.Source, accountID string, days int, history []dataproc.Record) (*analysis.Report, error) {
	quality := dataproc.NewQualityScorer(s.clock, nil).Score(history, src.RequiredFields)

	summaries := make([]*analysis.MetricSummary, len(src.Metrics))
	g, gctx := errgroup.WithContext(ctx)
	for i, metric := range src.Metrics {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			summaries[i] = s.summarize(metric, history)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "metric analysis interrupted")
	}

	report := &analysis.Report{
		ID:              core.NewID(),
		Source:          string(src.Name),
		AccountID:       accountID,
		Days:            days,
		RecordCount:     len(history),
		Quality:         quality,
		Metrics:         []analysis.MetricSummary{},
		Anomalies:       []analysis.Anomaly{},
		Predictions:     []dataproc.Prediction{},
		Recommendations: slices.Clone(src.Recommendations),
		ModelVersion:    analysis.ModelStatistical,
		CreatedAt:       s.clock.Now(),
	}

	confidences := make([]float64, 0, len(summaries))
	for _, summary := range summaries {
		if summary == nil {
			continue
		}
		report.Metrics = append(report.Metrics, *summary)
		report.Predictions = append(report.Predictions, summary.Forecast)
		confidences = append(confidences, summary.Trend.Confidence)
		report.Anomalies = append(report.Anomalies, anomalies(summary, history)...)
	}

	grouped := dataproc.GroupByTimePeriod(history, dataproc.PeriodWeek)
	report.Weekly = dataproc.AggregateGroupedData(grouped, src.SumFields, src.AvgFields)

	report.Insights = s.insights(src, report)

	if len(confidences) > 0 {
		mean, _ := stats.Mean(confidences)
		report.ConfidenceScore = math.Round(mean*quality.Score*100) / 100
	}

	return report, nil
}

// summarize analyzes one metric; nil when the metric has no numeric values
func (s *AnalyticsService) summarize(metric string, history []dataproc.Record) *analysis.MetricSummary {
	series := dataproc.Column(history, metric)
	if len(series) == 0 {
		return nil
	}

	mean, _ := stats.Mean(series)
	forecast := dataproc.Forecast(series, s.cfg.ForecastHorizon)
	forecast.Metric = metric
	outliers := dataproc.DetectOutliers(series)

	return &analysis.MetricSummary{
		Metric:   metric,
		Latest:   series[len(series)-1],
		Mean:     math.Round(mean*100) / 100,
		Trend:    dataproc.CalculateTrend(series, s.cfg.FeatureWindow),
		Forecast: forecast,
		Smoothed: dataproc.MovingAverage(series, s.cfg.SmoothingWindow),
		Outliers: outliers.Outliers,
		Bounds:   outliers.Bounds,
	}
}

// anomalies maps outlier indexes of a metric's series back to record dates
func anomalies(summary *analysis.MetricSummary, history []dataproc.Record) []analysis.Anomaly {
	if len(summary.Outliers) == 0 {
		return nil
	}

	dates := make([]string, 0, len(history))
	for _, rec := range history {
		if _, ok := rec.Float(summary.Metric); ok {
			date, _ := rec[dataproc.FieldDate].(string)
			dates = append(dates, date)
		}
	}

	out := make([]analysis.Anomaly, 0, len(summary.Outliers))
	for _, o := range summary.Outliers {
		out = append(out, analysis.Anomaly{
			Metric: summary.Metric,
			Date:   dates[o.Index],
			Value:  o.Value,
			Lower:  summary.Bounds.Lower,
			Upper:  summary.Bounds.Upper,
		})
	}
	return out
}

func (s *AnalyticsService) insights(src metrics.Source, report *analysis.Report) []string {
	var out []string
	for _, m := range report.Metrics {
		switch m.Trend.Direction {
		case dataproc.DirectionUp:
			out = append(out, fmt.Sprintf("%s increased %.2f%% versus the previous period", humanize(m.Metric), m.Trend.ChangePercentage))
		case dataproc.DirectionDown:
			out = append(out, fmt.Sprintf("%s decreased %.2f%% versus the previous period", humanize(m.Metric), -m.Trend.ChangePercentage))
		}
	}
	if len(out) == 0 {
		out = append(out, "Performance appears within normal ranges")
	}

	if n := len(report.Anomalies); n > 0 {
		out = append(out, fmt.Sprintf("%d unusual daily values detected across %s metrics", n, src.Label))
	}
	if report.Quality.Score < LowQualityThreshold {
		out = append(out, fmt.Sprintf("Data quality is %.0f%%; check for missing or stale fields", report.Quality.Score*100))
	}
	return out
}

// fallbackReport is served when an account has no stored history
func (s *AnalyticsService) fallbackReport(src metrics.Source, accountID string, days int) *analysis.Report {
	source := string(src.Name)
	return &analysis.Report{
		ID:        core.NewID(),
		Source:    source,
		AccountID: accountID,
		Days:      days,
		Metrics:   []analysis.MetricSummary{},
		Weekly:    []dataproc.AggregatedBucket{},
		Insights: []string{
			"Basic analysis available - AI features temporarily offline",
			"Performance appears within normal ranges",
			"Consider manual review of recent changes",
		},
		Anomalies:   []analysis.Anomaly{},
		Predictions: []dataproc.Prediction{},
		Recommendations: []string{
			"Review " + source + " performance manually",
			"Check for obvious optimization opportunities",
			"Monitor key metrics closely",
		},
		ConfidenceScore: analysis.FallbackConfidence,
		ModelVersion:    analysis.ModelFallback,
		CreatedAt:       s.clock.Now(),
	}
}

func (s *AnalyticsService) invalidate(source, accountID string) {
	prefix := source + "/" + accountID + "/"
	for _, key := range s.cache.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.cache.Remove(key)
		}
	}
}

// cacheKey includes the current day so a report never outlives the window it
// was built for
func cacheKey(source, accountID string, days int, now time.Time) string {
	return fmt.Sprintf("%s/%s/%d/%s", source, accountID, days, dataproc.PeriodDay.Key(now))
}

// humanize turns cost_per_click into "Cost per click"
func humanize(field string) string {
	words := strings.ReplaceAll(field, "_", " ")
	if words == "" {
		return words
	}
	return strings.ToUpper(words[:1]) + words[1:]
}
