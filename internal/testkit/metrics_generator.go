package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"time"

	"adpulse/domain/metrics"
	"adpulse/internal/dataproc"
)

// MetricsGeneratorConfig configures the daily metrics generator
type MetricsGeneratorConfig struct {
	Source    string    `json:"source"`
	AccountID string    `json:"account_id"`
	Days      int       `json:"days"`
	EndDate   time.Time `json:"end_date"`
	Seed      int64     `json:"seed"`
	// Growth is the fractional day-over-day drift applied to every numeric
	// metric; 0.01 grows values by roughly 1% a day
	Growth float64 `json:"growth"`
	Spikes []Spike `json:"spikes"`
}

// Spike multiplies one metric on one day, counted from the oldest day
type Spike struct {
	Day    int     `json:"day"`
	Field  string  `json:"field"`
	Factor float64 `json:"factor"`
}

// DefaultMetricsConfig returns thirty days of Google Ads data ending on
// 2024-03-31
func DefaultMetricsConfig() MetricsGeneratorConfig {
	return MetricsGeneratorConfig{
		Source:    string(metrics.GoogleAds),
		AccountID: "demo-account",
		Days:      30,
		EndDate:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Seed:      42,
	}
}

// InjectSpike plants an outlier in the generated series
func (c MetricsGeneratorConfig) InjectSpike(day int, field string, factor float64) MetricsGeneratorConfig {
	c.Spikes = append(slices.Clone(c.Spikes), Spike{Day: day, Field: field, Factor: factor})
	return c
}

type metricRange struct {
	field    string
	min, max float64
	integer  bool
}

// sourceRanges are the plausible daily ranges of each provider's metrics
var sourceRanges = map[string][]metricRange{
	string(metrics.GoogleAds): {
		{"impressions", 40000, 60000, true},
		{"clicks", 2000, 3000, true},
		{"spend", 500, 900, false},
		{"conversions", 50, 80, true},
		{"ctr", 4.5, 6.5, false},
		{"cost_per_click", 0.8, 1.3, false},
		{"campaign_count", 10, 14, true},
	},
	string(metrics.Facebook): {
		{"impressions", 60000, 90000, true},
		{"clicks", 3500, 5000, true},
		{"spend", 800, 1400, false},
		{"conversions", 80, 120, true},
		{"ctr", 5.5, 8, false},
		{"cpp", 0.9, 1.5, false},
		{"frequency", 1.8, 2.6, false},
		{"reach", 25000, 40000, true},
	},
	string(metrics.Analytics): {
		{"sessions", 8000, 12000, true},
		{"users", 6000, 9000, true},
		{"pageviews", 25000, 40000, true},
		{"bounce_rate", 30, 50, false},
		{"avg_session_duration", 120, 180, false},
		{"goal_completions", 200, 300, true},
		{"revenue", 1000, 3000, false},
	},
	string(metrics.SearchConsole): {
		{"total_clicks", 12000, 18000, true},
		{"total_impressions", 180000, 260000, true},
		{"avg_ctr", 6, 9, false},
		{"avg_position", 8, 16, false},
		{"indexed_pages", 1500, 1700, true},
		{"crawl_errors", 0, 9, true},
	},
	string(metrics.WPMU): {
		{"uptime_percentage", 98, 100, false},
		{"page_load_time", 1.2, 2.0, false},
		{"plugin_count", 20, 29, true},
		{"security_score", 85, 99, true},
		{"active_plugins", 18, 25, true},
	},
}

// MetricsGenerator generates deterministic daily metric records
type MetricsGenerator struct {
	config MetricsGeneratorConfig
	rng    *rand.Rand
}

// NewMetricsGenerator creates a generator; equal configs yield equal data
func NewMetricsGenerator(config MetricsGeneratorConfig) *MetricsGenerator {
	return &MetricsGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate returns one record per day, oldest first
func (g *MetricsGenerator) Generate() ([]dataproc.Record, error) {
	ranges, ok := sourceRanges[g.config.Source]
	if !ok {
		return nil, fmt.Errorf("no metric ranges for source %q", g.config.Source)
	}
	if g.config.Days < 1 {
		return nil, fmt.Errorf("days must be positive, got %d", g.config.Days)
	}

	end := g.config.EndDate.UTC()
	records := make([]dataproc.Record, 0, g.config.Days)
	for day := 0; day < g.config.Days; day++ {
		date := end.AddDate(0, 0, day-(g.config.Days-1))
		drift := math.Pow(1+g.config.Growth, float64(day))

		rec := dataproc.Record{dataproc.FieldDate: dataproc.PeriodDay.Key(date)}
		for _, r := range ranges {
			v := (r.min + g.rng.Float64()*(r.max-r.min)) * drift
			rec[r.field] = g.round(v, r.integer)
		}

		if g.config.Source == string(metrics.WPMU) {
			rec["backup_status"] = "success"
			if g.rng.Float64() < 0.1 {
				rec["backup_status"] = "failed"
			}
			rec["wp_version"] = "6.4.2"
		}

		records = append(records, rec)
	}

	for _, s := range g.config.Spikes {
		if s.Day < 0 || s.Day >= len(records) {
			continue
		}
		if v, ok := records[s.Day].Float(s.Field); ok {
			records[s.Day][s.Field] = math.Round(v*s.Factor*100) / 100
		}
	}

	return records, nil
}

func (g *MetricsGenerator) round(v float64, integer bool) float64 {
	if integer {
		return math.Round(v)
	}
	return math.Round(v*100) / 100
}
