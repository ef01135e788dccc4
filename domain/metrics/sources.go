package metrics

import (
	"slices"

	"adpulse/internal/errors"
)

// SourceName identifies an advertising or analytics provider
type SourceName string

const (
	GoogleAds     SourceName = "google_ads"
	Facebook      SourceName = "facebook"
	Analytics     SourceName = "analytics"
	SearchConsole SourceName = "search_console"
	WPMU          SourceName = "wpmu"
)

// Source describes the daily metrics a provider reports and how they are
// reduced, scored and modelled
type Source struct {
	Name            SourceName `json:"name"`
	Label           string     `json:"label"`
	Metrics         []string   `json:"metrics"`
	RequiredFields  []string   `json:"required_fields"`
	SumFields       []string   `json:"sum_fields"`
	AvgFields       []string   `json:"avg_fields"`
	TargetField     string     `json:"target_field"`
	FeatureFields   []string   `json:"feature_fields"`
	Recommendations []string   `json:"recommendations"`
}

var catalog = []Source{
	{
		Name:           GoogleAds,
		Label:          "Google Ads",
		Metrics:        []string{"impressions", "clicks", "spend", "conversions", "ctr", "cost_per_click", "campaign_count"},
		RequiredFields: []string{"date", "impressions", "clicks", "spend", "conversions"},
		SumFields:      []string{"impressions", "clicks", "spend", "conversions"},
		AvgFields:      []string{"ctr", "cost_per_click", "campaign_count"},
		TargetField:    "conversions",
		FeatureFields:  []string{"impressions", "clicks", "spend", "ctr", "cost_per_click"},
		Recommendations: []string{
			"Optimize ad copy for mobile devices",
			"Test new keyword variations",
			"Adjust bidding strategy for peak hours",
			"Review negative keyword list",
		},
	},
	{
		Name:           Facebook,
		Label:          "Facebook Ads",
		Metrics:        []string{"impressions", "clicks", "spend", "conversions", "ctr", "cpp", "frequency", "reach"},
		RequiredFields: []string{"date", "impressions", "clicks", "spend", "reach"},
		SumFields:      []string{"impressions", "clicks", "spend", "conversions", "reach"},
		AvgFields:      []string{"ctr", "cpp", "frequency"},
		TargetField:    "conversions",
		FeatureFields:  []string{"impressions", "clicks", "spend", "frequency", "reach"},
		Recommendations: []string{
			"Refresh creative assets to combat fatigue",
			"Expand lookalike audience segments",
			"Test video ad formats",
			"Optimize for mobile-first experience",
		},
	},
	{
		Name:           Analytics,
		Label:          "Google Analytics",
		Metrics:        []string{"sessions", "users", "pageviews", "bounce_rate", "avg_session_duration", "goal_completions", "revenue"},
		RequiredFields: []string{"date", "sessions", "users", "pageviews"},
		SumFields:      []string{"sessions", "users", "pageviews", "goal_completions", "revenue"},
		AvgFields:      []string{"bounce_rate", "avg_session_duration"},
		TargetField:    "revenue",
		FeatureFields:  []string{"sessions", "users", "pageviews", "bounce_rate", "avg_session_duration"},
	},
	{
		Name:           SearchConsole,
		Label:          "Google Search Console",
		Metrics:        []string{"total_clicks", "total_impressions", "avg_ctr", "avg_position", "indexed_pages", "crawl_errors"},
		RequiredFields: []string{"date", "total_clicks", "total_impressions", "avg_position"},
		SumFields:      []string{"total_clicks", "total_impressions", "crawl_errors"},
		AvgFields:      []string{"avg_ctr", "avg_position", "indexed_pages"},
		TargetField:    "total_clicks",
		FeatureFields:  []string{"total_impressions", "avg_ctr", "avg_position", "indexed_pages"},
	},
	{
		Name:           WPMU,
		Label:          "WPMU DEV",
		Metrics:        []string{"uptime_percentage", "page_load_time", "plugin_count", "security_score", "active_plugins"},
		RequiredFields: []string{"date", "uptime_percentage", "page_load_time", "security_score", "backup_status"},
		SumFields:      []string{},
		AvgFields:      []string{"uptime_percentage", "page_load_time", "plugin_count", "security_score", "active_plugins"},
		TargetField:    "page_load_time",
		FeatureFields:  []string{"plugin_count", "active_plugins", "security_score"},
	},
}

// All returns every known source in catalog order
func All() []Source {
	out := make([]Source, len(catalog))
	for i, s := range catalog {
		out[i] = s.withDefaults()
	}
	return out
}

// Lookup finds a source by name
func Lookup(name string) (Source, bool) {
	for _, s := range catalog {
		if string(s.Name) == name {
			return s.withDefaults(), true
		}
	}
	return Source{}, false
}

// MustLookup resolves name or returns an UNKNOWN_SOURCE error
func MustLookup(name string) (Source, error) {
	src, ok := Lookup(name)
	if !ok {
		return Source{}, errors.UnknownSource(name)
	}
	return src, nil
}

// Validate checks that the declared field lists are consistent with Metrics
func (s Source) Validate() error {
	if s.Name == "" {
		return errors.ValidationError("source name is required")
	}
	for _, group := range [][]string{s.SumFields, s.AvgFields, s.FeatureFields, {s.TargetField}} {
		for _, f := range group {
			if !slices.Contains(s.Metrics, f) {
				return errors.ValidationError("field " + f + " is not a metric of " + string(s.Name))
			}
		}
	}
	return nil
}

// withDefaults returns a copy that owns its slices, with the generic
// recommendations filled in when none are declared
func (s Source) withDefaults() Source {
	s.Metrics = slices.Clone(s.Metrics)
	s.RequiredFields = slices.Clone(s.RequiredFields)
	s.SumFields = slices.Clone(s.SumFields)
	s.AvgFields = slices.Clone(s.AvgFields)
	s.FeatureFields = slices.Clone(s.FeatureFields)
	if len(s.Recommendations) == 0 {
		s.Recommendations = DefaultRecommendations(string(s.Name))
	} else {
		s.Recommendations = slices.Clone(s.Recommendations)
	}
	return s
}

// DefaultRecommendations are served for sources without curated advice
func DefaultRecommendations(source string) []string {
	return []string{
		"Review " + source + " performance manually",
		"Monitor key metrics closely",
	}
}
