package api

import "adpulse/internal/dataproc"

type seriesRequest struct {
	Series []float64 `json:"series" validate:"required"`
}

type denormalizeRequest struct {
	Normalized []float64 `json:"normalized" validate:"required"`
	Min        float64   `json:"min"`
	Max        float64   `json:"max"`
}

// windowRequest serves the windowed transforms; a zero window selects the
// operation's default
type windowRequest struct {
	Series []float64 `json:"series" validate:"required"`
	Window int       `json:"window" validate:"gte=0"`
}

type trendRequest struct {
	Series  []float64 `json:"series" validate:"required"`
	Window  int       `json:"window" validate:"gte=0"`
	Horizon int       `json:"horizon" validate:"gte=0"`
}

type correlationRequest struct {
	A []float64 `json:"a" validate:"required"`
	B []float64 `json:"b" validate:"required"`
}

type percentageChangeRequest struct {
	OldValue *float64 `json:"oldValue" validate:"required"`
	NewValue *float64 `json:"newValue" validate:"required"`
}

type groupRequest struct {
	Records   []dataproc.Record `json:"records" validate:"required"`
	Period    string            `json:"period" validate:"omitempty,oneof=day week month"`
	SumFields []string          `json:"sumFields"`
	AvgFields []string          `json:"avgFields"`
}

type trainingRequest struct {
	Records       []dataproc.Record `json:"records" validate:"required"`
	TargetField   string            `json:"targetField" validate:"required"`
	FeatureFields []string          `json:"featureFields" validate:"required,min=1,dive,required"`
}

type qualityRequest struct {
	Records        []dataproc.Record `json:"records" validate:"required"`
	RequiredFields []string          `json:"requiredFields"`
}

type ingestRequest struct {
	Records []dataproc.Record `json:"records" validate:"required,min=1"`
}

type ingestResponse struct {
	Source    string `json:"source"`
	AccountID string `json:"accountId"`
	Ingested  int    `json:"ingested"`
}

type trendResponse struct {
	Trend    dataproc.Trend      `json:"trend"`
	Forecast dataproc.Prediction `json:"forecast"`
}

type groupResponse struct {
	Period  dataproc.Period             `json:"period"`
	Buckets []dataproc.AggregatedBucket `json:"buckets"`
}

type valueResponse struct {
	Value float64 `json:"value"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
