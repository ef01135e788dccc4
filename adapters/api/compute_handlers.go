package api

import (
	"net/http"

	"adpulse/internal/dataproc"

	"github.com/go-chi/render"
)

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req seriesRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, dataproc.Normalize(req.Series))
}

func (s *Server) handleDenormalize(w http.ResponseWriter, r *http.Request) {
	var req denormalizeRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string][]float64{"values": dataproc.Denormalize(req.Normalized, req.Min, req.Max)})
}

func (s *Server) handleOutliers(w http.ResponseWriter, r *http.Request) {
	var req seriesRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, dataproc.DetectOutliers(req.Series))
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	var req windowRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	window := orDefault(req.Window, dataproc.DefaultFeatureWindow)
	render.JSON(w, r, map[string][]dataproc.Feature{"features": dataproc.StatisticalFeatures(req.Series, window)})
}

func (s *Server) handleMovingAverage(w http.ResponseWriter, r *http.Request) {
	var req windowRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	window := orDefault(req.Window, dataproc.DefaultSmoothingWindow)
	render.JSON(w, r, map[string][]float64{"values": dataproc.MovingAverage(req.Series, window)})
}

func (s *Server) handleSequences(w http.ResponseWriter, r *http.Request) {
	var req windowRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	length := orDefault(req.Window, dataproc.DefaultSequenceLength)
	render.JSON(w, r, dataproc.TimeSeriesSequences(req.Series, length))
}

func (s *Server) handleCorrelation(w http.ResponseWriter, r *http.Request) {
	var req correlationRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	corr, err := dataproc.Correlation(req.A, req.B)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, valueResponse{Value: corr})
}

func (s *Server) handlePercentageChange(w http.ResponseWriter, r *http.Request) {
	var req percentageChangeRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, valueResponse{Value: dataproc.PercentageChange(*req.OldValue, *req.NewValue)})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	var req trendRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, trendResponse{
		Trend:    dataproc.CalculateTrend(req.Series, orDefault(req.Window, dataproc.DefaultFeatureWindow)),
		Forecast: dataproc.Forecast(req.Series, orDefault(req.Horizon, 7)),
	})
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	period := dataproc.ParsePeriod(req.Period)
	grouped := dataproc.GroupByTimePeriod(req.Records, period)
	render.JSON(w, r, groupResponse{
		Period:  period,
		Buckets: dataproc.AggregateGroupedData(grouped, req.SumFields, req.AvgFields),
	})
}

func (s *Server) handleTrainingData(w http.ResponseWriter, r *http.Request) {
	var req trainingRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	dataset := dataproc.PrepareTrainingData(req.Records, req.TargetField, req.FeatureFields)
	if dropped := dataset.Dropped(len(req.Records)); dropped > 0 {
		s.telemetry.RecordsDropped.WithLabelValues("training").Add(float64(dropped))
	}
	render.JSON(w, r, dataset)
}

func (s *Server) handleQuality(w http.ResponseWriter, r *http.Request) {
	var req qualityRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, s.scorer.Score(req.Records, req.RequiredFields))
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
