// Package api serves the data-processing core and the analytics service over
// HTTP with chi.
package api

import (
	"context"
	"net/http"
	"time"

	"adpulse/domain/analysis"
	"adpulse/internal/dataproc"
	"adpulse/internal/errors"
	"adpulse/internal/logging"
	"adpulse/internal/telemetry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// Analytics is the service surface used by the handlers
type Analytics interface {
	Ingest(ctx context.Context, source, accountID string, records []dataproc.Record) (int, error)
	Analyze(ctx context.Context, source, accountID string, days int) (*analysis.Report, error)
	Recent(ctx context.Context, source, accountID string, limit int) ([]*analysis.Report, error)
	PrepareTraining(ctx context.Context, source string, days int) (dataproc.TrainingDataset, error)
}

// Pinger checks backing storage for /healthz
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server holds the HTTP handlers
type Server struct {
	analytics Analytics
	db        Pinger
	logger    *logging.Logger
	telemetry *telemetry.Metrics
	validate  *validator.Validate
	scorer    *dataproc.QualityScorer
}

// NewServer creates the HTTP server. db may be nil when no storage is wired.
func NewServer(analytics Analytics, db Pinger, logger *logging.Logger, m *telemetry.Metrics) *Server {
	if logger == nil {
		logger = logging.Global()
	}
	if m == nil {
		m = telemetry.NewMetrics()
	}
	return &Server{
		analytics: analytics,
		db:        db,
		logger:    logger.With("component", "api"),
		telemetry: m,
		validate:  validator.New(),
		scorer:    dataproc.NewQualityScorer(nil, nil),
	}
}

// WithClock sets the clock used by the stateless quality endpoint
func (s *Server) WithClock(clock dataproc.Clock) *Server {
	s.scorer = dataproc.NewQualityScorer(clock, nil)
	return s
}

// Routes builds the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.telemetry.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/compute", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Post("/normalize", s.handleNormalize)
			r.Post("/denormalize", s.handleDenormalize)
			r.Post("/outliers", s.handleOutliers)
			r.Post("/features", s.handleFeatures)
			r.Post("/moving-average", s.handleMovingAverage)
			r.Post("/sequences", s.handleSequences)
			r.Post("/correlation", s.handleCorrelation)
			r.Post("/percentage-change", s.handlePercentageChange)
			r.Post("/trend", s.handleTrend)
			r.Post("/group", s.handleGroup)
			r.Post("/training-data", s.handleTrainingData)
			r.Post("/quality", s.handleQuality)
		})

		r.Get("/sources", s.handleSources)
		r.Route("/sources/{source}", func(r chi.Router) {
			r.Get("/training-data", s.handleSourceTraining)
			r.Route("/accounts/{account}", func(r chi.Router) {
				r.Post("/records", s.handleIngest)
				r.Get("/report", s.handleReport)
				r.Get("/analyses", s.handleAnalyses)
			})
		})
	})

	return r
}

// requestLogger logs and measures each request under its route pattern
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		s.telemetry.ObserveRequest(route, status, elapsed)
		s.logger.Debug("request served",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// decode reads and validates a JSON body
func (s *Server) decode(r *http.Request, v any) error {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		return errors.InvalidInput("malformed JSON body: " + err.Error())
	}
	if err := s.validate.Struct(v); err != nil {
		return errors.WithCode(errors.CodeValidationError, errors.Wrap(err, "invalid request"))
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "unavailable"})
			return
		}
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}
