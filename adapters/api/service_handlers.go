package api

import (
	"net/http"
	"strconv"

	"adpulse/adapters/excel"
	"adpulse/app"
	"adpulse/domain/metrics"
	"adpulse/internal/dataproc"
	"adpulse/internal/errors"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var reportFormats = map[string]bool{"": true, "json": true, "html": true, "md": true, "markdown": true, "xlsx": true}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, metrics.All())
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	source, account := chi.URLParam(r, "source"), chi.URLParam(r, "account")

	var req ingestRequest
	if err := s.decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	n, err := s.analytics.Ingest(r.Context(), source, account, req.Records)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, ingestResponse{Source: source, AccountID: account, Ingested: n})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	source, account := chi.URLParam(r, "source"), chi.URLParam(r, "account")

	days, err := intQuery(r, "days", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	format := r.URL.Query().Get("format")
	if !reportFormats[format] {
		s.writeError(w, r, errors.InvalidInput("unsupported format "+strconv.Quote(format)))
		return
	}

	report, err := s.analytics.Analyze(r.Context(), source, account, days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	switch format {
	case "", "json":
		render.JSON(w, r, report)
	case "html":
		_, html := app.RenderReport(report)
		render.HTML(w, r, html)
	case "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(app.RenderMarkdown(report)))
	case "xlsx":
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+source+`-`+account+`-weekly.xlsx"`)
		if err := (excel.BucketWriter{}).Write(w, dataproc.PeriodWeek, report.Weekly); err != nil {
			s.logger.Error("workbook export failed", "source", source, "account", account, "error", err)
		}
	}
}

func (s *Server) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	source, account := chi.URLParam(r, "source"), chi.URLParam(r, "account")

	limit, err := intQuery(r, "limit", 10)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	reports, err := s.analytics.Recent(r.Context(), source, account, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, reports)
}

func (s *Server) handleSourceTraining(w http.ResponseWriter, r *http.Request) {
	days, err := intQuery(r, "days", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	dataset, err := s.analytics.PrepareTraining(r.Context(), chi.URLParam(r, "source"), days)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, dataset)
}

// intQuery reads a non-negative integer query parameter
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.InvalidInput(name + " must be a non-negative integer")
	}
	return v, nil
}
