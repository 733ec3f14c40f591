package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/notifoxhq/notifox/internal/metrics"
	"github.com/notifoxhq/notifox/pkg/model"
	"github.com/notifoxhq/notifox/pkg/tracker"
)

// maxPartsBody caps POST /api/v1/parts request bodies.
const maxPartsBody = 64 << 10

// Server provides health, parts estimation, reporting and metrics endpoints.
type Server struct {
	tracker *tracker.UsageTracker
	metrics *metrics.Collector
	mux     *http.ServeMux
	logger  *slog.Logger
}

// NewServer creates an API server. m may be nil, which disables /metrics.
func NewServer(t *tracker.UsageTracker, m *metrics.Collector, logger *slog.Logger) *Server {
	s := &Server{
		tracker: t,
		metrics: m,
		mux:     http.NewServeMux(),
		logger:  logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /api/v1/parts", s.handleParts)
	s.mux.HandleFunc("GET /api/v1/alerts", s.handleAlerts)
	s.mux.HandleFunc("GET /api/v1/summary", s.handleSummary)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

type partsRequest struct {
	Alert string `json:"alert"`
	Plan  string `json:"plan,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleParts(w http.ResponseWriter, r *http.Request) {
	var req partsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPartsBody))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.tracker.Estimate(req.Plan, req.Alert)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveCalculation(result)
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	filter := tracker.ReportFilter{
		Audience: q.Get("audience"),
		Channel:  q.Get("channel"),
		Encoding: q.Get("encoding"),
		Status:   model.AlertStatus(q.Get("status")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}

	records, err := s.tracker.Query(ctx, filter)
	if err != nil {
		s.logger.Error("query alerts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if records == nil {
		records = []model.AlertRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	q := r.URL.Query()
	period := tracker.BudgetPeriod(q.Get("period"))
	if period == "" {
		period = tracker.PeriodDaily
	}
	if !model.ValidPeriod(period) {
		writeError(w, http.StatusBadRequest, "period must be daily, weekly or monthly")
		return
	}

	start, end := tracker.PeriodBounds(period)
	filter := tracker.ReportFilter{
		Audience:  q.Get("audience"),
		Channel:   q.Get("channel"),
		StartTime: start,
		EndTime:   end,
	}

	summary, err := s.tracker.Report(ctx, filter)
	if err != nil {
		s.logger.Error("aggregate alerts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
