package proxy

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/notifoxhq/notifox/internal/metrics"
	"github.com/notifoxhq/notifox/pkg/notifox"
	"github.com/notifoxhq/notifox/pkg/pricing"
	"github.com/notifoxhq/notifox/pkg/segment"
	"github.com/notifoxhq/notifox/pkg/tracker"
)

// Response headers describing the billed alert.
const (
	HeaderParts      = "X-Notifox-Parts"
	HeaderCost       = "X-Notifox-Cost"
	HeaderCurrency   = "X-Notifox-Currency"
	HeaderEncoding   = "X-Notifox-Encoding"
	HeaderCharacters = "X-Notifox-Characters"
	HeaderLatency    = "X-Notifox-Latency"
)

// Options configures a Handler.
type Options struct {
	Defaults       Defaults
	AddCostHeaders bool
	DenyOnExceed   bool
	MaxBodySize    int64
}

// Handler relays POST /alert requests to the Notifox API and records them.
type Handler struct {
	tracker *tracker.UsageTracker
	metrics *metrics.Collector
	opts    Options
	logger  *slog.Logger
}

// NewHandler creates a new relay handler. m may be nil.
func NewHandler(t *tracker.UsageTracker, m *metrics.Collector, opts Options, logger *slog.Logger) *Handler {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = 1 << 20
	}
	return &Handler{
		tracker: t,
		metrics: m,
		opts:    opts,
		logger:  logger,
	}
}

// ServeHTTP handles relayed alert requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "read request body")
		return
	}

	info, err := ExtractRequestInfo(body, r.Header, h.opts.Defaults)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.tracker.Send(r.Context(), tracker.SendRequest{
		Audience:      info.Audience,
		Alert:         info.Alert,
		Channel:       info.Channel,
		Plan:          info.Plan,
		EnforceBudget: h.opts.DenyOnExceed,
	})
	if err != nil {
		status := StatusFor(err)
		h.observeError(err)
		h.logger.Warn("relay alert failed",
			"audience", info.Audience,
			"status", status,
			"error", err,
		)
		writeError(w, status, err.Error())
		return
	}

	rec := res.Record
	if h.metrics != nil {
		cost, _ := rec.Cost.Float64()
		h.metrics.ObserveSent(rec.Encoding, rec.Parts, cost, rec.Currency)
	}

	if h.opts.AddCostHeaders {
		w.Header().Set(HeaderParts, strconv.Itoa(rec.Parts))
		w.Header().Set(HeaderCost, segment.FormatCost(rec.Cost))
		w.Header().Set(HeaderCurrency, rec.Currency)
		w.Header().Set(HeaderEncoding, rec.Encoding)
		w.Header().Set(HeaderCharacters, strconv.Itoa(rec.Characters))
		w.Header().Set(HeaderLatency, time.Since(start).String())
	}

	writeJSON(w, http.StatusOK, relayResponse{
		MessageID:  rec.MessageID,
		Parts:      rec.Parts,
		Cost:       json.Number(segment.FormatCost(rec.Cost)),
		Currency:   rec.Currency,
		Encoding:   rec.Encoding,
		Characters: rec.Characters,
	})
}

func (h *Handler) observeError(err error) {
	if h.metrics == nil {
		return
	}
	var nerr *notifox.Error
	switch {
	case errors.Is(err, tracker.ErrBudgetExceeded):
		h.metrics.ObserveDenied()
	case errors.As(err, &nerr) && nerr.Kind != notifox.KindInput:
		h.metrics.ObserveFailed()
	}
}

// StatusFor maps a Send error to the status the relay answers with.
func StatusFor(err error) int {
	if errors.Is(err, tracker.ErrBudgetExceeded) {
		return http.StatusPaymentRequired
	}
	if errors.Is(err, pricing.ErrPlanNotFound) {
		return http.StatusBadRequest
	}

	var nerr *notifox.Error
	if !errors.As(err, &nerr) {
		return http.StatusInternalServerError
	}

	switch nerr.Kind {
	case notifox.KindInput:
		return http.StatusBadRequest
	case notifox.KindAuthentication:
		if nerr.StatusCode != 0 {
			return nerr.StatusCode
		}
		return http.StatusUnauthorized
	case notifox.KindRateLimit:
		return http.StatusTooManyRequests
	case notifox.KindAPI:
		if nerr.StatusCode >= 400 && nerr.StatusCode < 500 {
			return nerr.StatusCode
		}
		return http.StatusBadGateway
	case notifox.KindConnection:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type relayResponse struct {
	MessageID  string      `json:"message_id"`
	Parts      int         `json:"parts"`
	Cost       json.Number `json:"cost"`
	Currency   string      `json:"currency"`
	Encoding   string      `json:"encoding"`
	Characters int         `json:"characters"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, notifox.ErrorResponse{Error: msg})
}
