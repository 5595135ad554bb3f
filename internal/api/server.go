// Package api provides the HTTP server for ponto.
// It exposes the day dashboard, ticket commands, monthly/weekly reports and
// an SSE change feed for the web UI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ponto-labs/ponto/internal/app/report"
	"github.com/ponto-labs/ponto/internal/app/session"
	"github.com/ponto-labs/ponto/internal/domain"
	"github.com/ponto-labs/ponto/internal/infra/observability"
)

// RangeStore is the read side the report endpoints need.
type RangeStore interface {
	FetchRange(ctx context.Context, from, to time.Time) ([]domain.ClockEvent, []domain.Ticket, error)
}

// Server is the ponto HTTP API server.
type Server struct {
	session        *session.Session
	ranges         RangeStore
	reportOpts     report.Options
	metricsEnabled bool
	hub            *UpdateHub
	clock          func() time.Time
}

// NewServer creates a new API server around one day session.
func NewServer(sess *session.Session, ranges RangeStore, opts report.Options) *Server {
	return &Server{
		session:    sess,
		ranges:     ranges,
		reportOpts: opts,
		clock:      time.Now,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetUpdateHub sets the SSE change-feed hub.
func (s *Server) SetUpdateHub(h *UpdateHub) { s.hub = h }

// UpdateHub returns the change-feed hub (for broadcasting store changes).
func (s *Server) UpdateHub() *UpdateHub { return s.hub }

// SetClock overrides the time source. Tests only.
func (s *Server) SetClock(clock func() time.Time) { s.clock = clock }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Minute))
	r.Use(corsMiddleware)
	r.Use(durationMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/day/{date}", s.handleDay)
		r.Get("/range", s.handleRange)
		r.Post("/day/{date}/events", s.handleAppendEvent)
		r.Delete("/day/{date}/events/last", s.handleReopen)
		r.Patch("/events/{id}", s.handleEditEvent)

		r.Post("/day/{date}/tickets", s.handleAddTicket)
		r.Post("/tickets/{id}/toggle", s.handleToggleTicket)
		r.Patch("/tickets/{id}", s.handleAdjustTicket)
		r.Delete("/tickets/{id}", s.handleDeleteTicket)

		r.Get("/reports/month", s.handleMonthReport)
		r.Get("/reports/week", s.handleWeekReport)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	if s.hub != nil {
		r.Get("/api/updates", s.hub.HandleSSE)
	}

	return r
}

// ensureDay points the session at the date from the URL, loading it if the
// session is currently on a different day.
func (s *Server) ensureDay(r *http.Request) (time.Time, error) {
	raw := chi.URLParam(r, "date")
	day, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	if s.session.Date() != domain.DateKey(day) {
		if err := s.session.Load(r.Context(), day); err != nil {
			return time.Time{}, err
		}
	}
	return day, nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps the error taxonomy onto HTTP statuses: malformed or
// invariant-violating input is 422, state preconditions are 409, missing
// rows are 404, everything else is a 500 with the store untouched.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNegativeTime),
		errors.Is(err, domain.ErrTicketOverAllocation),
		errors.Is(err, domain.ErrDuplicateTicket),
		errors.Is(err, domain.ErrCorrectionNotAfterLast),
		errors.Is(err, domain.ErrInvalidKind):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNotWorking),
		errors.Is(err, domain.ErrDayFinished),
		errors.Is(err, domain.ErrNotToday),
		errors.Is(err, domain.ErrBadTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrEventNotFound),
		errors.Is(err, domain.ErrTicketNotFound),
		errors.Is(err, domain.ErrNoEvents):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// corsMiddleware adds CORS headers for the browser dashboard.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// durationMiddleware records per-route latency, labeled with the matched
// chi pattern so path parameters do not explode cardinality.
func durationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(ww.Status() / 100 * 100)
		observability.HTTPRequestDuration.
			WithLabelValues(route, status).
			Observe(time.Since(start).Seconds())
	})
}
