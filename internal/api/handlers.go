package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ponto-labs/ponto/internal/app/report"
	"github.com/ponto-labs/ponto/internal/domain"
)

// ─── Day View ───────────────────────────────────────────────────────────────

// handleDay returns the full dashboard snapshot for one day.
// GET /api/day/{date}
func (s *Server) handleDay(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ensureDay(r); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleRange returns the raw events and tickets inside a window.
// GET /api/range?start=YYYY-MM-DD&end=YYYY-MM-DD
func (s *Server) handleRange(w http.ResponseWriter, r *http.Request) {
	start, err := time.ParseInLocation(time.DateOnly, r.URL.Query().Get("start"), time.Local)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid start date")
		return
	}
	end, err := time.ParseInLocation(time.DateOnly, r.URL.Query().Get("end"), time.Local)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid end date")
		return
	}

	events, tickets, err := s.ranges.FetchRange(r.Context(), start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events":  events,
		"tickets": tickets,
	})
}

// ─── Clock Events ───────────────────────────────────────────────────────────

type eventRequest struct {
	Action      string `json:"action"` // "clock", "end", "correct"
	Time        string `json:"time,omitempty"`
	PreferBreak bool   `json:"prefer_break,omitempty"`
}

// handleAppendEvent drives the day forward: a plain clock action for today,
// an explicit shift end, or a timed correction on an incomplete past day.
// POST /api/day/{date}/events
func (s *Server) handleAppendEvent(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ensureDay(r); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}

	var ev domain.ClockEvent
	var err error
	switch req.Action {
	case "clock":
		ev, err = s.session.Clock(r.Context())
	case "end":
		ev, err = s.session.EndShift(r.Context())
	case "correct":
		at, perr := time.ParseInLocation(time.RFC3339, req.Time, time.Local)
		if perr != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid correction time")
			return
		}
		ev, err = s.session.Correct(r.Context(), at, req.PreferBreak)
	default:
		writeError(w, http.StatusUnprocessableEntity, "unknown action")
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// handleEditEvent moves an event to a new timestamp.
// PATCH /api/events/{id}
func (s *Server) handleEditEvent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Time string `json:"time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	at, err := time.ParseInLocation(time.RFC3339, req.Time, time.Local)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid time")
		return
	}

	if err := s.session.EditEventTime(r.Context(), chi.URLParam(r, "id"), at); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleReopen deletes the day's last event, reverting an accidental
// terminal marking.
// DELETE /api/day/{date}/events/last
func (s *Server) handleReopen(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ensureDay(r); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.session.Reopen(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// ─── Tickets ────────────────────────────────────────────────────────────────

// handleAddTicket registers a new ticket on the viewed day.
// POST /api/day/{date}/tickets
func (s *Server) handleAddTicket(w http.ResponseWriter, r *http.Request) {
	if _, err := s.ensureDay(r); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var req struct {
		Identifier string `json:"identifier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Identifier == "" {
		writeError(w, http.StatusUnprocessableEntity, "identifier required")
		return
	}

	st, err := s.session.AddTicket(r.Context(), req.Identifier)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// handleToggleTicket starts or pauses a ticket timer.
// POST /api/tickets/{id}/toggle
func (s *Server) handleToggleTicket(w http.ResponseWriter, r *http.Request) {
	if err := s.session.ToggleTicket(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleAdjustTicket sets a ticket's accumulated time in whole minutes.
// PATCH /api/tickets/{id}
func (s *Server) handleAdjustTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Minutes *int64 `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Minutes == nil {
		writeError(w, http.StatusUnprocessableEntity, "minutes required")
		return
	}

	if err := s.session.AdjustTicket(r.Context(), chi.URLParam(r, "id"), *req.Minutes); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// handleDeleteTicket removes a ticket from the viewed day.
// DELETE /api/tickets/{id}
func (s *Server) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	if err := s.session.RemoveTicket(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

// ─── Reports ────────────────────────────────────────────────────────────────

// handleMonthReport aggregates a calendar month.
// GET /api/reports/month?month=YYYY-MM
func (s *Server) handleMonthReport(w http.ResponseWriter, r *http.Request) {
	from, to, err := report.MonthRange(r.URL.Query().Get("month"), time.Local)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	events, tickets, err := s.ranges.FetchRange(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	opts := s.reportOpts
	opts.Now = s.clock()
	writeJSON(w, http.StatusOK, report.Build(events, tickets, from, to, opts))
}

// handleWeekReport returns the trailing-7-day chart feed. When the session
// is on today, the last slot carries the live running totals rather than the
// last persisted snapshot.
// GET /api/reports/week
func (s *Server) handleWeekReport(w http.ResponseWriter, r *http.Request) {
	now := s.clock()
	from, to := report.WeekWindow(now)

	events, tickets, err := s.ranges.FetchRange(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	opts := s.reportOpts
	opts.Now = now
	weekly := report.Weekly(events, tickets, opts)

	if snap := s.session.Snapshot(); snap.Today && len(weekly.WorkHours) > 0 {
		last := len(weekly.WorkHours) - 1
		work := float64(snap.WorkedSeconds) / 3600
		weekly.WorkHours[last] = work
		weekly.TicketHours[last] = float64(snap.TicketSeconds) / 3600
		weekly.GoalHours[last] = work * domain.GoalRatio / 100
	}
	writeJSON(w, http.StatusOK, weekly)
}
