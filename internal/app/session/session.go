// Package session owns the in-memory working copy of one viewed day: its
// clock events, its ticket set, and the live accrual loop. Every user action
// is a discrete method returning a result or error; there is no ambient
// global state. Failed store calls leave the working copy untouched.
package session

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ponto-labs/ponto/internal/app/report"
	"github.com/ponto-labs/ponto/internal/app/scheduler"
	"github.com/ponto-labs/ponto/internal/app/tickets"
	"github.com/ponto-labs/ponto/internal/app/workday"
	"github.com/ponto-labs/ponto/internal/domain"
	"github.com/ponto-labs/ponto/internal/infra/observability"
)

// Store is the full data-access contract the session consumes.
type Store interface {
	FetchDay(ctx context.Context, day time.Time) ([]domain.ClockEvent, []domain.Ticket, error)
	AppendEvent(ctx context.Context, kind domain.EventKind, at time.Time) (domain.ClockEvent, error)
	UpdateEventTime(ctx context.Context, id string, newTime time.Time) (domain.ClockEvent, error)
	DeleteLastEventOfDay(ctx context.Context, day time.Time) error
	tickets.Store
}

// Config carries the session's tunables.
type Config struct {
	ContractualDaySeconds int64
	LegalExtraSeconds     int64
	Holidays              map[string]bool
	TickInterval          time.Duration // live accrual granularity, default 1s
	PersistEvery          int           // ticks between accrual snapshots, default 15
	Clock                 func() time.Time
}

// DefaultConfig returns the 8h/2h defaults with a 1-second tick persisted
// every 15 ticks.
func DefaultConfig() Config {
	return Config{
		ContractualDaySeconds: 8 * 3600,
		LegalExtraSeconds:     2 * 3600,
		Holidays:              map[string]bool{},
		TickInterval:          time.Second,
		PersistEvery:          15,
		Clock:                 time.Now,
	}
}

// Session is the engine context for one user viewing one day at a time.
type Session struct {
	mu     sync.Mutex
	store  Store
	cfg    Config
	ticker *scheduler.Ticker

	date        time.Time // start of the viewed calendar day
	events      []domain.ClockEvent
	engine      *tickets.Engine
	workedCache int64
	tickCount   int
}

// New creates a session. Call Load before anything else.
func New(store Store, cfg Config) *Session {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.PersistEvery <= 0 {
		cfg.PersistEvery = 15
	}
	s := &Session{store: store, cfg: cfg}
	s.ticker = scheduler.New(cfg.TickInterval, func(now time.Time) { s.Tick(now) })
	return s
}

// ─── Loading & Navigation ───────────────────────────────────────────────────

// Load fetches the given day and replaces the working copy. The accrual
// ticker is stopped for the swap and restarted only when the loaded day is
// today and still accruing.
func (s *Session) Load(ctx context.Context, day time.Time) error {
	s.ticker.Stop()

	events, rows, err := s.store.FetchDay(ctx, day)
	if err != nil {
		return fmt.Errorf("load day: %w", err)
	}

	s.mu.Lock()
	now := s.cfg.Clock()
	s.date = domain.StartOfDay(day)
	s.events = events
	s.engine = tickets.NewEngine(s.store, domain.DateKey(s.date))
	s.engine.Load(rows, now)
	s.workedCache = workday.WorkedSeconds(events, now, s.openAccrualLocked(now))
	s.tickCount = 0
	accruing := s.todayLocked(now) && s.statusLocked(now).Accruing()
	s.mu.Unlock()

	if accruing {
		s.ticker.Start()
	}
	return nil
}

// Refresh refetches the currently viewed day. Wired to the store's change
// feed so an edit from another device is picked up without navigation.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	day := s.date
	s.mu.Unlock()
	return s.Load(ctx, day)
}

// Close stops the accrual ticker. Idempotent.
func (s *Session) Close() { s.ticker.Stop() }

// ─── Derived State ──────────────────────────────────────────────────────────

func (s *Session) todayLocked(now time.Time) bool {
	return domain.SameDay(s.date, now)
}

func (s *Session) statusLocked(now time.Time) domain.WorkdayStatus {
	return workday.Status(s.events, s.todayLocked(now))
}

// openAccrualLocked reports whether the open trailing interval counts:
// viewing today while the last kind is start-like.
func (s *Session) openAccrualLocked(now time.Time) bool {
	return s.todayLocked(now) && s.statusLocked(now) == domain.Working
}

// Date returns the viewed day as YYYY-MM-DD.
func (s *Session) Date() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.DateKey(s.date)
}

// Status returns the viewed day's current derived status.
func (s *Session) Status() domain.WorkdayStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked(s.cfg.Clock())
}

// WorkedSeconds returns the current total worked seconds for the viewed day.
func (s *Session) WorkedSeconds() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.cfg.Clock()
	return workday.WorkedSeconds(s.events, now, s.openAccrualLocked(now))
}

// ─── Clock Actions (today only) ─────────────────────────────────────────────

// Clock appends the next marking for the current status: shift start when
// not started, break start while working, break end while on break.
func (s *Session) Clock(ctx context.Context) (domain.ClockEvent, error) {
	s.mu.Lock()
	now := s.cfg.Clock()
	if !s.todayLocked(now) {
		s.mu.Unlock()
		return domain.ClockEvent{}, domain.ErrNotToday
	}
	kind, err := workday.NextKind(s.statusLocked(now))
	s.mu.Unlock()
	if err != nil {
		return domain.ClockEvent{}, err
	}
	return s.appendEvent(ctx, kind, now)
}

// EndShift closes today's workday. Allowed only while working; entering
// Finished halts the accrual scheduler.
func (s *Session) EndShift(ctx context.Context) (domain.ClockEvent, error) {
	s.mu.Lock()
	now := s.cfg.Clock()
	if !s.todayLocked(now) {
		s.mu.Unlock()
		return domain.ClockEvent{}, domain.ErrNotToday
	}
	if s.statusLocked(now) != domain.Working {
		s.mu.Unlock()
		return domain.ClockEvent{}, domain.ErrNotWorking
	}
	s.mu.Unlock()

	ev, err := s.appendEvent(ctx, domain.ShiftEnd, now)
	if err != nil {
		return domain.ClockEvent{}, err
	}

	// Snapshot the running ticket so a reload does not have to recover the
	// tail from active_since alone.
	if eng := s.engineRef(); eng != nil {
		if err := eng.PersistActive(ctx, s.cfg.Clock()); err != nil {
			log.Printf("[session] persist active ticket at shift end: %v", err)
		}
	}
	return ev, nil
}

// appendEvent persists one event and folds it into the working copy,
// managing the ticker for the resulting status.
func (s *Session) appendEvent(ctx context.Context, kind domain.EventKind, at time.Time) (domain.ClockEvent, error) {
	ev, err := s.store.AppendEvent(ctx, kind, at)
	if err != nil {
		return domain.ClockEvent{}, fmt.Errorf("append %s: %w", kind, err)
	}
	observability.ClockEventsAppended.WithLabelValues(string(kind)).Inc()

	s.mu.Lock()
	s.events = append(s.events, ev)
	now := s.cfg.Clock()
	s.workedCache = workday.WorkedSeconds(s.events, now, s.openAccrualLocked(now))
	accruing := s.todayLocked(now) && s.statusLocked(now).Accruing()
	s.mu.Unlock()

	if accruing {
		s.ticker.Start()
	} else {
		s.ticker.Stop()
	}
	return ev, nil
}

// ─── Corrections ────────────────────────────────────────────────────────────

// Correct appends a compensating marking to an incomplete past day at a
// user-chosen time, which must fall strictly after the last event. The kind
// follows from the last event; preferBreak picks BreakStart over ShiftEnd
// when both fit.
func (s *Session) Correct(ctx context.Context, at time.Time, preferBreak bool) (domain.ClockEvent, error) {
	s.mu.Lock()
	if len(s.events) == 0 {
		s.mu.Unlock()
		return domain.ClockEvent{}, domain.ErrNoEvents
	}
	last := s.events[len(s.events)-1]
	// The chosen time must stay on the viewed day and strictly after the
	// last event, or the marking sequence would no longer alternate.
	if !at.After(last.Timestamp) || !domain.SameDay(at, s.date) {
		s.mu.Unlock()
		return domain.ClockEvent{}, domain.ErrCorrectionNotAfterLast
	}
	kind := workday.CorrectionKind(last.Kind, preferBreak)
	s.mu.Unlock()

	return s.appendEvent(ctx, kind, at)
}

// EditEventTime moves an event to a new timestamp. The ticker is stopped
// during the edit so the accrual loop cannot race the change, and restarted
// afterwards even when the store call fails.
func (s *Session) EditEventTime(ctx context.Context, id string, newTime time.Time) error {
	s.ticker.Stop()

	_, err := s.store.UpdateEventTime(ctx, id, newTime)
	if err == nil {
		// Ordering may have changed; refetch the whole day.
		return s.Refresh(ctx)
	}

	// Restore the loop so the view does not freeze on a failed edit.
	s.mu.Lock()
	now := s.cfg.Clock()
	accruing := s.todayLocked(now) && s.statusLocked(now).Accruing()
	s.mu.Unlock()
	if accruing {
		s.ticker.Start()
	}
	return fmt.Errorf("edit event time: %w", err)
}

// Reopen deletes the day's last event, reverting an accidental terminal
// marking. Status falls back to whatever the penultimate event implies and
// the accrual loop resumes if the day reopens.
func (s *Session) Reopen(ctx context.Context) error {
	s.mu.Lock()
	day := s.date
	s.mu.Unlock()

	if err := s.store.DeleteLastEventOfDay(ctx, day); err != nil {
		return fmt.Errorf("reopen day: %w", err)
	}
	return s.Load(ctx, day)
}

// ─── Ticket Commands ────────────────────────────────────────────────────────

func (s *Session) engineRef() *tickets.Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

// AddTicket registers a new ticket for the viewed day.
func (s *Session) AddTicket(ctx context.Context, identifier string) (tickets.State, error) {
	st, err := s.engineRef().Add(ctx, identifier)
	if err != nil {
		return tickets.State{}, err
	}
	return *st, nil
}

// RemoveTicket deletes a ticket from the viewed day.
func (s *Session) RemoveTicket(ctx context.Context, id string) error {
	return s.engineRef().Remove(ctx, id)
}

// ToggleTicket starts or pauses a ticket's timer. The pending worked-time
// delta is routed to the engine first so the deactivated ticket is
// snapshotted with its freshest total.
func (s *Session) ToggleTicket(ctx context.Context, id string) error {
	s.mu.Lock()
	now := s.cfg.Clock()
	s.applyTickLocked(now)
	status := s.statusLocked(now)
	engine := s.engine
	s.mu.Unlock()

	return engine.Toggle(ctx, id, status, now)
}

// AdjustTicket sets a ticket's accumulated time to newMinutes, holding the
// ticket-sum ≤ worked-time invariant. The ticker pauses for the edit and
// resumes regardless of outcome.
func (s *Session) AdjustTicket(ctx context.Context, id string, newMinutes int64) error {
	s.ticker.Stop()
	defer func() {
		s.mu.Lock()
		now := s.cfg.Clock()
		accruing := s.todayLocked(now) && s.statusLocked(now).Accruing()
		s.mu.Unlock()
		if accruing {
			s.ticker.Start()
		}
	}()

	s.mu.Lock()
	now := s.cfg.Clock()
	worked := workday.WorkedSeconds(s.events, now, s.openAccrualLocked(now))
	engine := s.engine
	s.mu.Unlock()

	return engine.ManualAdjust(ctx, id, newMinutes, worked)
}

// ─── Live Accrual ───────────────────────────────────────────────────────────

// Tick advances the live counters by recomputing total worked seconds and
// routing the delta to the active ticket. Every PersistEvery-th tick the
// active ticket's total is flushed to the store; durability is traded for
// write volume between flushes.
func (s *Session) Tick(now time.Time) {
	s.mu.Lock()
	s.applyTickLocked(now)
	s.tickCount++
	flush := s.tickCount%s.cfg.PersistEvery == 0
	engine := s.engine
	worked := s.workedCache
	s.mu.Unlock()

	observability.AccrualTicks.Inc()
	observability.WorkedSeconds.Set(float64(worked))
	if engine != nil {
		var active float64
		if engine.Active() != nil {
			active = 1
		}
		observability.ActiveTickets.Set(active)
	}

	if flush && engine != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := engine.PersistActive(ctx, now); err != nil {
			observability.StoreErrors.Inc()
			log.Printf("[session] accrual snapshot: %v", err)
		}
	}
}

func (s *Session) applyTickLocked(now time.Time) {
	worked := workday.WorkedSeconds(s.events, now, s.openAccrualLocked(now))
	delta := worked - s.workedCache
	s.workedCache = worked
	if s.engine != nil && delta > 0 {
		s.engine.ApplyElapsed(float64(delta))
	}
}

// ─── Snapshot ───────────────────────────────────────────────────────────────

// EventView is a clock event decorated with its display label.
type EventView struct {
	domain.ClockEvent
	Label string `json:"label"`
}

// Snapshot is the full dashboard payload for the viewed day.
type Snapshot struct {
	Date                string               `json:"date"`
	Today               bool                 `json:"today"`
	Status              domain.WorkdayStatus `json:"status"`
	Events              []EventView          `json:"events"`
	Tickets             []tickets.State      `json:"tickets"`
	WorkedSeconds       int64                `json:"worked_seconds"`
	WorkedClock         string               `json:"worked_clock"` // HH:MM:SS
	TicketSeconds       int64                `json:"ticket_seconds"`
	ProductivityPercent float64              `json:"productivity_percent"`
	GoalMet             bool                 `json:"goal_met"`
	Overtime            string               `json:"overtime"` // "", "overtime", "legal_limit"
	OvertimeExtra       string               `json:"overtime_extra,omitempty"`
	Balance             string               `json:"balance"` // vs contractual day, ±HH:MM
}

// Snapshot assembles the current dashboard view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.cfg.Clock()
	worked := workday.WorkedSeconds(s.events, now, s.openAccrualLocked(now))
	status := s.statusLocked(now)

	snap := Snapshot{
		Date:          domain.DateKey(s.date),
		Today:         s.todayLocked(now),
		Status:        status,
		Events:        labelEvents(s.events),
		WorkedSeconds: worked,
		WorkedClock:   domain.FormatClock(worked),
		Balance:       domain.FormatSignedHoursMinutes(worked - s.cfg.ContractualDaySeconds),
	}

	if s.engine != nil {
		snap.Tickets = s.engine.Tickets()
		snap.TicketSeconds = s.engine.TotalSeconds()
	}
	if worked > 0 {
		snap.ProductivityPercent = float64(snap.TicketSeconds) / float64(worked) * 100
		snap.GoalMet = snap.ProductivityPercent >= domain.GoalRatio
	}

	// Overtime warnings only apply to the live day.
	if snap.Today {
		opts := report.Options{
			ContractualDaySeconds: s.cfg.ContractualDaySeconds,
			LegalExtraSeconds:     s.cfg.LegalExtraSeconds,
			Now:                   now,
		}
		switch lvl, extra := report.Overtime(worked, opts); lvl {
		case report.OvertimeWarning:
			snap.Overtime = "overtime"
			snap.OvertimeExtra = domain.FormatExtra(extra)
		case report.OvertimeLegalLimit:
			snap.Overtime = "legal_limit"
			snap.OvertimeExtra = domain.FormatExtra(extra)
		}
	}
	return snap
}

// labelEvents numbers the breaks for display: "Break 1 start",
// "Break 1 end", ...
func labelEvents(events []domain.ClockEvent) []EventView {
	out := make([]EventView, 0, len(events))
	breakNo := 1
	for _, ev := range events {
		var label string
		switch ev.Kind {
		case domain.ShiftStart:
			label = "Shift start"
		case domain.BreakStart:
			label = fmt.Sprintf("Break %d start", breakNo)
		case domain.BreakEnd:
			label = fmt.Sprintf("Break %d end", breakNo)
			breakNo++
		case domain.ShiftEnd:
			label = "Shift end"
		default:
			label = string(ev.Kind)
		}
		out = append(out, EventView{ClockEvent: ev, Label: label})
	}
	return out
}
