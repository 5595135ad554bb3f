// Package tickets implements the ticket timer engine: the sole mutator of
// ticket active state. At most one ticket accrues time at any instant, and
// the engine apportions worked-time deltas (not wall-clock deltas) to it,
// so ticket time never grows during breaks.
package tickets

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ponto-labs/ponto/internal/domain"
)

// Store is the slice of the data-access contract the engine needs.
type Store interface {
	CreateTicket(ctx context.Context, identifier, workDate string) (domain.Ticket, error)
	UpdateTicketSeconds(ctx context.Context, id string, seconds int64) error
	UpdateTicketAccrual(ctx context.Context, id string, seconds int64, since time.Time) error
	SetTicketActive(ctx context.Context, id string, since *time.Time) error
	DeleteTicket(ctx context.Context, id string) error
}

// State is a ticket's in-memory working copy. Seconds carries sub-second
// precision between ticks; only whole seconds are ever persisted.
type State struct {
	domain.Ticket
	Seconds float64
	Active  bool
}

// WholeSeconds returns the displayable/persistable accumulated seconds.
func (s *State) WholeSeconds() int64 { return int64(s.Seconds) }

// Engine owns the per-day ticket set. All mutation goes through it; the
// toggle path is a critical section so deactivate-then-activate never
// interleaves with another toggle.
type Engine struct {
	mu       sync.Mutex
	store    Store
	workDate string
	tickets  []*State
}

// NewEngine creates an engine for one work date (YYYY-MM-DD).
func NewEngine(store Store, workDate string) *Engine {
	return &Engine{store: store, workDate: workDate}
}

// Load replaces the in-memory set with freshly fetched rows and reconciles
// tickets whose timer was left running across a session gap: the span from
// activeSince to now is added once, before any further accrual. A span that
// comes out negative is never subtracted.
func (e *Engine) Load(rows []domain.Ticket, now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tickets = e.tickets[:0]
	for _, row := range rows {
		st := &State{Ticket: row, Seconds: float64(row.AccumulatedSeconds)}
		if row.ActiveSince != nil {
			st.Active = true
			if lost := now.Sub(*row.ActiveSince).Seconds(); lost > 0 {
				st.Seconds += lost
			}
		}
		e.tickets = append(e.tickets, st)
	}
}

// Add creates a new ticket with zero accumulated time. Duplicate identifiers
// within the loaded day are rejected before any store call.
func (e *Engine) Add(ctx context.Context, identifier string) (*State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, t := range e.tickets {
		if t.Identifier == identifier {
			return nil, domain.ErrDuplicateTicket
		}
	}

	row, err := e.store.CreateTicket(ctx, identifier, e.workDate)
	if err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}

	st := &State{Ticket: row}
	e.tickets = append(e.tickets, st)
	return st, nil
}

// Remove deletes a ticket. In-memory state changes only after the store
// confirms the deletion.
func (e *Engine) Remove(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i, t := range e.tickets {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrTicketNotFound
	}

	if err := e.store.DeleteTicket(ctx, id); err != nil {
		return fmt.Errorf("delete ticket: %w", err)
	}

	e.tickets = append(e.tickets[:idx], e.tickets[idx+1:]...)
	return nil
}

// Toggle starts or pauses a ticket's timer. The caller must have routed the
// latest worked-time delta through ApplyElapsed first, so the active
// ticket's in-memory total is current when it is snapshotted here.
//
// Any currently active ticket is deactivated and persisted first; if the
// toggled ticket is a different one, it is then activated. The accrual
// cursor therefore moves atomically and at most one ticket accrues.
func (e *Engine) Toggle(ctx context.Context, id string, status domain.WorkdayStatus, now time.Time) error {
	if status != domain.Working {
		return domain.ErrNotWorking
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var target, current *State
	for _, t := range e.tickets {
		if t.ID == id {
			target = t
		}
		if t.Active {
			current = t
		}
	}
	if target == nil {
		return domain.ErrTicketNotFound
	}

	if current != nil {
		if err := e.store.UpdateTicketSeconds(ctx, current.ID, current.WholeSeconds()); err != nil {
			return fmt.Errorf("snapshot active ticket: %w", err)
		}
	}

	if current == target {
		// Pausing the active ticket.
		if err := e.store.SetTicketActive(ctx, target.ID, nil); err != nil {
			return fmt.Errorf("pause ticket: %w", err)
		}
		target.Active = false
		target.ActiveSince = nil
		return nil
	}

	// Activating a new ticket; the store clears active_since on all others.
	if err := e.store.SetTicketActive(ctx, target.ID, &now); err != nil {
		return fmt.Errorf("start ticket: %w", err)
	}
	if current != nil {
		current.Active = false
		current.ActiveSince = nil
	}
	target.Active = true
	since := now
	target.ActiveSince = &since
	return nil
}

// ApplyElapsed routes a worked-time delta to the active ticket, if any.
// Called once per scheduler tick; a zero or negative delta is a no-op,
// which is what keeps ticket time frozen during breaks.
func (e *Engine) ApplyElapsed(deltaSeconds float64) {
	if deltaSeconds <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.tickets {
		if t.Active {
			t.Seconds += deltaSeconds
			return
		}
	}
}

// ManualAdjust sets a ticket's time to newMinutes, enforcing the invariant
// that the sum of all ticket seconds for the day never exceeds the total
// worked seconds. On rejection the stored and displayed values are untouched.
func (e *Engine) ManualAdjust(ctx context.Context, id string, newMinutes int64, totalWorkedSeconds int64) error {
	if newMinutes < 0 {
		return domain.ErrNegativeTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	var target *State
	var otherSeconds int64
	for _, t := range e.tickets {
		if t.ID == id {
			target = t
		} else {
			otherSeconds += t.WholeSeconds()
		}
	}
	if target == nil {
		return domain.ErrTicketNotFound
	}

	newSeconds := newMinutes * 60
	if otherSeconds+newSeconds > totalWorkedSeconds {
		return domain.ErrTicketOverAllocation
	}

	if err := e.store.UpdateTicketSeconds(ctx, id, newSeconds); err != nil {
		return fmt.Errorf("adjust ticket: %w", err)
	}

	target.Seconds = float64(newSeconds)
	target.AccumulatedSeconds = newSeconds
	return nil
}

// PersistActive writes the active ticket's current total to the store and
// advances active_since to now in the same write, so the stored total is
// always "as of" the stored activation time. Without that, the load-time
// reconciliation would re-add the already-flushed span and double-count.
// The scheduler calls this at a bounded cadence rather than every tick.
func (e *Engine) PersistActive(ctx context.Context, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.tickets {
		if t.Active {
			if err := e.store.UpdateTicketAccrual(ctx, t.ID, t.WholeSeconds(), now); err != nil {
				return fmt.Errorf("persist active ticket: %w", err)
			}
			t.AccumulatedSeconds = t.WholeSeconds()
			since := now
			t.ActiveSince = &since
			return nil
		}
	}
	return nil
}

// Active returns the accruing ticket, or nil.
func (e *Engine) Active() *State {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, t := range e.tickets {
		if t.Active {
			return t
		}
	}
	return nil
}

// TotalSeconds is the whole-second sum across all tickets for the day.
func (e *Engine) TotalSeconds() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var sum int64
	for _, t := range e.tickets {
		sum += t.WholeSeconds()
	}
	return sum
}

// Tickets returns a snapshot of the current ticket states.
func (e *Engine) Tickets() []State {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]State, 0, len(e.tickets))
	for _, t := range e.tickets {
		out = append(out, *t)
	}
	return out
}
